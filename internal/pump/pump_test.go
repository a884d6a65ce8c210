package pump

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type line struct {
	text    string
	isError bool
}

type recorder struct {
	mu    sync.Mutex
	lines []line
}

func (r *recorder) OnLine(text string, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line{text, isError})
}

func (r *recorder) snapshot() []line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]line(nil), r.lines...)
}

func TestRunForwardsLinesInOrder(t *testing.T) {
	rec := &recorder{}
	err := Pump{Stream: "stdout", Sink: rec}.Run(strings.NewReader("a\nb\nc\n"))
	require.NoError(t, err)
	require.Equal(t, []line{{"a", false}, {"b", false}, {"c", false}}, rec.snapshot())
}

func TestRunPrefixesErrorStream(t *testing.T) {
	rec := &recorder{}
	err := Pump{Stream: "stderr", IsError: true, Sink: rec}.Run(strings.NewReader("boom\r\nlast"))
	require.NoError(t, err)
	require.Equal(t, []line{{ErrorPrefix + "boom", true}, {ErrorPrefix + "last", true}}, rec.snapshot())
}

func TestRunOverPipe(t *testing.T) {
	pr, pw := io.Pipe()
	rec := &recorder{}

	done := make(chan error, 1)
	go func() { done <- Pump{Stream: "stdout", Sink: rec}.Run(pr) }()

	for _, s := range []string{"a\n", "b\n", "c\n"} {
		_, err := pw.Write([]byte(s))
		require.NoError(t, err)
	}
	require.NoError(t, pw.Close())
	require.NoError(t, <-done)

	require.Equal(t, []line{{"a", false}, {"b", false}, {"c", false}}, rec.snapshot())
}

func TestRunReadError(t *testing.T) {
	pr, pw := io.Pipe()
	rec := &recorder{}

	go func() {
		_, _ = pw.Write([]byte("first\n"))
		pw.CloseWithError(errors.New("pipe broke"))
	}()

	err := Pump{Stream: "stdout", Sink: rec}.Run(pr)
	require.ErrorContains(t, err, "pipe broke")
	require.Equal(t, []line{{"first", false}}, rec.snapshot())
}

func TestRunKeepsReadingAfterOversizedLine(t *testing.T) {
	pr, pw := io.Pipe()
	rec := &recorder{}

	written := make(chan error, 1)
	go func() {
		_, err := pw.Write([]byte("before\n" + strings.Repeat("x", MaxLineSize+1) + "\nafter-1\nafter-2\n"))
		pw.Close()
		written <- err
	}()

	err := Pump{Stream: "stdout", Sink: rec}.Run(pr)
	require.NoError(t, err)
	require.NoError(t, <-written)

	require.Equal(t, []line{
		{"before", false},
		{strings.Repeat("x", MaxLineSize), false},
		{"x", false},
		{"after-1", false},
		{"after-2", false},
	}, rec.snapshot())
}

func TestLinesSplitsLongLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{"exactly the limit", strings.Repeat("y", MaxLineSize) + "\n", []int{MaxLineSize}},
		{"two full chunks", strings.Repeat("y", 2*MaxLineSize) + "\n", []int{MaxLineSize, MaxLineSize}},
		{"no trailing newline", strings.Repeat("y", MaxLineSize+5), []int{MaxLineSize, 5}},
		{"empty lines kept", "\n\n", []int{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for l, err := range Lines(strings.NewReader(tt.input)) {
				require.NoError(t, err)
				got = append(got, len(l))
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLinesStopsEarly(t *testing.T) {
	var got []string
	for l, err := range Lines(strings.NewReader("1\n2\n3\n")) {
		require.NoError(t, err)
		got = append(got, l)
		if len(got) == 2 {
			break
		}
	}
	require.Equal(t, []string{"1", "2"}, got)
}
