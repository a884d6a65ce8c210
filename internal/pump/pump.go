// Package pump drains a child process output stream line by line.
package pump

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"log/slog"
)

// ErrorPrefix marks lines read from an error stream.
const ErrorPrefix = "✗ "

const (
	initialBufferSize = 64 * 1024
	// MaxLineSize is the longest line a pump forwards in one piece. Longer
	// lines are split into MaxLineSize chunks.
	MaxLineSize = 1024 * 1024
)

// Sink receives lines. It is called from the pump's goroutine.
type Sink interface {
	OnLine(text string, isError bool)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(text string, isError bool)

func (f SinkFunc) OnLine(text string, isError bool) { f(text, isError) }

// Pump forwards the lines of one stream to a sink.
type Pump struct {
	// Stream names the stream in logs, e.g. "stdout".
	Stream  string
	IsError bool
	Sink    Sink
	Log     *slog.Logger
}

// Run reads r until EOF or a read error. Lines reach the sink in the order
// they were written. On a read error the rest of r is discarded so the
// writer never blocks, and the error is returned. Run makes no sink calls
// after it returns.
func (p Pump) Run(r io.Reader) error {
	for line, err := range Lines(r) {
		if err != nil {
			if p.Log != nil {
				p.Log.Warn("stream read failed", "stream", p.Stream, "error", err)
			}
			_, _ = io.Copy(io.Discard, r)
			return err
		}
		if p.IsError {
			line = ErrorPrefix + line
		}
		p.Sink.OnLine(line, p.IsError)
	}
	return nil
}

// Lines yields the lines of r without their line terminators, CRLF
// included. Lines longer than MaxLineSize are yielded in chunks. A read
// error is yielded once as the final element.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		br := bufio.NewReaderSize(r, initialBufferSize)
		var buf []byte
		split := false

		for {
			chunk, isPrefix, err := br.ReadLine()
			if err != nil {
				if len(buf) > 0 && !yield(string(buf), nil) {
					return
				}
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}

			buf = append(buf, chunk...)
			for len(buf) > MaxLineSize || (isPrefix && len(buf) == MaxLineSize) {
				if !yield(string(buf[:MaxLineSize]), nil) {
					return
				}
				buf = buf[MaxLineSize:]
				split = true
			}
			if isPrefix {
				continue
			}
			if len(buf) > 0 || !split {
				if !yield(string(buf), nil) {
					return
				}
			}
			buf = buf[:0]
			split = false
		}
	}
}
