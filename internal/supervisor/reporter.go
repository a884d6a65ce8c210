package supervisor

// Level classifies a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Reporter observes the supervisor. Implementations must be safe for
// concurrent use: OnLine is called from the stream goroutines while the
// other methods are called from the supervisor goroutine.
type Reporter interface {
	OnStateChanged(state State)
	OnLine(text string, isError bool)
	OnURLsReady(localURL, networkURL string)
	OnNotice(level Level, text string)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) OnStateChanged(State)       {}
func (NopReporter) OnLine(string, bool)        {}
func (NopReporter) OnURLsReady(string, string) {}
func (NopReporter) OnNotice(Level, string)     {}

type multiReporter []Reporter

// MultiReporter fans every event out to each reporter in order.
func MultiReporter(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

func (m multiReporter) OnStateChanged(state State) {
	for _, r := range m {
		r.OnStateChanged(state)
	}
}

func (m multiReporter) OnLine(text string, isError bool) {
	for _, r := range m {
		r.OnLine(text, isError)
	}
}

func (m multiReporter) OnURLsReady(localURL, networkURL string) {
	for _, r := range m {
		r.OnURLsReady(localURL, networkURL)
	}
}

func (m multiReporter) OnNotice(level Level, text string) {
	for _, r := range m {
		r.OnNotice(level, text)
	}
}
