// Package engine implements the timed typing session state machine.
//
// An Engine owns one practice attempt. It matches keystrokes against the
// current prompt, accumulates typed and error counts across every prompt of
// the attempt and computes words per minute and accuracy once the countdown
// reaches zero. It never schedules anything itself: drivers call Tick once
// per second while the status is StatusInProgress and use Generation to
// discard ticks that were scheduled for an earlier timer epoch.
package engine

// DefaultDuration is used when a non-positive duration is configured.
const DefaultDuration = 60

// Status is the lifecycle state of an attempt.
type Status int

// Attempt states.
const (
	StatusWaiting Status = iota
	StatusInProgress
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusInProgress:
		return "inProgress"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Result summarizes a finished attempt.
type Result struct {
	WPM             int
	Accuracy        float64
	TotalTyped      int
	TotalErrors     int
	DurationSeconds int
	ElapsedSeconds  int
	Category        string
}

// Outcome reports what a keystroke caused.
type Outcome struct {
	// Accepted is false when the key was ignored.
	Accepted bool
	// Started is set when the keystroke moved the attempt into progress.
	Started bool
	// PromptComplete is set when the prompt was fully typed and the
	// buffer was cleared; the driver should load the next prompt.
	PromptComplete bool
}

// Engine is a single-threaded typing session. It is not safe for
// concurrent use; drivers serialize access.
type Engine struct {
	prompt   []rune
	category string
	duration int

	status    Status
	remaining int
	typed     []rune

	totalTyped  int
	totalErrors int

	result    Result
	hasResult bool

	generation uint64
}

// New returns an engine in the waiting state.
func New(prompt string, duration int, category string) *Engine {
	if duration < 1 {
		duration = DefaultDuration
	}
	e := &Engine{
		prompt:   []rune(prompt),
		category: category,
		duration: duration,
	}
	e.Reset(false)
	return e
}

// Submit applies one key event.
func (e *Engine) Submit(k Key) Outcome {
	if e.status == StatusFinished || len(e.prompt) == 0 {
		return Outcome{}
	}
	switch k.Kind {
	case KeyBackspace:
		if len(e.typed) > 0 {
			e.typed = e.typed[:len(e.typed)-1]
		}
		return Outcome{Accepted: true}
	case KeyTab:
		return e.appendRunes([]rune{' ', ' '})
	case KeyEnter:
		return e.appendRunes([]rune{'\n'})
	case KeyChar:
		if run := e.tabRunBefore(k.Rune); run > 0 {
			pos := len(e.typed)
			seq := make([]rune, 0, run+1)
			seq = append(seq, e.prompt[pos:pos+run]...)
			seq = append(seq, k.Rune)
			return e.appendRunes(seq)
		}
		return e.appendRunes([]rune{k.Rune})
	default:
		return Outcome{}
	}
}

// tabRunBefore returns the length of the tab run at the cursor when it is
// directly followed by r, or 0.
func (e *Engine) tabRunBefore(r rune) int {
	pos := len(e.typed)
	end := pos
	for end < len(e.prompt) && e.prompt[end] == '\t' {
		end++
	}
	if end == pos || end >= len(e.prompt) || e.prompt[end] != r {
		return 0
	}
	return end - pos
}

func (e *Engine) appendRunes(seq []rune) Outcome {
	out := Outcome{Accepted: true}
	if e.status == StatusWaiting {
		e.status = StatusInProgress
		e.generation++
		out.Started = true
	}
	for _, r := range seq {
		pos := len(e.typed)
		if pos >= len(e.prompt) {
			break
		}
		if r != e.prompt[pos] {
			e.totalErrors++
		}
		e.totalTyped++
		e.typed = append(e.typed, r)
	}
	if len(e.typed) == len(e.prompt) {
		e.typed = e.typed[:0]
		out.PromptComplete = true
	}
	return out
}

// Tick advances the countdown by one second. It returns the result and true
// only on the transition into StatusFinished.
func (e *Engine) Tick() (Result, bool) {
	if e.status != StatusInProgress {
		return Result{}, false
	}
	if e.remaining > 0 {
		e.remaining--
	}
	if e.remaining > 0 {
		return Result{}, false
	}
	e.status = StatusFinished
	e.generation++
	e.result = computeResult(e.totalTyped, e.totalErrors, e.duration, e.remaining, e.category)
	e.hasResult = true
	return e.result, true
}

// Reset returns the attempt to the waiting state and zeroes every counter.
// The return value is notify: true asks the caller to select a new prompt.
func (e *Engine) Reset(notify bool) bool {
	if e.status == StatusInProgress {
		e.generation++
	}
	e.status = StatusWaiting
	e.remaining = e.duration
	e.typed = e.typed[:0]
	e.totalTyped = 0
	e.totalErrors = 0
	e.result = Result{}
	e.hasResult = false
	return notify
}

// SetPrompt loads the next prompt. Only the typed buffer is cleared; the
// countdown and counters carry on.
func (e *Engine) SetPrompt(text string) {
	e.prompt = []rune(text)
	e.typed = e.typed[:0]
}

// SetDuration changes the configured duration and fully resets the attempt.
// Values below 1 are ignored. It returns true when a new prompt is needed.
func (e *Engine) SetDuration(seconds int) bool {
	if seconds < 1 {
		return false
	}
	e.duration = seconds
	return e.Reset(true)
}

// SetCategory records a new category and fully resets the attempt. The
// caller is expected to fetch prompts for the category.
func (e *Engine) SetCategory(category string) {
	e.category = category
	e.Reset(false)
}

// Status returns the current lifecycle state.
func (e *Engine) Status() Status { return e.status }

// Remaining returns the seconds left on the countdown.
func (e *Engine) Remaining() int { return e.remaining }

// Duration returns the configured duration in seconds.
func (e *Engine) Duration() int { return e.duration }

// Category returns the configured prompt category.
func (e *Engine) Category() string { return e.category }

// Prompt returns a copy of the current prompt.
func (e *Engine) Prompt() []rune { return append([]rune(nil), e.prompt...) }

// Typed returns a copy of the typed buffer.
func (e *Engine) Typed() []rune { return append([]rune(nil), e.typed...) }

// TotalTyped returns the cumulative typed units.
func (e *Engine) TotalTyped() int { return e.totalTyped }

// TotalErrors returns the cumulative errors.
func (e *Engine) TotalErrors() int { return e.totalErrors }

// Result returns the computed result once finished.
func (e *Engine) Result() (Result, bool) { return e.result, e.hasResult }

// Generation identifies the current timer epoch. It changes whenever the
// attempt enters or leaves StatusInProgress.
func (e *Engine) Generation() uint64 { return e.generation }
