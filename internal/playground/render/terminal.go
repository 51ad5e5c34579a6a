package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"solvebox/internal/playground/result"

	"github.com/fatih/color"
)

const (
	pendingText     = "⏳ Running test cases..."
	successText     = "✔ All test cases passed"
	failureText     = "✘ Not all test cases passed"
	systemErrorText = "❌ System Error"
	advisoryPrefix  = "⚠️  "
)

// Terminal writes results to a terminal and tracks the submit affordance.
// It satisfies the submit package's Renderer, Affordance and Advisor.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer

	pass     *color.Color
	passBold *color.Color
	fail     *color.Color
	failBold *color.Color
	errored  *color.Color
	system   *color.Color
	muted    *color.Color

	enabled      bool
	label        string
	onAffordance func(enabled bool, label string)
}

// Option customizes a Terminal.
type Option func(*Terminal)

// WithoutColor disables ANSI styling regardless of the terminal.
func WithoutColor() Option {
	return func(t *Terminal) {
		for _, c := range []*color.Color{t.pass, t.passBold, t.fail, t.failBold, t.errored, t.system, t.muted} {
			c.DisableColor()
		}
	}
}

// WithAffordanceHook is called whenever the submit affordance changes.
func WithAffordanceHook(fn func(enabled bool, label string)) Option {
	return func(t *Terminal) {
		t.onAffordance = fn
	}
}

// NewTerminal creates a renderer writing to out.
func NewTerminal(out io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		out:      out,
		pass:     color.New(color.FgGreen),
		passBold: color.New(color.FgGreen, color.Bold),
		fail:     color.New(color.FgRed),
		failBold: color.New(color.FgRed, color.Bold),
		errored:  color.New(color.FgYellow),
		system:   color.New(color.FgWhite, color.BgRed, color.Bold),
		muted:    color.New(color.Faint),
		enabled:  true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Pending shows the waiting indicator for an in-flight submission.
func (t *Terminal) Pending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.muted, pendingText)
}

// Render replaces the previous output with res.
func (t *Terminal) Render(res result.SubmissionResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range Rows(res) {
		style := t.styleFor(row.Kind)
		t.println(style, row.Title)
		for _, line := range row.Lines {
			t.println(style, "    "+line)
		}
	}
	if res.AllPassed {
		t.println(t.passBold, successText)
	} else {
		t.println(t.failBold, failureText)
	}
}

// SystemError shows a whole-submission failure, styled apart from test rows.
func (t *Terminal) SystemError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.system, systemErrorText)
	t.println(nil, "")
	t.println(nil, err.Error())
}

// Advise prints a guardrail advisory.
func (t *Terminal) Advise(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.errored, advisoryPrefix+message)
}

// SetEnabled records whether the run control accepts a submission.
func (t *Terminal) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
	t.notifyAffordance()
}

// SetLabel records the run control caption.
func (t *Terminal) SetLabel(label string) {
	t.mu.Lock()
	t.label = label
	t.mu.Unlock()
	t.notifyAffordance()
}

func (t *Terminal) notifyAffordance() {
	t.mu.Lock()
	enabled, label, hook := t.enabled, t.label, t.onAffordance
	t.mu.Unlock()
	if hook != nil {
		hook(enabled, label)
	}
}

// Affordance returns the current enabled flag and label of the submit control.
func (t *Terminal) Affordance() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled, t.label
}

// Println writes a plain line, serialized with result output.
func (t *Terminal) Println(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(nil, fmt.Sprintf(format, args...))
}

func (t *Terminal) styleFor(kind result.Kind) *color.Color {
	switch kind {
	case result.KindPassed:
		return t.pass
	case result.KindFailed:
		return t.fail
	default:
		return t.errored
	}
}

func (t *Terminal) println(style *color.Color, text string) {
	if style == nil {
		_, _ = fmt.Fprintln(t.out, text)
		return
	}
	for _, line := range strings.Split(text, "\n") {
		_, _ = style.Fprintln(t.out, line)
	}
}
