// Package submit owns the submission lifecycle: it formats and reads the
// editor, calls the evaluation transport and hands the classified result to
// the renderer, allowing at most one submission in flight.
package submit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solvebox/internal/playground/editor"
	"solvebox/internal/playground/guard"
	"solvebox/internal/playground/result"
	"solvebox/pkg/api"
	appErr "solvebox/pkg/errors"
	"solvebox/pkg/utils/contextkey"
	"solvebox/pkg/utils/logger"

	"go.uber.org/zap"
)

// Labels shown on the submit affordance.
const (
	RunLabel     = "▶ Run"
	RunningLabel = "Running..."
)

// State is the submission lifecycle state of a Controller.
type State int

const (
	Idle State = iota
	InFlight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case InFlight:
		return "InFlight"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Request is one submission, captured by value before the transport call.
type Request struct {
	Code      string
	ProblemID string
}

// Payload returns the wire form of the request.
func (r Request) Payload() api.RunRequest {
	return api.RunRequest{Code: r.Code, ProblemID: r.ProblemID}
}

// Transport performs the single request/response exchange with the evaluator.
type Transport interface {
	Run(ctx context.Context, req api.RunRequest) (result.RawResponse, error)
}

// Renderer projects submission progress and results to the user.
type Renderer interface {
	Pending()
	Render(res result.SubmissionResult)
	SystemError(err error)
}

// Affordance is the submit control whose state follows the controller.
type Affordance interface {
	SetEnabled(enabled bool)
	SetLabel(label string)
}

// Advisor delivers non-blocking advisories such as guardrail warnings.
type Advisor interface {
	Advise(message string)
}

// Config holds controller collaborators.
type Config struct {
	Editor     editor.Surface
	Transport  Transport
	Renderer   Renderer
	Affordance Affordance
	Advisor    Advisor
	Classifier *result.Classifier

	ProblemID string
	Seed      string
}

// Controller drives submissions for one problem.
type Controller struct {
	editor     editor.Surface
	transport  Transport
	renderer   Renderer
	affordance Affordance
	advisor    Advisor
	classifier *result.Classifier

	problemID string
	seed      string

	mu    sync.Mutex
	state State
}

// NewController creates an idle controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Editor == nil {
		return nil, fmt.Errorf("editor is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if cfg.ProblemID == "" {
		return nil, fmt.Errorf("problem id is required")
	}
	if cfg.Affordance == nil {
		cfg.Affordance = noopAffordance{}
	}
	if cfg.Advisor == nil {
		cfg.Advisor = noopAdvisor{}
	}
	if cfg.Classifier == nil {
		cfg.Classifier = result.NewClassifier()
	}
	c := &Controller{
		editor:     cfg.Editor,
		transport:  cfg.Transport,
		renderer:   cfg.Renderer,
		affordance: cfg.Affordance,
		advisor:    cfg.Advisor,
		classifier: cfg.Classifier,
		problemID:  cfg.ProblemID,
		seed:       cfg.Seed,
		state:      Idle,
	}
	c.affordance.SetEnabled(true)
	c.affordance.SetLabel(RunLabel)
	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ProblemID returns the problem this controller submits to.
func (c *Controller) ProblemID() string {
	return c.problemID
}

// Seed returns the text Reset restores.
func (c *Controller) Seed() string {
	return c.seed
}

// Submit evaluates the editor content. It returns false without any effect
// when a submission is already in flight. Every failure is rendered; none is
// returned, and the controller is always Idle again when Submit returns.
func (c *Controller) Submit(ctx context.Context) bool {
	if !c.begin() {
		return false
	}
	defer c.finish()

	ctx = context.WithValue(ctx, contextkey.ProblemID, c.problemID)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := appErr.Newf(appErr.InternalServerError, "submission aborted: %v", r)
			logger.Error(ctx, "submission panicked", zap.Any("panic", r))
			c.renderer.SystemError(err)
		}
	}()

	c.renderer.Pending()

	if err := c.editor.FormatDocument(); err != nil {
		logger.Warn(ctx, "format before submit failed, using unformatted code", zap.Error(err))
	}

	code, err := c.editor.Value()
	if err != nil {
		logger.Error(ctx, "read editor content failed", zap.Error(err))
		c.renderer.SystemError(err)
		return true
	}

	if warning, ok := guard.Check(code); ok {
		c.advisor.Advise(warning)
	}

	req := Request{Code: code, ProblemID: c.problemID}
	raw, err := c.transport.Run(ctx, req.Payload())
	if err != nil {
		logger.Warn(ctx, "submission transport failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		c.renderer.SystemError(err)
		return true
	}

	res, err := c.classifier.Classify(raw)
	if err != nil {
		logger.Warn(ctx, "submission response rejected", zap.Error(err))
		c.renderer.SystemError(err)
		return true
	}

	logger.Info(ctx, "submission finished",
		zap.Bool("all_passed", res.AllPassed),
		zap.Int("cases", len(res.Outcomes)),
		zap.Duration("elapsed", time.Since(start)),
	)
	c.renderer.Render(res)
	return true
}

// Reset restores the seed text and focuses the editor. It does not touch the
// submission state and does not cancel an in-flight submission.
func (c *Controller) Reset() error {
	if err := c.editor.SetValue(c.seed); err != nil {
		return err
	}
	c.editor.Focus()
	return nil
}

func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return false
	}
	c.state = InFlight
	c.affordance.SetEnabled(false)
	c.affordance.SetLabel(RunningLabel)
	return true
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	c.affordance.SetEnabled(true)
	c.affordance.SetLabel(RunLabel)
}

type noopAffordance struct{}

func (noopAffordance) SetEnabled(bool) {}
func (noopAffordance) SetLabel(string) {}

type noopAdvisor struct{}

func (noopAdvisor) Advise(string) {}
