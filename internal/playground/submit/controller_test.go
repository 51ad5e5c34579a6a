package submit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"solvebox/internal/playground/editor"
	"solvebox/internal/playground/result"
	"solvebox/pkg/api"
	appErr "solvebox/pkg/errors"
	"solvebox/pkg/testutil"
)

type fakeTransport struct {
	mu    sync.Mutex
	calls []api.RunRequest
	run   func(ctx context.Context, req api.RunRequest) (result.RawResponse, error)
}

func (f *fakeTransport) Run(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.run(ctx, req)
}

func (f *fakeTransport) Calls() []api.RunRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.RunRequest(nil), f.calls...)
}

type fakeRenderer struct {
	mu      sync.Mutex
	events  []string
	results []result.SubmissionResult
	errs    []error
}

func (r *fakeRenderer) Pending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "pending")
}

func (r *fakeRenderer) Render(res result.SubmissionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "render")
	r.results = append(r.results, res)
}

func (r *fakeRenderer) SystemError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "system-error")
	r.errs = append(r.errs, err)
}

type fakeAffordance struct {
	mu      sync.Mutex
	enabled bool
	label   string
}

func (a *fakeAffordance) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

func (a *fakeAffordance) SetLabel(label string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.label = label
}

func (a *fakeAffordance) snapshot() (bool, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled, a.label
}

type fakeAdvisor struct {
	messages []string
}

func (a *fakeAdvisor) Advise(message string) {
	a.messages = append(a.messages, message)
}

type panicRenderer struct {
	fakeRenderer
}

func (r *panicRenderer) Render(result.SubmissionResult) {
	panic("renderer exploded")
}

func passedBody() result.RawResponse {
	passed := true
	return result.RawResponse{Passed: &passed, Details: []json.RawMessage{json.RawMessage(`{"index": 1, "status": "passed"}`)}}
}

type fixture struct {
	ctrl       *Controller
	buffer     *editor.Buffer
	transport  *fakeTransport
	renderer   *fakeRenderer
	affordance *fakeAffordance
	advisor    *fakeAdvisor
}

func newFixture(t *testing.T, code string, run func(ctx context.Context, req api.RunRequest) (result.RawResponse, error)) *fixture {
	t.Helper()
	f := &fixture{
		buffer:     editor.NewBuffer(code, editor.Whitespace{}),
		transport:  &fakeTransport{run: run},
		renderer:   &fakeRenderer{},
		affordance: &fakeAffordance{},
		advisor:    &fakeAdvisor{},
	}
	ctrl, err := NewController(Config{
		Editor:     f.buffer,
		Transport:  f.transport,
		Renderer:   f.renderer,
		Affordance: f.affordance,
		Advisor:    f.advisor,
		ProblemID:  "day1_sum",
		Seed:       "def solve(a, b):\n    pass\n",
	})
	if err != nil {
		t.Fatalf("new controller failed: %v", err)
	}
	f.ctrl = ctrl
	return f
}

func (f *fixture) assertIdle(t *testing.T) {
	t.Helper()
	testutil.AssertEqual(t, f.ctrl.State(), Idle)
	enabled, label := f.affordance.snapshot()
	testutil.AssertTrue(t, enabled, "affordance should be enabled")
	testutil.AssertEqual(t, label, RunLabel)
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(Config{})
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	_, err = NewController(Config{
		Editor:    editor.NewBuffer("", nil),
		Transport: &fakeTransport{},
		Renderer:  &fakeRenderer{},
	})
	if err == nil {
		t.Fatal("expected error for missing problem id")
	}
}

func TestSubmitAllPass(t *testing.T) {
	f := newFixture(t, "def solve(a, b):\n\treturn a + b", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		return passedBody(), nil
	})

	testutil.AssertTrue(t, f.ctrl.Submit(context.Background()), "submit should run")

	calls := f.transport.Calls()
	testutil.AssertEqual(t, len(calls), 1)
	testutil.AssertEqual(t, calls[0].ProblemID, "day1_sum")
	// formatted before reading
	testutil.AssertEqual(t, calls[0].Code, "def solve(a, b):\n    return a + b\n")
	testutil.AssertEqual(t, f.renderer.events, []string{"pending", "render"})
	testutil.AssertEqual(t, len(f.renderer.results[0].Outcomes), 1)
	testutil.AssertTrue(t, f.renderer.results[0].AllPassed, "aggregate should be success")
	testutil.AssertEqual(t, len(f.advisor.messages), 0)
	f.assertIdle(t)
}

func TestSubmitMixedResult(t *testing.T) {
	f := newFixture(t, "def solve(a, b):\n    return a * b\n", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		passed := false
		return result.RawResponse{Passed: &passed, Details: []json.RawMessage{
			json.RawMessage(`{"index":1,"status":"passed"}`),
			json.RawMessage(`{"index":2,"status":"failed","input":[1,2],"expected":"3","got":"4"}`),
		}}, nil
	})

	f.ctrl.Submit(context.Background())

	res := f.renderer.results[0]
	testutil.AssertFalse(t, res.AllPassed, "aggregate should be failure")
	testutil.AssertEqual(t, res.Outcomes[0].Kind(), result.KindPassed)
	failed, ok := res.Outcomes[1].(result.Failed)
	testutil.AssertTrue(t, ok, "second outcome should be Failed")
	testutil.AssertEqual(t, string(failed.Input), "[1,2]")
	testutil.AssertEqual(t, failed.Expected, "3")
	testutil.AssertEqual(t, failed.Got, "4")
}

func TestSubmitTransportFailure(t *testing.T) {
	cause := errors.New("network is unreachable")
	f := newFixture(t, "def solve():\n    return 1\n", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		return result.RawResponse{}, appErr.TransportError(cause)
	})

	testutil.AssertTrue(t, f.ctrl.Submit(context.Background()), "submit should run")

	testutil.AssertEqual(t, f.renderer.events, []string{"pending", "system-error"})
	testutil.AssertTrue(t, errors.Is(f.renderer.errs[0], cause), "system error should carry the cause")
	testutil.AssertContains(t, f.renderer.errs[0].Error(), "network is unreachable")
	f.assertIdle(t)
}

func TestSubmitMalformedTopLevelIsSystemError(t *testing.T) {
	f := newFixture(t, "def solve():\n    return 1\n", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		return result.RawResponse{}, nil
	})

	f.ctrl.Submit(context.Background())

	testutil.AssertEqual(t, f.renderer.events, []string{"pending", "system-error"})
	testutil.AssertTrue(t, appErr.Is(f.renderer.errs[0], appErr.ClassificationFailed), "should be a classification error")
	f.assertIdle(t)
}

func TestSubmitRecoversFromPanic(t *testing.T) {
	transport := &fakeTransport{run: func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		return passedBody(), nil
	}}
	renderer := &panicRenderer{}
	affordance := &fakeAffordance{}
	ctrl, err := NewController(Config{
		Editor:     editor.NewBuffer("def solve():\n    return 1\n", nil),
		Transport:  transport,
		Renderer:   renderer,
		Affordance: affordance,
		ProblemID:  "p",
	})
	if err != nil {
		t.Fatalf("new controller failed: %v", err)
	}

	ctrl.Submit(context.Background())

	testutil.AssertEqual(t, ctrl.State(), Idle)
	enabled, label := affordance.snapshot()
	testutil.AssertTrue(t, enabled, "affordance should be re-enabled after a panic")
	testutil.AssertEqual(t, label, RunLabel)
	testutil.AssertEqual(t, renderer.events, []string{"pending", "system-error"})
	testutil.AssertContains(t, renderer.errs[0].Error(), "renderer exploded")
}

func TestSubmitTransportPanic(t *testing.T) {
	f := newFixture(t, "x", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		panic("transport exploded")
	})

	f.ctrl.Submit(context.Background())

	testutil.AssertEqual(t, f.renderer.events, []string{"pending", "system-error"})
	f.assertIdle(t)
}

func TestSubmitFormatUnavailableStillSubmits(t *testing.T) {
	transport := &fakeTransport{run: func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		return passedBody(), nil
	}}
	ctrl, err := NewController(Config{
		Editor:    editor.NewBuffer("def solve():\n\treturn 1", nil),
		Transport: transport,
		Renderer:  &fakeRenderer{},
		ProblemID: "p",
	})
	if err != nil {
		t.Fatalf("new controller failed: %v", err)
	}

	ctrl.Submit(context.Background())

	calls := transport.Calls()
	testutil.AssertEqual(t, len(calls), 1)
	testutil.AssertEqual(t, calls[0].Code, "def solve():\n\treturn 1")
}

func TestGuardrailDoesNotBlockSubmission(t *testing.T) {
	f := newFixture(t, "def solve(a):\n    print(a)\n", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		return passedBody(), nil
	})

	f.ctrl.Submit(context.Background())

	testutil.AssertEqual(t, f.advisor.messages, []string{"Use return instead of print() inside solve()"})
	testutil.AssertEqual(t, len(f.transport.Calls()), 1)
}

func TestSubmitWhileInFlightIsNoop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, "def solve():\n    return 1\n", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		close(entered)
		<-release
		return passedBody(), nil
	})

	done := make(chan bool)
	go func() {
		done <- f.ctrl.Submit(context.Background())
	}()
	<-entered

	testutil.AssertEqual(t, f.ctrl.State(), InFlight)
	enabled, label := f.affordance.snapshot()
	testutil.AssertFalse(t, enabled, "affordance should be disabled while in flight")
	testutil.AssertEqual(t, label, RunningLabel)

	for i := 0; i < 3; i++ {
		testutil.AssertFalse(t, f.ctrl.Submit(context.Background()), "second submit must be a no-op")
	}
	testutil.AssertEqual(t, len(f.transport.Calls()), 1)
	testutil.AssertEqual(t, f.ctrl.State(), InFlight)

	close(release)
	select {
	case ran := <-done:
		testutil.AssertTrue(t, ran, "first submit should have run")
	case <-time.After(5 * time.Second):
		t.Fatal("submit did not finish")
	}
	testutil.AssertEqual(t, f.renderer.events, []string{"pending", "render"})
	f.assertIdle(t)

	// idle again, so the next trigger goes through
	f.transport.run = func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		return passedBody(), nil
	}
	testutil.AssertTrue(t, f.ctrl.Submit(context.Background()), "submit after settle should run")
	testutil.AssertEqual(t, len(f.transport.Calls()), 2)
}

func TestConcurrentTriggersNeverOverlap(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	f := newFixture(t, "def solve():\n    return 1\n", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return passedBody(), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.ctrl.Submit(context.Background())
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, maxActive, 1)
	f.assertIdle(t)
}

func TestResetMidSubmissionKeepsPayload(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, "def solve(a, b):\n    return a - b\n", func(ctx context.Context, req api.RunRequest) (result.RawResponse, error) {
		close(entered)
		<-release
		return passedBody(), nil
	})

	done := make(chan struct{})
	go func() {
		f.ctrl.Submit(context.Background())
		close(done)
	}()
	<-entered

	if err := f.ctrl.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	testutil.AssertEqual(t, f.ctrl.State(), InFlight)
	current, _ := f.buffer.Value()
	testutil.AssertEqual(t, current, f.ctrl.Seed())
	testutil.AssertEqual(t, f.buffer.FocusCount(), 1)

	close(release)
	<-done
	testutil.AssertEqual(t, f.transport.Calls()[0].Code, "def solve(a, b):\n    return a - b\n")
	f.assertIdle(t)
}

type failingEditor struct {
	editor.Buffer
}

func (e *failingEditor) Value() (string, error) {
	return "", appErr.New(appErr.EditorUnavailable)
}

func TestSubmitEditorReadFailure(t *testing.T) {
	transport := &fakeTransport{}
	renderer := &fakeRenderer{}
	ctrl, err := NewController(Config{
		Editor:    &failingEditor{},
		Transport: transport,
		Renderer:  renderer,
		ProblemID: "p",
	})
	if err != nil {
		t.Fatalf("new controller failed: %v", err)
	}

	ctrl.Submit(context.Background())

	testutil.AssertEqual(t, len(transport.Calls()), 0)
	testutil.AssertEqual(t, renderer.events, []string{"pending", "system-error"})
	testutil.AssertEqual(t, ctrl.State(), Idle)
}

func TestStateString(t *testing.T) {
	testutil.AssertEqual(t, Idle.String(), "Idle")
	testutil.AssertEqual(t, InFlight.String(), "InFlight")
	testutil.AssertEqual(t, State(9).String(), "State(9)")
}
