package evaluator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	appErr "solvebox/pkg/errors"
)

const (
	DefaultInterpreter    = "python3"
	defaultMaxOutputBytes = 1 << 20
	killGrace             = 500 * time.Millisecond
)

// Execution is the raw outcome of running one harness.
type Execution struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Executor runs a complete program and reports its output.
type Executor interface {
	Execute(ctx context.Context, source string, timeout time.Duration) (Execution, error)
}

// ProcessExecutor writes the program to a temp file and runs the interpreter
// on it in its own process group.
type ProcessExecutor struct {
	interpreter    []string
	tempDir        string
	maxOutputBytes int
}

// NewProcessExecutor creates an executor for interpreter, which may carry
// leading arguments (e.g. ["python3", "-I"]).
func NewProcessExecutor(interpreter []string, tempDir string, maxOutputBytes int) (*ProcessExecutor, error) {
	if len(interpreter) == 0 {
		interpreter = []string{DefaultInterpreter}
	}
	if _, err := exec.LookPath(interpreter[0]); err != nil {
		return nil, appErr.Wrapf(err, appErr.ExecutorError, "interpreter %s not found: %v", interpreter[0], err)
	}
	if maxOutputBytes <= 0 {
		maxOutputBytes = defaultMaxOutputBytes
	}
	return &ProcessExecutor{interpreter: interpreter, tempDir: tempDir, maxOutputBytes: maxOutputBytes}, nil
}

func (e *ProcessExecutor) Execute(ctx context.Context, source string, timeout time.Duration) (Execution, error) {
	var res Execution
	file, err := os.CreateTemp(e.tempDir, "solve-*.py")
	if err != nil {
		return res, appErr.Wrapf(err, appErr.ExecutorError, "create harness file failed: %v", err)
	}
	path := file.Name()
	defer func() { _ = os.Remove(path) }()
	if _, err := file.WriteString(source); err != nil {
		_ = file.Close()
		return res, appErr.Wrapf(err, appErr.ExecutorError, "write harness file failed: %v", err)
	}
	if err := file.Close(); err != nil {
		return res, appErr.Wrapf(err, appErr.ExecutorError, "close harness file failed: %v", err)
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append(append([]string{}, e.interpreter[1:]...), path)
	cmd := exec.CommandContext(runCtx, e.interpreter[0], args...)
	stdout := &limitedBuffer{max: e.maxOutputBytes}
	stderr := &limitedBuffer{max: e.maxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = killGrace
	isolateProcessGroup(cmd)

	start := time.Now()
	waitErr := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if ctx.Err() != nil {
		return res, appErr.Wrapf(ctx.Err(), appErr.ExecutorError, "execution cancelled: %v", ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case errors.Is(waitErr, exec.ErrWaitDelay):
		res.ExitCode = cmd.ProcessState.ExitCode()
	default:
		return res, appErr.Wrapf(waitErr, appErr.ExecutorError, "run interpreter failed: %v", waitErr)
	}
	return res, nil
}

// limitedBuffer keeps the first max bytes and drops the rest.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}

// LimitedExecutor bounds the number of concurrent executions.
type LimitedExecutor struct {
	executor  Executor
	semaphore chan struct{}
}

func NewLimitedExecutor(executor Executor, maxConcurrent int) Executor {
	if maxConcurrent <= 0 {
		return executor
	}
	return &LimitedExecutor{
		executor:  executor,
		semaphore: make(chan struct{}, maxConcurrent),
	}
}

func (d *LimitedExecutor) Execute(ctx context.Context, source string, timeout time.Duration) (Execution, error) {
	select {
	case d.semaphore <- struct{}{}:
	case <-ctx.Done():
		return Execution{}, appErr.Wrapf(ctx.Err(), appErr.ServiceUnavailable, "wait for executor slot failed: %v", ctx.Err())
	}
	defer func() { <-d.semaphore }()
	return d.executor.Execute(ctx, source, timeout)
}
