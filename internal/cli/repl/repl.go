package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"solvebox/internal/cli/command"
	httpclient "solvebox/internal/cli/http"
	"solvebox/internal/cli/state"
	"solvebox/internal/playground/editor"
	"solvebox/internal/playground/render"
	"solvebox/internal/playground/submit"
	"solvebox/pkg/utils/logger"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"go.uber.org/zap"
)

const defaultEditor = "vi"

// Options configures a Session.
type Options struct {
	Client    *httpclient.Client
	Formatter editor.Formatter
	WorkDir   string
	StatePath string
	Workspace state.WorkspaceState

	HistoryPath string
	Color       bool
	// Out replaces the interactive terminal. Sessions built with Out have no
	// line editor and are driven through Execute.
	Out io.Writer
}

// Session holds REPL state.
type Session struct {
	client    *httpclient.Client
	commands  map[string]command.Command
	formatter editor.Formatter
	workDir   string
	statePath string
	workspace state.WorkspaceState

	rl    *readline.Instance
	term  *render.Terminal
	chord atomic.Bool
	runs  sync.WaitGroup

	mu         sync.Mutex
	controller *submit.Controller
	file       *editor.File
}

func New(opts Options) (*Session, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	s := &Session{
		client:    opts.Client,
		commands:  command.Registry(),
		formatter: opts.Formatter,
		workDir:   opts.WorkDir,
		statePath: opts.StatePath,
		workspace: opts.Workspace,
	}

	out := opts.Out
	if out == nil {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:              s.prompt(submit.RunLabel),
			HistoryFile:         opts.HistoryPath,
			AutoComplete:        s.completer(),
			InterruptPrompt:     "^C",
			EOFPrompt:           "exit",
			FuncFilterInputRune: s.filterInput,
		})
		if err != nil {
			return nil, fmt.Errorf("init line editor failed: %w", err)
		}
		s.rl = rl
		out = rl.Stdout()
	}

	termOpts := []render.Option{render.WithAffordanceHook(s.onAffordance)}
	if !opts.Color {
		termOpts = append(termOpts, render.WithoutColor())
	}
	s.term = render.NewTerminal(out, termOpts...)
	return s, nil
}

// Run reads commands until exit or end of input. Submissions run in the
// background so the prompt stays usable while one is in flight.
func (s *Session) Run(ctx context.Context) error {
	if s.rl == nil {
		return fmt.Errorf("session has no line editor")
	}
	defer func() { _ = s.rl.Close() }()

	if s.workspace.ProblemID != "" {
		if err := s.open(ctx, s.workspace.ProblemID); err != nil {
			s.term.Println("open %s failed: %v", s.workspace.ProblemID, err)
		}
	} else {
		s.term.Println("no problem open, use: problems, then open <problem_id>")
	}

	for {
		line, err := s.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				s.Wait()
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			s.Wait()
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}

		if s.chord.Swap(false) && strings.TrimSpace(line) == "" {
			line = command.Run
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		exit, err := s.Execute(ctx, line)
		if err != nil {
			s.term.Println("error: %v", err)
		}
		if exit {
			s.Wait()
			return nil
		}
	}
}

// Execute runs one command line. It reports whether the session should end.
func (s *Session) Execute(ctx context.Context, line string) (bool, error) {
	inv, err := command.Parse(s.commands, line)
	if err != nil {
		return false, err
	}
	logger.Debug(ctx, "repl command", zap.String("command", inv.Command.Name))

	switch inv.Command.Name {
	case command.Exit:
		s.term.Println("bye")
		return true, nil
	case command.Help:
		s.printHelp()
	case command.Run:
		return false, s.submit(ctx)
	case command.Reset:
		return false, s.reset()
	case command.Format:
		return false, s.format()
	case command.Show:
		return false, s.show()
	case command.Edit:
		return false, s.edit()
	case command.Problems:
		return false, s.listProblems(ctx)
	case command.Open:
		return false, s.open(ctx, inv.Params.Get("id"))
	case command.Set:
		return false, s.set(inv.Subcommand, inv.Params.Get("value"))
	}
	return false, nil
}

// Wait blocks until background submissions have finished.
func (s *Session) Wait() {
	s.runs.Wait()
}

func (s *Session) submit(ctx context.Context) error {
	ctrl, _, err := s.current()
	if err != nil {
		return err
	}
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		if !ctrl.Submit(ctx) {
			s.term.Println("a submission is already running")
		}
	}()
	return nil
}

func (s *Session) reset() error {
	ctrl, _, err := s.current()
	if err != nil {
		return err
	}
	return ctrl.Reset()
}

func (s *Session) format() error {
	_, file, err := s.current()
	if err != nil {
		return err
	}
	if err := file.FormatDocument(); err != nil {
		return err
	}
	s.term.Println("formatted %s", file.Path())
	return nil
}

func (s *Session) show() error {
	_, file, err := s.current()
	if err != nil {
		return err
	}
	code, err := file.Value()
	if err != nil {
		return err
	}
	s.term.Println("%s", strings.TrimRight(code, "\n"))
	return nil
}

func (s *Session) edit() error {
	_, file, err := s.current()
	if err != nil {
		return err
	}
	line := os.Getenv("VISUAL")
	if line == "" {
		line = os.Getenv("EDITOR")
	}
	if line == "" {
		line = defaultEditor
	}
	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		return fmt.Errorf("invalid editor command %q", line)
	}
	args = append(args, file.Path())
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor exited: %w", err)
	}
	return nil
}

func (s *Session) listProblems(ctx context.Context) error {
	days, err := s.client.FetchIndex(ctx)
	if err != nil {
		return err
	}
	solved := map[string]bool{}
	if progress, err := s.client.FetchProgress(ctx); err != nil {
		logger.Warn(ctx, "fetch progress failed", zap.Error(err))
	} else {
		for _, id := range progress.Solved {
			solved[id] = true
		}
	}
	if len(days) == 0 {
		s.term.Println("no problems available")
		return nil
	}
	for _, day := range days {
		s.term.Println("%s", day.Day)
		for _, p := range day.Problems {
			mark := " "
			if solved[p.ID] {
				mark = "x"
			}
			s.term.Println("  [%s] %-24s %s", mark, p.ID, p.Title)
		}
	}
	return nil
}

// open loads a problem and reseeds its working file. It is refused while a
// submission is in flight.
func (s *Session) open(ctx context.Context, problemID string) error {
	s.mu.Lock()
	prev := s.controller
	s.mu.Unlock()
	if prev != nil && prev.State() != submit.Idle {
		return fmt.Errorf("a submission is running, wait for it to finish")
	}

	view, err := s.client.FetchProblem(ctx, problemID)
	if err != nil {
		return err
	}
	file := editor.NewFile(filepath.Join(s.workDir, fileName(view.ID)), s.formatter, func(path string) {
		s.term.Println("starter code restored in %s", path)
	})
	if err := file.SetValue(view.StarterCode); err != nil {
		return err
	}
	ctrl, err := submit.NewController(submit.Config{
		Editor:     file,
		Transport:  s.client,
		Renderer:   s.term,
		Affordance: s.term,
		Advisor:    s.term,
		ProblemID:  view.ID,
		Seed:       view.StarterCode,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.controller = ctrl
	s.file = file
	s.mu.Unlock()
	s.refreshPrompt(submit.RunLabel)

	s.workspace.ProblemID = view.ID
	s.workspace.UpdatedAt = time.Now().UTC()
	if err := state.Save(s.statePath, s.workspace); err != nil {
		logger.Warn(ctx, "save workspace state failed", zap.Error(err))
	}

	solved := ""
	if view.Solved {
		solved = " (solved)"
	}
	s.term.Println("%s%s", view.Title, solved)
	if view.Description != "" {
		s.term.Println("%s", view.Description)
	}
	s.term.Println("working file: %s", file.Path())
	return nil
}

func (s *Session) set(option, value string) error {
	switch option {
	case "base":
		s.client.SetBaseURL(value)
		s.workspace.BaseURL = value
		if err := state.Save(s.statePath, s.workspace); err != nil {
			return err
		}
		s.term.Println("base set to %s", value)
	case "timeout":
		d, err := command.ParseDuration(value)
		if err != nil {
			return err
		}
		s.client.SetTimeout(d)
		s.term.Println("timeout set to %s", d)
	default:
		return fmt.Errorf("unknown set option: %s", option)
	}
	return nil
}

func (s *Session) current() (*submit.Controller, *editor.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller == nil {
		return nil, nil, fmt.Errorf("no problem open, use: open <problem_id>")
	}
	return s.controller, s.file, nil
}

// filterInput maps Ctrl+J to Enter and remembers the chord so an empty line
// submits.
func (s *Session) filterInput(r rune) (rune, bool) {
	if r == readline.CharCtrlJ {
		s.chord.Store(true)
		return readline.CharEnter, true
	}
	return r, true
}

func (s *Session) onAffordance(enabled bool, label string) {
	s.refreshPrompt(label)
}

func (s *Session) refreshPrompt(label string) {
	if s.rl == nil {
		return
	}
	s.rl.SetPrompt(s.prompt(label))
	s.rl.Refresh()
}

func (s *Session) prompt(label string) string {
	s.mu.Lock()
	problemID := ""
	if s.controller != nil {
		problemID = s.controller.ProblemID()
	}
	s.mu.Unlock()
	if problemID == "" {
		return "solvebox> "
	}
	return fmt.Sprintf("solvebox [%s] %s> ", problemID, label)
}

func (s *Session) completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(s.commands))
	for _, name := range command.Names(s.commands) {
		if name == command.Set {
			items = append(items, readline.PcItem(name, readline.PcItem("base"), readline.PcItem("timeout")))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Session) printHelp() {
	s.term.Println("commands:")
	for _, name := range command.Names(s.commands) {
		cmd := s.commands[name]
		s.term.Println("  %-28s %s", cmd.Usage(), cmd.Summary)
	}
	s.term.Println("Ctrl+J on an empty line submits the current code.")
}

func fileName(problemID string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, problemID)
	return clean + ".py"
}
