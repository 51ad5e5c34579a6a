package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"solvebox/internal/cli/config"
	httpclient "solvebox/internal/cli/http"
	"solvebox/internal/cli/repl"
	"solvebox/internal/cli/state"
	"solvebox/internal/playground/editor"
	"solvebox/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override evaluation server URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	problemID := flag.String("problem", "", "Problem to open at startup")
	statePath := flag.String("state", "", "Override workspace state path")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}
	if *noColor {
		falseValue := false
		cfg.Color = &falseValue
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	workspace, err := state.Load(cfg.StatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load workspace state failed: %v\n", err)
		os.Exit(1)
	}
	// Precedence: flag, then remembered state, then config file.
	switch {
	case *baseURL != "":
		cfg.BaseURL = *baseURL
	case workspace.BaseURL != "":
		cfg.BaseURL = workspace.BaseURL
	}
	switch {
	case *problemID != "":
		workspace.ProblemID = *problemID
	case workspace.ProblemID == "":
		workspace.ProblemID = cfg.ProblemID
	}

	var formatter editor.Formatter = editor.Whitespace{}
	if cfg.Formatter != "" {
		cmdFormatter, err := editor.NewCommand(cfg.Formatter, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid formatter command: %v\n", err)
			os.Exit(1)
		}
		formatter = cmdFormatter
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	session, err := repl.New(repl.Options{
		Client:      httpclient.New(cfg.BaseURL, cfg.Timeout),
		Formatter:   formatter,
		WorkDir:     cfg.WorkDir,
		StatePath:   cfg.StatePath,
		Workspace:   workspace,
		HistoryPath: cfg.HistoryPath,
		Color:       *cfg.Color,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start session failed: %v\n", err)
		os.Exit(1)
	}

	logger.Info(ctx, "workbench started", zap.String("base_url", cfg.BaseURL), zap.String("problem_id", workspace.ProblemID))
	if err := session.Run(ctx); err != nil {
		logger.Error(ctx, "session ended with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
}
