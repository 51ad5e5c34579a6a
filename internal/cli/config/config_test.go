package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"solvebox/pkg/testutil"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	testutil.AssertEqual(t, cfg.BaseURL, DefaultBaseURL)
	testutil.AssertEqual(t, cfg.Timeout, DefaultTimeout)
	testutil.AssertEqual(t, cfg.StatePath, DefaultStatePath)
	testutil.AssertEqual(t, cfg.Logger.OutputPath, DefaultLogPath)
	testutil.AssertTrue(t, *cfg.Color, "color should default to on")
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	content := []byte(`baseURL: http://judge.local:8080
timeout: 5s
problemID: day2_reverse
formatter: "ruff format -"
color: false
logger:
  level: debug
  format: json
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	testutil.AssertEqual(t, cfg.BaseURL, "http://judge.local:8080")
	testutil.AssertEqual(t, cfg.Timeout, 5*time.Second)
	testutil.AssertEqual(t, cfg.ProblemID, "day2_reverse")
	testutil.AssertEqual(t, cfg.Formatter, "ruff format -")
	testutil.AssertFalse(t, *cfg.Color, "color should be off")
	testutil.AssertEqual(t, cfg.Logger.Level, "debug")
	testutil.AssertEqual(t, cfg.Logger.Format, "json")
	testutil.AssertEqual(t, cfg.WorkDir, DefaultWorkDir)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("timeout: [oops"), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
