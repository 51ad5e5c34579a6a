package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"solvebox/pkg/utils/contextkey"

	"go.uber.org/zap"
)

func TestContextFieldsAreAttached(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("new logger failed: %v", err)
	}
	SetGlobal(l)
	defer SetGlobal(nil)

	ctx := context.WithValue(context.Background(), contextkey.TraceID, "trace-1")
	ctx = context.WithValue(ctx, contextkey.ProblemID, "day1_sum")
	Info(ctx, "run finished", zap.Bool("passed", true))

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line failed: %v (%s)", err, buf.String())
	}
	if entry["trace_id"] != "trace-1" {
		t.Errorf("trace_id = %v", entry["trace_id"])
	}
	if entry["problem_id"] != "day1_sum" {
		t.Errorf("problem_id = %v", entry["problem_id"])
	}
	if entry["msg"] != "run finished" {
		t.Errorf("msg = %v", entry["msg"])
	}
}

func TestInvalidLevel(t *testing.T) {
	if _, err := NewWithWriter(Config{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(Config{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("new logger failed: %v", err)
	}
	SetGlobal(l)
	defer SetGlobal(nil)

	Info(context.Background(), "hidden")
	Warn(context.Background(), "shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestHelpersWithoutGlobalAreNoop(t *testing.T) {
	SetGlobal(nil)
	Error(context.Background(), "nothing happens")
	if err := Sync(); err != nil {
		t.Fatalf("sync without logger: %v", err)
	}
}
