package state

import (
	"os"
	"path/filepath"
	"testing"

	"solvebox/pkg/testutil"
)

func TestLoadMissing(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	testutil.AssertEqual(t, st.ProblemID, "")
}

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	if err := Save(path, WorkspaceState{ProblemID: "day3_fizz", BaseURL: "http://x"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	st, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	testutil.AssertEqual(t, st.ProblemID, "day3_fizz")
	testutil.AssertEqual(t, st.BaseURL, "http://x")
	testutil.AssertFalse(t, st.UpdatedAt.IsZero(), "timestamp should be stamped")

	if err := Clear(path); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("state file should be removed, stat err = %v", err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("clearing twice should succeed: %v", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
