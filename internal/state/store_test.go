package state

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func writeDoc(t *testing.T, fs afero.Fs, path string, doc *Document) {
	t.Helper()

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal document: %v", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create state directory: %v", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("failed to write state file: %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	t.Run("env variable takes priority", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		t.Setenv("NVST_STATE_PATH", "/custom/state.json")

		got := ResolvePath(fs, "/project", "explicit.json")
		if got != "/custom/state.json" {
			t.Errorf("ResolvePath = %q, want env override", got)
		}
	})

	t.Run("explicit path beats discovery", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		got := ResolvePath(fs, "/project", "my-state.json")
		if got != "my-state.json" {
			t.Errorf("ResolvePath = %q, want explicit path", got)
		}
	})

	t.Run("discovers canonical path", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		canonical := filepath.Join("/project", DefaultStatePath)
		writeDoc(t, fs, canonical, NewDocument("p"))

		got := ResolvePath(fs, "/project", "")
		if got != canonical {
			t.Errorf("ResolvePath = %q, want %q", got, canonical)
		}
	})

	t.Run("falls back to legacy path", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		legacy := filepath.Join("/project", LegacyStatePath)
		writeDoc(t, fs, legacy, NewDocument("p"))

		got := ResolvePath(fs, "/project", "")
		if got != legacy {
			t.Errorf("ResolvePath = %q, want %q", got, legacy)
		}
	})

	t.Run("defaults to canonical path when nothing exists", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		want := filepath.Join("/project", DefaultStatePath)

		got := ResolvePath(fs, "/project", "")
		if got != want {
			t.Errorf("ResolvePath = %q, want %q", got, want)
		}
	})
}

func TestStoreReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/project")

	doc := NewDocument("demo")
	if err := store.Write(doc); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if doc.UpdatedAt.IsZero() {
		t.Error("Write should set UpdatedAt")
	}

	got, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Project != "demo" {
		t.Errorf("Project = %q, want %q", got.Project, "demo")
	}
	if len(got.Phases) != len(PhaseOrder) {
		t.Errorf("Phases = %d, want %d", len(got.Phases), len(PhaseOrder))
	}
	for _, phase := range PhaseOrder {
		ps, ok := got.Phases[phase]
		if !ok {
			t.Fatalf("missing phase %s", phase)
		}
		if ps.Status != StatusPending {
			t.Errorf("phase %s status = %s, want pending", phase, ps.Status)
		}
		if len(ps.Steps) != len(PhaseSteps[phase]) {
			t.Errorf("phase %s has %d steps, want %d", phase, len(ps.Steps), len(PhaseSteps[phase]))
		}
	}

	// No temp file left behind after an atomic write.
	if _, err := fs.Stat(store.Path() + ".tmp"); err == nil {
		t.Error("temp file left behind after Write")
	}
}

func TestStoreReadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		store := NewStore(afero.NewMemMapFs(), "/project")
		if _, err := store.Read(); err == nil {
			t.Error("Read should fail for missing file")
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		path := filepath.Join("/project", DefaultStatePath)
		fs.MkdirAll(filepath.Dir(path), 0o755)
		afero.WriteFile(fs, path, []byte("{not json"), 0o644)

		store := NewStore(fs, "/project")
		if _, err := store.Read(); err == nil {
			t.Error("Read should fail for malformed JSON")
		}
	})
}

func TestSetStepStatus(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/project")
	if err := store.Write(NewDocument("demo")); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	if err := store.SetStepStatus(PhaseDefine, "prd", StatusInProgress); err != nil {
		t.Fatalf("SetStepStatus failed: %v", err)
	}

	got, err := store.GetStepStatus(PhaseDefine, "prd")
	if err != nil {
		t.Fatalf("GetStepStatus failed: %v", err)
	}
	if got != StatusInProgress {
		t.Errorf("step status = %s, want in_progress", got)
	}

	doc, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if doc.Phases[PhaseDefine].Status != StatusInProgress {
		t.Errorf("phase status = %s, want in_progress roll-up", doc.Phases[PhaseDefine].Status)
	}
}

func TestSetStepStatusValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/project")
	if err := store.Write(NewDocument("demo")); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	if err := store.SetStepStatus(PhaseDefine, "prd", Status("bogus")); err == nil {
		t.Error("SetStepStatus should reject invalid status")
	}
	if err := store.SetStepStatus(PhaseDefine, "nope", StatusCompleted); err == nil {
		t.Error("SetStepStatus should reject unknown step")
	}
	if err := store.SetStepStatus(Phase("ship"), "prd", StatusCompleted); err == nil {
		t.Error("SetStepStatus should reject unknown phase")
	}
}

func TestIncrementAttempts(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/project")
	if err := store.Write(NewDocument("demo")); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := store.IncrementAttempts(PhaseTest, "fix")
		if err != nil {
			t.Fatalf("IncrementAttempts failed: %v", err)
		}
		if got != want {
			t.Errorf("attempts = %d, want %d", got, want)
		}
	}

	doc, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if doc.Step(PhaseTest, "fix").Attempts != 3 {
		t.Errorf("persisted attempts = %d, want 3", doc.Step(PhaseTest, "fix").Attempts)
	}

	if _, err := store.IncrementAttempts(PhaseTest, "nope"); err == nil {
		t.Error("IncrementAttempts should reject unknown step")
	}
}

func TestSetStepResultRecordsError(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/project")
	if err := store.Write(NewDocument("demo")); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	if err := store.SetStepResult(PhaseTest, "run", StatusFailed, "3 tests failing"); err != nil {
		t.Fatalf("SetStepResult failed: %v", err)
	}

	doc, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	st := doc.Step(PhaseTest, "run")
	if st.Status != StatusFailed {
		t.Errorf("step status = %s, want failed", st.Status)
	}
	if st.Error != "3 tests failing" {
		t.Errorf("step error = %q, want failure message", st.Error)
	}
	if doc.Phases[PhaseTest].Status != StatusFailed {
		t.Errorf("phase status = %s, want failed roll-up", doc.Phases[PhaseTest].Status)
	}

	// Moving the step back to pending clears the recorded error.
	if err := store.SetStepStatus(PhaseTest, "run", StatusPending); err != nil {
		t.Fatalf("SetStepStatus failed: %v", err)
	}
	doc, _ = store.Read()
	if doc.Step(PhaseTest, "run").Error != "" {
		t.Error("error message should be cleared on non-failed status")
	}
}
