package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// DefaultStatePath is the canonical location of the state document
// relative to the project root.
const DefaultStatePath = ".nvst/state.json"

// LegacyStatePath is the pre-1.0 root-level location of the state document.
const LegacyStatePath = "nvst-state.json"

// statePaths lists the paths to search (in priority order) when
// auto-discovering the state document.
var statePaths = []string{
	DefaultStatePath,
	LegacyStatePath,
}

// ResolvePath discovers the state document location.
//
// Resolution order:
//  1. NVST_STATE_PATH environment variable (used as-is if set)
//  2. Explicit statePath parameter (if non-empty)
//  3. Auto-discovery: canonical path, then legacy path under basePath
//  4. Falls back to the canonical path (read will error if absent)
//
// The basePath is the project root directory; pass empty string for cwd.
func ResolvePath(fs afero.Fs, basePath, statePath string) string {
	if envPath := os.Getenv("NVST_STATE_PATH"); envPath != "" {
		return envPath
	}

	if statePath != "" {
		return statePath
	}

	for _, p := range statePaths {
		fullPath := filepath.Join(basePath, p)
		if _, err := fs.Stat(fullPath); err == nil {
			return fullPath
		}
	}

	return filepath.Join(basePath, DefaultStatePath)
}

// Store reads and writes the state document at a resolved path.
//
// All filesystem access goes through afero so tests can run against an
// in-memory filesystem. Use [NewStore] for auto-discovery or
// [NewStoreWithPath] for an explicit path.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a [Store] that auto-discovers the state document under
// basePath. Pass an empty basePath to use the current working directory.
func NewStore(fs afero.Fs, basePath string) *Store {
	return &Store{fs: fs, path: ResolvePath(fs, basePath, "")}
}

// NewStoreWithPath creates a [Store] using the given state document path.
// The NVST_STATE_PATH environment variable still takes priority if set.
func NewStoreWithPath(fs afero.Fs, basePath, statePath string) *Store {
	return &Store{fs: fs, path: ResolvePath(fs, basePath, statePath)}
}

// Path returns the resolved state document path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the state document is present on disk.
func (s *Store) Exists() bool {
	_, err := s.fs.Stat(s.path)
	return err == nil
}

// Read reads and parses the state document.
func (s *Store) Read() (*Document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state document: %w", err)
	}

	return &doc, nil
}

// Write persists the document atomically (write to temp, then rename),
// bumping UpdatedAt. Parent directories are created as needed.
func (s *Store) Write(doc *Document) error {
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state document: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state document: %w", err)
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to write state document: %w", err)
	}

	return nil
}

// Update reads the document, applies fn, and writes the result back.
func (s *Store) Update(fn func(*Document) error) error {
	doc, err := s.Read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.Write(doc)
}

// GetStepStatus returns the status of a phase/step pair.
func (s *Store) GetStepStatus(phase Phase, step string) (Status, error) {
	doc, err := s.Read()
	if err != nil {
		return "", err
	}
	st := doc.Step(phase, step)
	if st == nil {
		return "", fmt.Errorf("step not found: %s/%s", phase, step)
	}
	return st.Status, nil
}

// SetStepStatus overwrites the status of a phase/step pair and recomputes
// the owning phase's status.
//
// The step's error message is cleared unless the new status is failed.
func (s *Store) SetStepStatus(phase Phase, step string, newStatus Status) error {
	return s.SetStepResult(phase, step, newStatus, "")
}

// IncrementAttempts bumps the attempt counter of a phase/step pair and
// returns the new count.
func (s *Store) IncrementAttempts(phase Phase, step string) (int, error) {
	var attempts int
	err := s.Update(func(doc *Document) error {
		st := doc.Step(phase, step)
		if st == nil {
			return fmt.Errorf("step not found: %s/%s", phase, step)
		}
		st.Attempts++
		attempts = st.Attempts
		return nil
	})
	return attempts, err
}

// SetStepResult overwrites the status of a phase/step pair, recording a
// failure message for failed statuses.
func (s *Store) SetStepResult(phase Phase, step string, newStatus Status, errMsg string) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("invalid status: %s", newStatus)
	}

	return s.Update(func(doc *Document) error {
		st := doc.Step(phase, step)
		if st == nil {
			return fmt.Errorf("step not found: %s/%s", phase, step)
		}
		st.Status = newStatus
		if newStatus == StatusFailed {
			st.Error = errMsg
		} else {
			st.Error = ""
		}
		doc.RecomputePhaseStatus(phase)
		return nil
	})
}
