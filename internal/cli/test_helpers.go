package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"nvst/internal/agent"
	"nvst/internal/config"
	"nvst/internal/gitops"
	"nvst/internal/output"
	"nvst/internal/state"
)

// testApp bundles an [App] wired with mocks and the buffers capturing
// its output.
type testApp struct {
	App      *App
	Executor *agent.MockExecutor
	Git      *gitops.MockRunner
	Buf      *bytes.Buffer
}

// newTestApp builds an App on an in-memory filesystem with a mock agent
// and git runner. The mock agent succeeds with a short session by default.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	buf := &bytes.Buffer{}
	executor := &agent.MockExecutor{
		Events: []agent.Event{
			{Type: agent.EventTypeSystem, SessionStarted: true},
			{Type: agent.EventTypeAssistant, Text: "done"},
			{Type: agent.EventTypeResult, SessionComplete: true},
		},
	}
	git := &gitops.MockRunner{}

	app := &App{
		Config:   config.DefaultConfig(),
		Fs:       afero.NewMemMapFs(),
		Printer:  output.NewPrinterWithWriter(buf),
		Executor: executor,
		Git:      git,
		Out:      buf,
	}
	return &testApp{App: app, Executor: executor, Git: git, Buf: buf}
}

// seedState writes a fresh state document for the project.
func (ta *testApp) seedState(t *testing.T, project string) *state.Store {
	t.Helper()

	store := state.NewStore(ta.App.Fs, ".")
	if err := store.Write(state.NewDocument(project)); err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}
	return store
}

// setStep force-sets one step status in the seeded document.
func setStep(t *testing.T, store *state.Store, phase state.Phase, step string, st state.Status) {
	t.Helper()

	if err := store.SetStepStatus(phase, step, st); err != nil {
		t.Fatalf("failed to set %s/%s: %v", phase, step, st)
	}
}

// completePhase marks every step of a phase completed.
func completePhase(t *testing.T, store *state.Store, phase state.Phase) {
	t.Helper()

	for _, step := range state.PhaseSteps[phase] {
		setStep(t, store, phase, step, state.StatusCompleted)
	}
}
