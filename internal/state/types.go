// Package state reads and writes the per-project workflow state document.
//
// The state document is a single JSON file (default .nvst/state.json)
// holding the status of every phase and step of the agent-driven workflow.
// Phase commands overwrite status fields; there is no transition engine
// beyond the enumerated values and the flow dispatcher that reads them.
//
// Key types:
//   - [Document] is the root state structure
//   - [Store] reads and writes documents through an afero filesystem
//   - [Status], [Phase] are the enumerated status and phase names
package state

import "time"

// Status is the lifecycle status of a phase or step.
type Status string

const (
	StatusPending         Status = "pending"
	StatusInProgress      Status = "in_progress"
	StatusPendingApproval Status = "pending_approval"
	StatusCreated         Status = "created"
	StatusApproved        Status = "approved"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// validStatuses is the full step-status set. Phases use the same values
// minus created/approved.
var validStatuses = map[Status]bool{
	StatusPending:         true,
	StatusInProgress:      true,
	StatusPendingApproval: true,
	StatusCreated:         true,
	StatusApproved:        true,
	StatusCompleted:       true,
	StatusFailed:          true,
}

// IsValid reports whether s is a recognized step status.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal reports whether s is a finished state for a step.
// Approved counts as terminal: an approved artifact needs no further work.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusApproved || s == StatusFailed
}

// Phase is a top-level stage of the workflow.
type Phase string

const (
	PhaseDefine    Phase = "define"
	PhasePrototype Phase = "prototype"
	PhaseTest      Phase = "test"
	PhaseRefactor  Phase = "refactor"
)

// PhaseOrder is the canonical execution order of phases.
var PhaseOrder = []Phase{PhaseDefine, PhasePrototype, PhaseTest, PhaseRefactor}

// PhaseSteps maps each phase to its steps in canonical execution order.
var PhaseSteps = map[Phase][]string{
	PhaseDefine:    {"prd", "approve"},
	PhasePrototype: {"scaffold", "implement"},
	PhaseTest:      {"plan", "run", "fix"},
	PhaseRefactor:  {"review", "apply", "finalize"},
}

// StepState is the persisted state of a single workflow step.
type StepState struct {
	// Status is the current step status.
	Status Status `json:"status"`

	// Artifact is the path of the JSON/Markdown artifact this step
	// produced, if any (e.g., docs/prd.json for define/prd).
	Artifact string `json:"artifact,omitempty"`

	// Attempts counts how many times the step has been executed.
	// Used by the bounded retry in test/fix.
	Attempts int `json:"attempts,omitempty"`

	// Error holds the failure message when Status is failed.
	Error string `json:"error,omitempty"`
}

// PhaseState is the persisted state of a phase and its steps.
type PhaseState struct {
	Status Status                `json:"status"`
	Steps  map[string]*StepState `json:"steps"`
}

// Document is the root of the per-project state file.
type Document struct {
	// Version is the state document schema version. Currently 1.
	Version int `json:"version"`

	// Project is the project name recorded at init time.
	Project string `json:"project"`

	// Agent is the default agent provider for this project, if pinned.
	Agent string `json:"agent,omitempty"`

	// Phases maps phase name to its state. All four phases are always
	// present; nvst init seeds them as pending.
	Phases map[Phase]*PhaseState `json:"phases"`

	// UpdatedAt is bumped on every write.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocument creates a fresh state document with every phase and step
// pending.
func NewDocument(project string) *Document {
	doc := &Document{
		Version: 1,
		Project: project,
		Phases:  make(map[Phase]*PhaseState, len(PhaseOrder)),
	}
	for _, phase := range PhaseOrder {
		ps := &PhaseState{
			Status: StatusPending,
			Steps:  make(map[string]*StepState, len(PhaseSteps[phase])),
		}
		for _, step := range PhaseSteps[phase] {
			ps.Steps[step] = &StepState{Status: StatusPending}
		}
		doc.Phases[phase] = ps
	}
	return doc
}

// Step returns the state for a phase/step pair, or nil if either is absent.
func (d *Document) Step(phase Phase, step string) *StepState {
	ps, ok := d.Phases[phase]
	if !ok {
		return nil
	}
	return ps.Steps[step]
}

// RecomputePhaseStatus derives a phase's status from its steps and stores it.
//
// The roll-up rules, in priority order: any failed step fails the phase;
// all steps terminal (completed or approved) completes it; a step waiting
// on approval (pending_approval or created) marks the phase
// pending_approval; any step past pending marks it in_progress; otherwise
// the phase is pending.
func (d *Document) RecomputePhaseStatus(phase Phase) {
	ps, ok := d.Phases[phase]
	if !ok {
		return
	}

	allDone := true
	started := false
	awaitingApproval := false
	for _, step := range PhaseSteps[phase] {
		st, ok := ps.Steps[step]
		if !ok {
			continue
		}
		switch st.Status {
		case StatusFailed:
			ps.Status = StatusFailed
			return
		case StatusCompleted, StatusApproved:
			started = true
		case StatusPendingApproval, StatusCreated:
			awaitingApproval = true
			allDone = false
		case StatusInProgress:
			started = true
			allDone = false
		default:
			allDone = false
		}
	}

	switch {
	case allDone:
		ps.Status = StatusCompleted
	case awaitingApproval:
		ps.Status = StatusPendingApproval
	case started:
		ps.Status = StatusInProgress
	default:
		ps.Status = StatusPending
	}
}
