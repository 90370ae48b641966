// Package flow decides the next workflow action from the state document.
//
// The dispatcher walks phases and steps in canonical order and returns one
// of four decision kinds: run a step, wait at an approval gate, report a
// blocked workflow, or declare the project complete. Detection is a pure
// function over the document; it never mutates state.
//
// The phase/step chain can be driven by the hardcoded defaults
// ([DetectNext]) or by a pipeline manifest ([NewDetector] with
// [LoadPipeline]) for customized workflows.
package flow

import (
	"errors"
	"fmt"

	"nvst/internal/state"
)

// Sentinel errors for flow detection.
var (
	// ErrUnknownStatus indicates a status value in the state document is
	// not recognized. Callers should report this as an error; it likely
	// means the file was hand-edited.
	ErrUnknownStatus = errors.New("unknown status value")

	// ErrUnknownPhase indicates the pipeline references a phase that is
	// missing from the state document.
	ErrUnknownPhase = errors.New("phase not present in state document")
)

// Kind classifies a flow decision.
type Kind string

const (
	// KindRunStep means a step is ready to execute.
	KindRunStep Kind = "run-step"

	// KindApprovalGate means the next step is waiting on human approval.
	KindApprovalGate Kind = "approval-gate"

	// KindBlocked means a step has failed and the workflow cannot proceed.
	KindBlocked Kind = "blocked"

	// KindComplete means every phase has finished.
	KindComplete Kind = "complete"
)

// Decision is the outcome of walking the state document.
type Decision struct {
	// Kind classifies the decision.
	Kind Kind `json:"kind"`

	// Phase and Step identify the subject of run-step, approval-gate,
	// and blocked decisions. Empty for complete.
	Phase state.Phase `json:"phase,omitempty"`
	Step  string      `json:"step,omitempty"`

	// Reason is the failure message for blocked decisions.
	Reason string `json:"reason,omitempty"`
}

// Detector walks a state document using a configurable pipeline.
//
// Create with [NewDetector]; the zero value is not usable. For the default
// chain use the package-level [DetectNext].
type Detector struct {
	pipeline *Pipeline
}

// NewDetector creates a [Detector] for the given pipeline.
func NewDetector(p *Pipeline) *Detector {
	return &Detector{pipeline: p}
}

// DetectNext returns the next flow decision for the document.
//
// Phases are scanned in pipeline order; within the first unfinished phase
// the steps are scanned in order. The first actionable step decides:
// failed yields blocked, created/pending_approval yields approval-gate,
// pending/in_progress yields run-step. When every phase is completed the
// decision is complete.
//
// Returns [ErrUnknownStatus] for unrecognized status values and
// [ErrUnknownPhase] when the pipeline names a phase the document lacks.
func (d *Detector) DetectNext(doc *state.Document) (Decision, error) {
	for _, phase := range d.pipeline.Phases {
		ps, ok := doc.Phases[phase.Name]
		if !ok {
			return Decision{}, fmt.Errorf("%w: %s", ErrUnknownPhase, phase.Name)
		}
		if ps.Status == state.StatusCompleted {
			continue
		}

		for _, step := range phase.Steps {
			st, ok := ps.Steps[step]
			if !ok {
				// Step added to the pipeline after init: treat as pending.
				return Decision{Kind: KindRunStep, Phase: phase.Name, Step: step}, nil
			}

			switch st.Status {
			case state.StatusCompleted, state.StatusApproved:
				continue
			case state.StatusFailed:
				reason := st.Error
				if reason == "" {
					reason = fmt.Sprintf("step %s/%s failed", phase.Name, step)
				}
				return Decision{Kind: KindBlocked, Phase: phase.Name, Step: step, Reason: reason}, nil
			case state.StatusPendingApproval, state.StatusCreated:
				return Decision{Kind: KindApprovalGate, Phase: phase.Name, Step: step}, nil
			case state.StatusPending, state.StatusInProgress:
				return Decision{Kind: KindRunStep, Phase: phase.Name, Step: step}, nil
			default:
				return Decision{}, fmt.Errorf("%w: %q on step %s/%s", ErrUnknownStatus, st.Status, phase.Name, step)
			}
		}

		// Every step terminal but the phase was not marked completed:
		// treat the phase as done and move on.
	}

	return Decision{Kind: KindComplete}, nil
}

// UnknownStatusStep locates the first step in pipeline order whose status
// is not a recognized value. Used by the advisor fallback to tell the
// agent which step it is asking about.
func (d *Detector) UnknownStatusStep(doc *state.Document) (state.Phase, string, state.Status, bool) {
	for _, phase := range d.pipeline.Phases {
		ps, ok := doc.Phases[phase.Name]
		if !ok {
			continue
		}
		for _, step := range phase.Steps {
			st, ok := ps.Steps[step]
			if !ok {
				continue
			}
			if !st.Status.IsValid() {
				return phase.Name, step, st.Status, true
			}
		}
	}
	return "", "", "", false
}

// defaultDetector backs the package-level DetectNext.
var defaultDetector = NewDetector(DefaultPipeline())

// DetectNext returns the next flow decision using the default pipeline.
//
// For manifest-driven pipelines create a [Detector] with [NewDetector].
func DetectNext(doc *state.Document) (Decision, error) {
	return defaultDetector.DetectNext(doc)
}
