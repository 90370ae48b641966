package flow

import (
	"errors"
	"testing"

	"nvst/internal/state"
)

// docWith returns a fresh document with the given step statuses applied.
func docWith(t *testing.T, overrides map[string]state.Status) *state.Document {
	t.Helper()

	doc := state.NewDocument("demo")
	for key, s := range overrides {
		var phase state.Phase
		var step string
		for _, p := range state.PhaseOrder {
			for _, st := range state.PhaseSteps[p] {
				if string(p)+"/"+st == key {
					phase, step = p, st
				}
			}
		}
		if phase == "" {
			t.Fatalf("unknown step key %q", key)
		}
		doc.Phases[phase].Steps[step].Status = s
		doc.RecomputePhaseStatus(phase)
	}
	return doc
}

func TestDetectNext(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]state.Status
		want      Decision
	}{
		{
			name:      "fresh document starts at define/prd",
			overrides: nil,
			want:      Decision{Kind: KindRunStep, Phase: state.PhaseDefine, Step: "prd"},
		},
		{
			name:      "in progress step is re-run",
			overrides: map[string]state.Status{"define/prd": state.StatusInProgress},
			want:      Decision{Kind: KindRunStep, Phase: state.PhaseDefine, Step: "prd"},
		},
		{
			name:      "created artifact gates on approval",
			overrides: map[string]state.Status{"define/prd": state.StatusCreated},
			want:      Decision{Kind: KindApprovalGate, Phase: state.PhaseDefine, Step: "prd"},
		},
		{
			name: "pending approval step gates",
			overrides: map[string]state.Status{
				"define/prd":     state.StatusCompleted,
				"define/approve": state.StatusPendingApproval,
			},
			want: Decision{Kind: KindApprovalGate, Phase: state.PhaseDefine, Step: "approve"},
		},
		{
			name: "approved artifact advances to next phase",
			overrides: map[string]state.Status{
				"define/prd":     state.StatusApproved,
				"define/approve": state.StatusCompleted,
			},
			want: Decision{Kind: KindRunStep, Phase: state.PhasePrototype, Step: "scaffold"},
		},
		{
			name: "failed step blocks",
			overrides: map[string]state.Status{
				"define/prd":          state.StatusCompleted,
				"define/approve":      state.StatusCompleted,
				"prototype/scaffold":  state.StatusCompleted,
				"prototype/implement": state.StatusFailed,
			},
			want: Decision{
				Kind:   KindBlocked,
				Phase:  state.PhasePrototype,
				Step:   "implement",
				Reason: "step prototype/implement failed",
			},
		},
		{
			name: "mid-pipeline run step",
			overrides: map[string]state.Status{
				"define/prd":          state.StatusCompleted,
				"define/approve":      state.StatusCompleted,
				"prototype/scaffold":  state.StatusCompleted,
				"prototype/implement": state.StatusCompleted,
				"test/plan":           state.StatusCompleted,
			},
			want: Decision{Kind: KindRunStep, Phase: state.PhaseTest, Step: "run"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := docWith(t, tt.overrides)

			got, err := DetectNext(doc)
			if err != nil {
				t.Fatalf("DetectNext returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectNext = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetectNextComplete(t *testing.T) {
	doc := state.NewDocument("demo")
	for _, phase := range state.PhaseOrder {
		for _, step := range state.PhaseSteps[phase] {
			doc.Phases[phase].Steps[step].Status = state.StatusCompleted
		}
		doc.RecomputePhaseStatus(phase)
	}

	got, err := DetectNext(doc)
	if err != nil {
		t.Fatalf("DetectNext returned error: %v", err)
	}
	if got.Kind != KindComplete {
		t.Errorf("DetectNext kind = %s, want complete", got.Kind)
	}
}

func TestDetectNextBlockedReasonFromStepError(t *testing.T) {
	doc := state.NewDocument("demo")
	doc.Phases[state.PhaseDefine].Steps["prd"].Status = state.StatusFailed
	doc.Phases[state.PhaseDefine].Steps["prd"].Error = "agent exited with code 2"
	doc.RecomputePhaseStatus(state.PhaseDefine)

	got, err := DetectNext(doc)
	if err != nil {
		t.Fatalf("DetectNext returned error: %v", err)
	}
	if got.Kind != KindBlocked {
		t.Fatalf("DetectNext kind = %s, want blocked", got.Kind)
	}
	if got.Reason != "agent exited with code 2" {
		t.Errorf("Reason = %q, want step error message", got.Reason)
	}
}

func TestDetectNextUnknownStatus(t *testing.T) {
	doc := state.NewDocument("demo")
	doc.Phases[state.PhaseDefine].Steps["prd"].Status = state.Status("weird")

	_, err := DetectNext(doc)
	if !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("DetectNext err = %v, want ErrUnknownStatus", err)
	}
}

func TestDetectorCustomPipeline(t *testing.T) {
	p, err := ParsePipeline([]byte(`
phases:
  - name: define
    steps: [prd]
  - name: test
    steps: [plan, run]
`))
	if err != nil {
		t.Fatalf("ParsePipeline failed: %v", err)
	}
	d := NewDetector(p)

	doc := state.NewDocument("demo")
	doc.Phases[state.PhaseDefine].Steps["prd"].Status = state.StatusApproved
	doc.RecomputePhaseStatus(state.PhaseDefine)

	got, err := d.DetectNext(doc)
	if err != nil {
		t.Fatalf("DetectNext returned error: %v", err)
	}
	// approve, prototype and refactor are not in this pipeline; the
	// detector jumps straight to test/plan.
	want := Decision{Kind: KindRunStep, Phase: state.PhaseTest, Step: "plan"}
	if got != want {
		t.Errorf("DetectNext = %+v, want %+v", got, want)
	}
}

func TestDetectorMissingPhase(t *testing.T) {
	p, err := ParsePipeline([]byte("phases:\n  - name: ship\n    steps: [deploy]\n"))
	if err != nil {
		t.Fatalf("ParsePipeline failed: %v", err)
	}

	_, err = NewDetector(p).DetectNext(state.NewDocument("demo"))
	if !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("DetectNext err = %v, want ErrUnknownPhase", err)
	}
}
