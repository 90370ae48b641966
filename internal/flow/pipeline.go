package flow

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"nvst/internal/state"
)

// PipelinePhase is one phase entry in a pipeline manifest.
type PipelinePhase struct {
	// Name is the phase name, matching a key in the state document.
	Name state.Phase `yaml:"name"`

	// Steps are the step names in execution order.
	Steps []string `yaml:"steps"`
}

// Pipeline is the ordered phase/step chain the detector walks.
//
// The default pipeline mirrors [state.PhaseOrder] and [state.PhaseSteps].
// A project can override it with a pipeline manifest (typically
// .nvst/pipeline.yaml) to add, remove, or reorder steps.
type Pipeline struct {
	Phases []PipelinePhase `yaml:"phases"`
}

// DefaultPipeline returns the hardcoded phase/step chain:
// define(prd, approve) → prototype(scaffold, implement) →
// test(plan, run, fix) → refactor(review, apply, finalize).
func DefaultPipeline() *Pipeline {
	p := &Pipeline{}
	for _, phase := range state.PhaseOrder {
		p.Phases = append(p.Phases, PipelinePhase{
			Name:  phase,
			Steps: append([]string(nil), state.PhaseSteps[phase]...),
		})
	}
	return p
}

// LoadPipeline reads and parses a pipeline manifest YAML file.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline manifest: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline parses a pipeline manifest from YAML bytes.
//
// The expected format:
//
//	phases:
//	  - name: define
//	    steps: [prd, approve]
//	  - name: prototype
//	    steps: [scaffold, implement]
func ParsePipeline(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline manifest: %w", err)
	}

	if len(p.Phases) == 0 {
		return nil, fmt.Errorf("pipeline manifest contains no phases")
	}

	seen := make(map[state.Phase]bool, len(p.Phases))
	for i, phase := range p.Phases {
		if strings.TrimSpace(string(phase.Name)) == "" {
			return nil, fmt.Errorf("pipeline phase at index %d has no name", i)
		}
		if seen[phase.Name] {
			return nil, fmt.Errorf("pipeline phase %s listed twice", phase.Name)
		}
		seen[phase.Name] = true
		if len(phase.Steps) == 0 {
			return nil, fmt.Errorf("pipeline phase %s has no steps", phase.Name)
		}
	}

	return &p, nil
}

// HasStep reports whether the pipeline contains the phase/step pair.
func (p *Pipeline) HasStep(phase state.Phase, step string) bool {
	for _, ph := range p.Phases {
		if ph.Name != phase {
			continue
		}
		for _, s := range ph.Steps {
			if s == step {
				return true
			}
		}
	}
	return false
}

// PhaseNames returns the phase names in pipeline order.
func (p *Pipeline) PhaseNames() []state.Phase {
	names := make([]state.Phase, len(p.Phases))
	for i, ph := range p.Phases {
		names[i] = ph.Name
	}
	return names
}
