// Package advisor provides a fallback routing mechanism that asks the
// agent which step to run when the flow dispatcher cannot decide.
//
// This is a last resort for edge cases such as unknown status values in a
// hand-edited state document. The primary routing path remains
// [nvst/internal/flow].
//
// Key types:
//   - [Advisor] resolves an undecidable state to a step recommendation
//   - [AgentAdvisor] is the production implementation using the agent CLI
//   - [MockAdvisor] is a test implementation with configurable responses
package advisor

import (
	"context"
	"fmt"
	"strings"

	"nvst/internal/agent"
	"nvst/internal/state"
)

// Recommendation is the result of an advisor resolution.
type Recommendation struct {
	// Phase and Step identify the recommended step.
	Phase state.Phase
	Step  string
}

// Advisor resolves undecidable workflow states to step recommendations.
//
// Implementations ask the agent for routing guidance and parse the
// response for a known phase/step pair. Used when [flow.DetectNext]
// returns [flow.ErrUnknownStatus].
type Advisor interface {
	// ResolveStep asks the agent for the next step when a step carries a
	// status the dispatcher does not recognize.
	ResolveStep(ctx context.Context, project string, phase state.Phase, step string, current state.Status) (*Recommendation, error)
}

// AgentAdvisor implements [Advisor] by asking the configured agent.
type AgentAdvisor struct {
	executor agent.Executor
}

// NewAgentAdvisor creates an [AgentAdvisor] backed by executor.
func NewAgentAdvisor(executor agent.Executor) *AgentAdvisor {
	return &AgentAdvisor{executor: executor}
}

// ResolveStep prompts the agent to pick the next step and parses its
// answer. Returns an error if the agent fails or the response names no
// known step.
func (a *AgentAdvisor) ResolveStep(ctx context.Context, project string, phase state.Phase, step string, current state.Status) (*Recommendation, error) {
	prompt := fmt.Sprintf(
		`The workflow state for project %s has step %s/%s in status %q, which is not a standard status. The phases and steps are: %s. Which step should run next? Respond with a single phase/step pair.`,
		project, phase, step, current, strings.Join(stepCatalog(), ", "),
	)

	var responseText strings.Builder
	handler := func(event agent.Event) {
		if event.IsText() {
			responseText.WriteString(event.Text)
		}
	}

	exitCode, err := a.executor.ExecuteWithResult(ctx, prompt, handler, "")
	if err != nil {
		return nil, fmt.Errorf("advisor execution failed: %w", err)
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("advisor returned exit code %d", exitCode)
	}

	return ParseResponse(responseText.String())
}

// ParseResponse extracts a step recommendation from an agent response.
//
// It scans the text for known phase/step pairs in workflow order and
// returns the first match. Returns an error when no known pair appears.
func ParseResponse(response string) (*Recommendation, error) {
	lower := strings.ToLower(response)

	for _, phase := range state.PhaseOrder {
		for _, step := range state.PhaseSteps[phase] {
			if strings.Contains(lower, string(phase)+"/"+step) {
				return &Recommendation{Phase: phase, Step: step}, nil
			}
		}
	}

	return nil, fmt.Errorf("advisor response did not name a recognizable step")
}

func stepCatalog() []string {
	var out []string
	for _, phase := range state.PhaseOrder {
		for _, step := range state.PhaseSteps[phase] {
			out = append(out, string(phase)+"/"+step)
		}
	}
	return out
}

// MockAdvisor implements [Advisor] for testing.
type MockAdvisor struct {
	// Rec is the recommendation to return. If nil and Err is nil,
	// ResolveStep returns an error.
	Rec *Recommendation

	// Err is the error to return from ResolveStep.
	Err error

	// Calls records all ResolveStep invocations for verification.
	Calls []MockCall
}

// MockCall is one recorded ResolveStep invocation.
type MockCall struct {
	Project string
	Phase   state.Phase
	Step    string
	Status  state.Status
}

// ResolveStep returns the pre-configured recommendation or error.
func (m *MockAdvisor) ResolveStep(ctx context.Context, project string, phase state.Phase, step string, current state.Status) (*Recommendation, error) {
	m.Calls = append(m.Calls, MockCall{Project: project, Phase: phase, Step: step, Status: current})

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Rec != nil {
		return m.Rec, nil
	}
	return nil, fmt.Errorf("MockAdvisor: no recommendation or error configured")
}
