package cli

import (
	"fmt"
	"strings"

	"nvst/internal/state"
)

// requireEarlierPhases checks that every phase before the given one is
// completed. --force skips the check.
func (a *App) requireEarlierPhases(phase state.Phase) error {
	if a.Force {
		return nil
	}

	doc, err := a.store().Read()
	if err != nil {
		return err
	}

	for _, p := range state.PhaseOrder {
		if p == phase {
			break
		}
		ps, ok := doc.Phases[p]
		if !ok {
			continue
		}
		if ps.Status != state.StatusCompleted {
			return fmt.Errorf("phase %s is %s; complete it before running %s (--force to override)", p, ps.Status, phase)
		}
	}
	return nil
}

// requireStepStatus checks that a step currently has one of the allowed
// statuses. --force skips the check.
func (a *App) requireStepStatus(phase state.Phase, step string, allowed ...state.Status) error {
	if a.Force {
		return nil
	}

	current, err := a.store().GetStepStatus(phase, step)
	if err != nil {
		return err
	}

	for _, s := range allowed {
		if current == s {
			return nil
		}
	}

	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return fmt.Errorf("step %s/%s is %s, expected %s (--force to override)", phase, step, current, strings.Join(names, " or "))
}
