// Package workflow executes individual workflow steps through an agent.
//
// The [Runner] expands the configured prompt for a step, spawns the agent
// through an [agent.Executor], and renders the event stream with an
// [output.Printer]. It knows nothing about ordering or state; the
// lifecycle package drives it and records outcomes.
package workflow

import (
	"context"
	"time"

	"nvst/internal/agent"
	"nvst/internal/config"
	"nvst/internal/output"
)

// Runner executes single agent sessions for workflow steps.
type Runner struct {
	executor agent.Executor
	printer  *output.Printer
	cfg      *config.Config

	// pendingTools buffers tool_use events until their results arrive so
	// the call and its output print as one block.
	pendingTools map[string]agent.Event
	pendingOrder []string
}

// NewRunner creates a [Runner].
func NewRunner(executor agent.Executor, printer *output.Printer, cfg *config.Config) *Runner {
	printer.SetLimits(cfg.Output.TruncateLines, cfg.Output.TruncateLength)
	return &Runner{
		executor:     executor,
		printer:      printer,
		cfg:          cfg,
		pendingTools: make(map[string]agent.Event),
	}
}

// RunStep executes the configured prompt for a phase/step pair and
// returns the agent's exit code. Steps without a configured prompt
// return 1.
func (r *Runner) RunStep(ctx context.Context, phase, step string, data config.PromptData) int {
	prompt, err := r.cfg.GetPrompt(phase, step, data)
	if err != nil {
		r.printer.Warn(err.Error())
		return 1
	}

	r.printer.StepBanner(phase, step, prompt)
	return r.execute(ctx, prompt, r.cfg.StepModel(phase, step))
}

// RunRaw executes an arbitrary prompt and returns the agent's exit code.
func (r *Runner) RunRaw(ctx context.Context, prompt string) int {
	return r.execute(ctx, prompt, r.cfg.Agent.Model)
}

func (r *Runner) execute(ctx context.Context, prompt, model string) int {
	start := time.Now()
	exitCode, err := r.executor.ExecuteWithResult(ctx, prompt, r.handleEvent, model)
	r.flushPendingTools()
	if err != nil {
		r.printer.Warn("agent execution failed: " + err.Error())
		if exitCode == 0 {
			exitCode = 1
		}
		return exitCode
	}

	r.printer.SessionComplete(exitCode, time.Since(start))
	return exitCode
}

// handleEvent renders one agent event. Tool uses are held back until
// their result event arrives; any other output flushes them first so
// ordering is preserved.
func (r *Runner) handleEvent(event agent.Event) {
	switch {
	case event.SessionStarted:
		r.printer.SessionStarted()

	case event.IsToolUse():
		r.pendingTools[event.ToolID] = event
		r.pendingOrder = append(r.pendingOrder, event.ToolID)

	case event.IsToolResult():
		if use, ok := r.pendingTools[event.ToolUseID]; ok {
			r.printToolUse(use)
			delete(r.pendingTools, event.ToolUseID)
			r.removePending(event.ToolUseID)
		}
		r.printer.ToolOutput(event.ToolStdout, event.ToolStderr)

	case event.IsText():
		r.flushPendingTools()
		r.printer.Text(event.Text)
	}
}

func (r *Runner) printToolUse(event agent.Event) {
	r.printer.ToolCall(event.ToolName, event.ToolDescription, event.ToolCommand, event.ToolFilePath)
}

// flushPendingTools prints buffered tool uses whose results never came
// (interrupted sessions, tools with no output).
func (r *Runner) flushPendingTools() {
	for _, id := range r.pendingOrder {
		if use, ok := r.pendingTools[id]; ok {
			r.printToolUse(use)
			delete(r.pendingTools, id)
		}
	}
	r.pendingOrder = r.pendingOrder[:0]
}

func (r *Runner) removePending(id string) {
	for i, pending := range r.pendingOrder {
		if pending == id {
			r.pendingOrder = append(r.pendingOrder[:i], r.pendingOrder[i+1:]...)
			return
		}
	}
}
