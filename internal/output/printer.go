// Package output renders workflow progress to the terminal.
//
// The [Printer] is the single place that styles text; everything else in
// nvst hands it plain strings. It writes to an injected io.Writer so
// tests can capture output.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	stepStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	gateStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	completeMark = okStyle.Render("✓")
	failMark     = failStyle.Render("✗")
)

// Printer renders workflow progress. Create with [NewPrinter] (stdout) or
// [NewPrinterWithWriter] for tests.
type Printer struct {
	w io.Writer

	// truncateLines caps lines shown per tool result.
	truncateLines int

	// truncateLength caps banner prompt length.
	truncateLength int
}

// NewPrinter creates a [Printer] writing to stdout with default limits.
func NewPrinter() *Printer {
	return NewPrinterWithWriter(os.Stdout)
}

// NewPrinterWithWriter creates a [Printer] writing to w.
func NewPrinterWithWriter(w io.Writer) *Printer {
	return &Printer{w: w, truncateLines: 20, truncateLength: 60}
}

// SetLimits overrides the output truncation limits. Non-positive values
// keep the current setting.
func (p *Printer) SetLimits(lines, length int) {
	if lines > 0 {
		p.truncateLines = lines
	}
	if length > 0 {
		p.truncateLength = length
	}
}

// StepBanner announces a step execution with its prompt.
func (p *Printer) StepBanner(phase, step, prompt string) {
	header := fmt.Sprintf("%s %s", stepStyle.Render(phase+"/"+step), dimStyle.Render(truncate(prompt, p.truncateLength)))
	fmt.Fprintln(p.w, bannerStyle.Render(header))
}

// Progress reports lifecycle progress before a step begins.
func (p *Printer) Progress(index, total int, phase, step string) {
	fmt.Fprintf(p.w, "%s %s\n", dimStyle.Render(fmt.Sprintf("[%d/%d]", index, total)), stepStyle.Render(phase+"/"+step))
}

// SessionStarted reports that the agent session has begun.
func (p *Printer) SessionStarted() {
	fmt.Fprintf(p.w, "%s Session started\n\n", dimStyle.Render("●"))
}

// SessionComplete reports the agent session outcome.
func (p *Printer) SessionComplete(exitCode int, duration time.Duration) {
	if exitCode == 0 {
		fmt.Fprintf(p.w, "\n%s Done in %s\n", completeMark, duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(p.w, "\n%s Failed (exit %d) after %s\n", failMark, exitCode, duration.Round(time.Millisecond))
	}
}

// Text prints assistant text output.
func (p *Printer) Text(text string) {
	fmt.Fprintf(p.w, "%s\n\n", text)
}

// ToolCall prints a tool invocation.
func (p *Printer) ToolCall(name, description, command, filePath string) {
	fmt.Fprintf(p.w, "%s %s\n", toolStyle.Render("┌─"), toolStyle.Render(name))
	if description != "" {
		fmt.Fprintf(p.w, "%s %s\n", toolStyle.Render("│"), description)
	}
	if command != "" {
		fmt.Fprintf(p.w, "%s $ %s\n", toolStyle.Render("│"), command)
	}
	if filePath != "" {
		fmt.Fprintf(p.w, "%s %s\n", toolStyle.Render("│"), filePath)
	}
	fmt.Fprintf(p.w, "%s\n", toolStyle.Render("└─"))
}

// ToolOutput prints a tool result, truncating long stdout.
func (p *Printer) ToolOutput(stdout, stderr string) {
	if stdout != "" {
		fmt.Fprintf(p.w, "   %s\n\n", strings.ReplaceAll(truncateMiddle(stdout, p.truncateLines), "\n", "\n   "))
	}
	if stderr != "" {
		fmt.Fprintf(p.w, "   %s %s\n\n", dimStyle.Render("[stderr]"), stderr)
	}
}

// RunStep reports the flow decision to execute a step.
func (p *Printer) RunStep(phase, step string) {
	fmt.Fprintf(p.w, "%s next step: %s\n", dimStyle.Render("→"), stepStyle.Render(phase+"/"+step))
}

// ApprovalGate reports that the workflow is waiting on human approval.
func (p *Printer) ApprovalGate(phase, step string) {
	fmt.Fprintf(p.w, "%s %s awaits approval. Review the artifact, then run `nvst define approve` (or edit the state document).\n",
		gateStyle.Render("⏸"), stepStyle.Render(phase+"/"+step))
}

// Blocked reports a blocked workflow.
func (p *Printer) Blocked(phase, step, reason string) {
	fmt.Fprintf(p.w, "%s blocked at %s: %s\n", failMark, stepStyle.Render(phase+"/"+step), reason)
}

// Complete reports that every phase has finished.
func (p *Printer) Complete() {
	fmt.Fprintf(p.w, "%s workflow complete\n", completeMark)
}

// Warn prints a warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", warnStyle.Render("!"), msg)
}

// Summary prints the outcome of a flow run: executed steps with
// durations, then the stop reason.
func (p *Printer) Summary(steps []StepResult, total time.Duration) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(p.w)
	for _, s := range steps {
		mark := completeMark
		if !s.Success {
			mark = failMark
		}
		fmt.Fprintf(p.w, "%s %-28s %s\n", mark, s.Phase+"/"+s.Step, dimStyle.Render(s.Duration.Round(time.Millisecond).String()))
	}
	fmt.Fprintf(p.w, "%s\n", dimStyle.Render("total "+total.Round(time.Millisecond).String()))
}

// StepResult is one executed step in a flow run summary.
type StepResult struct {
	Phase    string
	Step     string
	Success  bool
	Duration time.Duration
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen || maxLen <= 3 {
		return s
	}
	return s[:maxLen-3] + "..."
}

// truncateMiddle keeps the head and tail of long multi-line output.
func truncateMiddle(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	head := maxLines / 2
	tail := maxLines - head
	omitted := len(lines) - maxLines
	return strings.Join(lines[:head], "\n") +
		fmt.Sprintf("\n... (%d lines omitted) ...\n", omitted) +
		strings.Join(lines[len(lines)-tail:], "\n")
}
