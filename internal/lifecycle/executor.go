// Package lifecycle orchestrates workflow execution from the current state
// to an approval gate, a blocked step, or completion.
//
// The [Executor] asks the flow dispatcher for the next decision, executes
// run-step decisions through a [StepRunner], and records outcomes in the
// state document. Each step is marked in_progress before the agent runs
// and completed, created, or failed afterwards.
//
// Key concepts:
//   - Decisions come from a [flow.Detector]; the default pipeline is used
//     unless [Executor.SetDetector] installs a manifest-driven one
//   - Failed test runs trigger a bounded fix/re-run loop
//   - Unknown status values can be bridged by an optional [StepAdvisor]
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nvst/internal/advisor"
	"nvst/internal/config"
	"nvst/internal/flow"
	"nvst/internal/state"
)

// maxAdvisorDepth limits advisor fallback resolutions within a single run.
// This prevents infinite loops if the advisor repeatedly recommends steps
// that leave the document undecidable.
const maxAdvisorDepth = 3

// defaultMaxFixAttempts bounds the fix/re-run loop after a failed test run.
const defaultMaxFixAttempts = 3

const (
	stepRun = "run"
	stepFix = "fix"
)

// gatedSteps are steps whose successful agent run produces an artifact
// that awaits human approval rather than completing outright.
var gatedSteps = map[string]bool{
	"define/prd": true,
}

// StepRunner executes a single workflow step through an agent.
//
// RunStep returns the agent's exit code; 0 means success. The
// [workflow.Runner] type implements this interface.
type StepRunner interface {
	RunStep(ctx context.Context, phase, step string, data config.PromptData) int
}

// StateReader reads the current state document.
type StateReader interface {
	Read() (*state.Document, error)
}

// StateWriter persists step outcomes to the state document.
//
// The [state.Store] type implements this interface.
type StateWriter interface {
	SetStepStatus(phase state.Phase, step string, newStatus state.Status) error
	SetStepResult(phase state.Phase, step string, newStatus state.Status, errMsg string) error
	IncrementAttempts(phase state.Phase, step string) (int, error)
}

// Finalizer publishes the workspace after the refactor finalize step
// completes. The gitops client implements this interface.
type Finalizer interface {
	Finalize(ctx context.Context, project, message string) (string, error)
}

// StepAdvisor resolves steps with unknown status values by asking the
// agent. See the advisor package for the production implementation.
type StepAdvisor interface {
	ResolveStep(ctx context.Context, project string, phase state.Phase, step string, current state.Status) (*advisor.Recommendation, error)
}

// ProgressCallback is invoked before each step begins execution. index is
// 1-based; total is the number of steps remaining when the run started.
type ProgressCallback func(index, total int, phase state.Phase, step string)

// StepOutcome records one executed step.
type StepOutcome struct {
	Phase    state.Phase
	Step     string
	Success  bool
	Duration time.Duration

	// PRURL is set when the finalize step opened a pull request.
	PRURL string
}

// RunReport is the result of a flow run: the executed steps and the
// decision that stopped the loop.
type RunReport struct {
	Decision flow.Decision
	Steps    []StepOutcome
	Elapsed  time.Duration
}

// Executor drives the workflow from the current state document.
//
// Dependencies are injected for testability: [StepRunner] executes agent
// sessions, [StateReader] and [StateWriter] access the state document.
// Create with [NewExecutor].
type Executor struct {
	runner    StepRunner
	reader    StateReader
	writer    StateWriter
	detector  *flow.Detector
	advisor   StepAdvisor
	finalizer Finalizer
	progress  ProgressCallback

	maxFixAttempts int
	maxSteps       int
}

// NewExecutor creates an [Executor] with the default pipeline and fix
// attempt budget.
func NewExecutor(runner StepRunner, reader StateReader, writer StateWriter) *Executor {
	return &Executor{
		runner:         runner,
		reader:         reader,
		writer:         writer,
		detector:       flow.NewDetector(flow.DefaultPipeline()),
		maxFixAttempts: defaultMaxFixAttempts,
	}
}

// SetDetector installs a custom [flow.Detector], typically built from a
// pipeline manifest.
func (e *Executor) SetDetector(d *flow.Detector) {
	if d != nil {
		e.detector = d
	}
}

// SetAdvisor configures an optional fallback for unknown status values.
// Without one, unknown statuses fail the run immediately.
func (e *Executor) SetAdvisor(a StepAdvisor) {
	e.advisor = a
}

// SetFinalizer configures an optional publication step run after
// refactor/finalize succeeds. A failed publication marks the step failed.
func (e *Executor) SetFinalizer(f Finalizer) {
	e.finalizer = f
}

// SetProgressCallback configures an optional progress callback invoked
// before each step.
func (e *Executor) SetProgressCallback(cb ProgressCallback) {
	e.progress = cb
}

// SetMaxFixAttempts overrides the fix/re-run budget. Non-positive values
// keep the current setting.
func (e *Executor) SetMaxFixAttempts(n int) {
	if n > 0 {
		e.maxFixAttempts = n
	}
}

// SetMaxSteps bounds how many steps [Executor.Run] executes before
// stopping. Zero means unbounded.
func (e *Executor) SetMaxSteps(n int) {
	if n > 0 {
		e.maxSteps = n
	}
}

// Next returns the current flow decision without executing anything.
func (e *Executor) Next() (flow.Decision, error) {
	doc, err := e.reader.Read()
	if err != nil {
		return flow.Decision{}, err
	}
	return e.detector.DetectNext(doc)
}

// RunNext executes at most one step: run-step decisions run through the
// agent, any other decision is returned untouched. The returned outcome
// is nil when nothing ran.
func (e *Executor) RunNext(ctx context.Context) (flow.Decision, *StepOutcome, error) {
	doc, err := e.reader.Read()
	if err != nil {
		return flow.Decision{}, nil, err
	}

	dec, err := e.detector.DetectNext(doc)
	if err != nil {
		if errors.Is(err, flow.ErrUnknownStatus) && e.advisor != nil {
			outcome, advErr := e.adviseAndRun(ctx, doc)
			if advErr != nil {
				return flow.Decision{}, nil, advErr
			}
			return flow.Decision{Kind: flow.KindRunStep, Phase: outcome.Phase, Step: outcome.Step}, &outcome, nil
		}
		return flow.Decision{}, nil, err
	}
	if dec.Kind != flow.KindRunStep {
		return dec, nil, nil
	}

	outcome, err := e.executeStep(ctx, doc.Project, dec.Phase, dec.Step)
	if err != nil {
		return dec, nil, err
	}
	return dec, &outcome, nil
}

// Run loops until the workflow reaches an approval gate, a blocked step,
// or completion. Run-step decisions execute in sequence; the stopping
// decision and all executed steps are reported.
func (e *Executor) Run(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{}

	doc, err := e.reader.Read()
	if err != nil {
		return nil, err
	}
	total := e.remainingSteps(doc)
	advisorDepth := 0

	for {
		doc, err := e.reader.Read()
		if err != nil {
			return nil, err
		}

		dec, err := e.detector.DetectNext(doc)
		if err != nil {
			if errors.Is(err, flow.ErrUnknownStatus) && e.advisor != nil {
				if advisorDepth >= maxAdvisorDepth {
					return nil, fmt.Errorf("advisor fallback exceeded maximum depth (%d): %w", maxAdvisorDepth, err)
				}
				advisorDepth++

				outcome, advErr := e.adviseAndRun(ctx, doc)
				if advErr != nil {
					return nil, advErr
				}
				report.Steps = append(report.Steps, outcome)
				continue
			}
			return nil, err
		}

		if dec.Kind != flow.KindRunStep {
			report.Decision = dec
			report.Elapsed = time.Since(start)
			return report, nil
		}

		if e.maxSteps > 0 && len(report.Steps) >= e.maxSteps {
			report.Decision = dec
			report.Elapsed = time.Since(start)
			return report, nil
		}

		if e.progress != nil {
			e.progress(len(report.Steps)+1, total, dec.Phase, dec.Step)
		}

		outcome, err := e.executeStep(ctx, doc.Project, dec.Phase, dec.Step)
		if err != nil {
			return nil, err
		}
		report.Steps = append(report.Steps, outcome)
	}
}

// FixTests runs the bounded fix/re-run loop directly, for `test fix`.
// The test run step must already be failed; guardrails enforce that
// before this is called.
func (e *Executor) FixTests(ctx context.Context) (StepOutcome, error) {
	doc, err := e.reader.Read()
	if err != nil {
		return StepOutcome{}, err
	}

	start := time.Now()
	outcome := StepOutcome{Phase: state.PhaseTest, Step: stepRun}
	if err := e.writer.SetStepStatus(state.PhaseTest, stepRun, state.StatusInProgress); err != nil {
		return outcome, err
	}

	exit, failMsg := e.fixLoop(ctx, doc.Project, 1)
	outcome.Duration = time.Since(start)
	if err := e.recordTestResult(exit, failMsg); err != nil {
		return outcome, err
	}
	outcome.Success = exit == 0
	return outcome, nil
}

// executeStep runs one step through the agent and records the result.
// The returned error covers state persistence only; agent failures are
// reported through the outcome and the step's failed status.
func (e *Executor) executeStep(ctx context.Context, project string, phase state.Phase, step string) (StepOutcome, error) {
	start := time.Now()
	outcome := StepOutcome{Phase: phase, Step: step}

	if err := e.writer.SetStepStatus(phase, step, state.StatusInProgress); err != nil {
		return outcome, err
	}

	var exit int
	var failMsg string
	if phase == state.PhaseTest && step == stepRun {
		exit, failMsg = e.runTestsWithFixes(ctx, project)
	} else {
		exit = e.runner.RunStep(ctx, string(phase), step, config.PromptData{Project: project})
		failMsg = fmt.Sprintf("agent exited with code %d", exit)
	}

	outcome.Duration = time.Since(start)
	if phase == state.PhaseTest && step == stepRun {
		if err := e.recordTestResult(exit, failMsg); err != nil {
			return outcome, err
		}
		outcome.Success = exit == 0
		return outcome, nil
	}

	if exit != 0 {
		return outcome, e.writer.SetStepResult(phase, step, state.StatusFailed, failMsg)
	}

	if phase == state.PhaseRefactor && step == "finalize" && e.finalizer != nil {
		url, pubErr := e.finalizer.Finalize(ctx, project, "Automated workflow changes for "+project)
		if pubErr != nil {
			return outcome, e.writer.SetStepResult(phase, step, state.StatusFailed, pubErr.Error())
		}
		outcome.PRURL = url
	}

	outcome.Success = true
	next := state.StatusCompleted
	if gatedSteps[config.StepKey(string(phase), step)] {
		next = state.StatusCreated
	}
	return outcome, e.writer.SetStepStatus(phase, step, next)
}

// ExecuteStep runs one named step regardless of what the dispatcher
// would pick, for the per-phase commands.
func (e *Executor) ExecuteStep(ctx context.Context, phase state.Phase, step string) (StepOutcome, error) {
	doc, err := e.reader.Read()
	if err != nil {
		return StepOutcome{}, err
	}
	return e.executeStep(ctx, doc.Project, phase, step)
}

// runTestsWithFixes runs the test suite once and, on failure, enters the
// fix loop.
func (e *Executor) runTestsWithFixes(ctx context.Context, project string) (int, string) {
	exit := e.runner.RunStep(ctx, string(state.PhaseTest), stepRun, config.PromptData{Project: project})
	if exit == 0 {
		return 0, ""
	}
	return e.fixLoop(ctx, project, 1)
}

// fixLoop alternates fix and re-run until the suite passes or the attempt
// budget runs out. Returns the last exit code and a failure message for
// non-zero exits.
func (e *Executor) fixLoop(ctx context.Context, project string, firstAttempt int) (int, string) {
	exit := 1
	for attempt := firstAttempt; attempt <= e.maxFixAttempts; attempt++ {
		if _, err := e.writer.IncrementAttempts(state.PhaseTest, stepFix); err != nil {
			return 1, err.Error()
		}
		if err := e.writer.SetStepStatus(state.PhaseTest, stepFix, state.StatusInProgress); err != nil {
			return 1, err.Error()
		}

		fixExit := e.runner.RunStep(ctx, string(state.PhaseTest), stepFix, config.PromptData{Project: project, Attempt: attempt})
		if fixExit != 0 {
			return fixExit, fmt.Sprintf("fix attempt %d exited with code %d", attempt, fixExit)
		}

		exit = e.runner.RunStep(ctx, string(state.PhaseTest), stepRun, config.PromptData{Project: project})
		if exit == 0 {
			return 0, ""
		}
	}
	return exit, fmt.Sprintf("tests still failing after %d fix attempts", e.maxFixAttempts)
}

// recordTestResult persists the outcome of the test run and fix steps
// together so the document never shows a passing run with a dangling fix.
func (e *Executor) recordTestResult(exit int, failMsg string) error {
	if exit == 0 {
		if err := e.writer.SetStepStatus(state.PhaseTest, stepRun, state.StatusCompleted); err != nil {
			return err
		}
		return e.writer.SetStepStatus(state.PhaseTest, stepFix, state.StatusCompleted)
	}
	if err := e.writer.SetStepResult(state.PhaseTest, stepRun, state.StatusFailed, failMsg); err != nil {
		return err
	}
	return e.writer.SetStepResult(state.PhaseTest, stepFix, state.StatusFailed, failMsg)
}

// adviseAndRun bridges an unknown status: it asks the advisor which step
// to run, resets the offending step to pending so the document becomes
// routable again, and executes the recommendation.
func (e *Executor) adviseAndRun(ctx context.Context, doc *state.Document) (StepOutcome, error) {
	phase, step, current, ok := e.detector.UnknownStatusStep(doc)
	if !ok {
		return StepOutcome{}, fmt.Errorf("%w: offending step not found", flow.ErrUnknownStatus)
	}

	rec, err := e.advisor.ResolveStep(ctx, doc.Project, phase, step, current)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("unknown status %q on %s/%s and advisor fallback failed: %w", current, phase, step, err)
	}

	if err := e.writer.SetStepStatus(phase, step, state.StatusPending); err != nil {
		return StepOutcome{}, err
	}
	return e.executeStep(ctx, doc.Project, rec.Phase, rec.Step)
}

// remainingSteps counts non-terminal steps in pipeline order, for
// progress reporting.
func (e *Executor) remainingSteps(doc *state.Document) int {
	count := 0
	for _, phase := range state.PhaseOrder {
		ps, ok := doc.Phases[phase]
		if !ok {
			continue
		}
		for _, st := range ps.Steps {
			if !st.Status.IsTerminal() {
				count++
			}
		}
	}
	return count
}
