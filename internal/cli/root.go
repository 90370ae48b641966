// Package cli implements the nvst command-line interface.
//
// The command tree is built around an [App] that carries the loaded
// configuration and injectable dependencies (filesystem, agent executor,
// git runner, printer). Tests construct an App with mocks and drive it
// through [RunWithConfig]; the production entry point uses [Execute].
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"nvst/internal/advisor"
	"nvst/internal/agent"
	"nvst/internal/config"
	"nvst/internal/flow"
	"nvst/internal/gitops"
	"nvst/internal/lifecycle"
	"nvst/internal/output"
	"nvst/internal/state"
	"nvst/internal/workflow"
)

// App carries the CLI's dependencies. Zero fields are filled in by
// [App.initialize] before any command runs.
type App struct {
	// Config is the loaded configuration. When nil, the root command
	// loads it from the standard locations.
	Config *config.Config

	// Fs backs the state document and artifact writes.
	Fs afero.Fs

	// Printer renders progress output.
	Printer *output.Printer

	// Executor runs agent sessions. When nil, a CLI executor is built
	// from the configured provider.
	Executor agent.Executor

	// Git runs git and gh commands for finalize.
	Git gitops.CommandRunner

	// Force bypasses guardrail checks.
	Force bool

	// Out overrides the command output stream when non-nil.
	Out io.Writer

	configPath string
	agentFlag  string
	stateFlag  string
}

// NewApp creates an [App] with production dependencies.
func NewApp() *App {
	return &App{
		Fs:      afero.NewOsFs(),
		Printer: output.NewPrinter(),
		Git:     gitops.ExecRunner{},
	}
}

// initialize loads configuration and builds the remaining dependencies.
// Flag overrides win over config file and environment values.
func (a *App) initialize() error {
	if a.Config == nil {
		loader := config.NewLoader()
		var err error
		if a.configPath != "" {
			a.Config, err = loader.LoadFromFile(a.configPath)
		} else {
			a.Config, err = loader.Load()
		}
		if err != nil {
			return err
		}
	}

	if a.agentFlag != "" {
		a.Config.Agent.Provider = a.agentFlag
	}
	if a.stateFlag != "" {
		a.Config.StatePath = a.stateFlag
	}

	if a.Executor == nil {
		provider, err := agent.ParseProvider(a.Config.Agent.Provider)
		if err != nil {
			return err
		}
		a.Executor = agent.NewCLIExecutor(provider, a.Config.Agent.BinaryPath)
	}
	return nil
}

// store opens the state document store at the resolved path.
func (a *App) store() *state.Store {
	return state.NewStoreWithPath(a.Fs, ".", a.Config.StatePath)
}

func (a *App) runner() *workflow.Runner {
	return workflow.NewRunner(a.Executor, a.Printer, a.Config)
}

// detector builds the flow detector, from the pipeline manifest when one
// is configured.
func (a *App) detector() (*flow.Detector, error) {
	if a.Config.PipelinePath == "" {
		return flow.NewDetector(flow.DefaultPipeline()), nil
	}
	p, err := flow.LoadPipeline(a.Config.PipelinePath)
	if err != nil {
		return nil, err
	}
	return flow.NewDetector(p), nil
}

// lifecycle assembles a fully wired lifecycle executor.
func (a *App) lifecycle() (*lifecycle.Executor, error) {
	st := a.store()
	e := lifecycle.NewExecutor(a.runner(), st, st)

	det, err := a.detector()
	if err != nil {
		return nil, err
	}
	e.SetDetector(det)
	e.SetAdvisor(advisor.NewAgentAdvisor(a.Executor))
	e.SetMaxFixAttempts(a.Config.Retry.MaxAttempts)
	e.SetFinalizer(gitops.NewClientWithRunner(a.Config.Git, a.Git))
	e.SetProgressCallback(func(index, total int, phase state.Phase, step string) {
		a.Printer.Progress(index, total, string(phase), step)
	})
	return e, nil
}

// runPhaseStep is the shared body of the per-phase commands: guardrail,
// execute, translate the outcome to an exit code.
func (a *App) runPhaseStep(ctx context.Context, phase state.Phase, step string) error {
	if err := a.requireEarlierPhases(phase); err != nil {
		return err
	}

	lc, err := a.lifecycle()
	if err != nil {
		return err
	}
	outcome, err := lc.ExecuteStep(ctx, phase, step)
	if err != nil {
		return err
	}
	if !outcome.Success {
		return NewExitError(1)
	}
	if outcome.PRURL != "" {
		a.Printer.Text("Pull request: " + outcome.PRURL)
	}
	return nil
}

// ExecuteResult is the outcome of a CLI invocation.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// NewRootCommand builds the nvst command tree.
func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nvst",
		Short: "Agent-driven development workflow automation",
		Long: `nvst drives a development workflow through an AI agent CLI:
define a product, prototype it, test it, and refactor it. Progress is
tracked in a JSON state document; the flow command dispatches the next
step from that state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initialize()
		},
	}

	cmd.PersistentFlags().StringVar(&app.agentFlag, "agent", "", "agent provider (claude, codex, gemini, cursor)")
	cmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&app.stateFlag, "state", "", "state document path")
	cmd.PersistentFlags().BoolVar(&app.Force, "force", false, "bypass guardrail checks")

	cmd.AddCommand(
		newInitCommand(app),
		newFlowCommand(app),
		newDefineCommand(app),
		newPrototypeCommand(app),
		newTestCommand(app),
		newRefactorCommand(app),
		newWriteJSONCommand(app),
		newStatusCommand(app),
		newRawCommand(app),
	)
	return cmd
}

// RunWithConfig executes the CLI with the given arguments and returns the
// result instead of exiting, for tests and embedding.
func RunWithConfig(ctx context.Context, args []string, app *App) ExecuteResult {
	cmd := NewRootCommand(app)
	cmd.SetArgs(args)
	if app.Out != nil {
		cmd.SetOut(app.Out)
		cmd.SetErr(app.Out)
	}

	if err := cmd.ExecuteContext(ctx); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{ExitCode: 0}
}

// Execute runs the CLI and exits the process with the resulting code.
func Execute() {
	result := RunWithConfig(context.Background(), os.Args[1:], NewApp())
	if result.Err != nil {
		if _, ok := IsExitError(result.Err); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", result.Err)
		}
	}
	os.Exit(result.ExitCode)
}
