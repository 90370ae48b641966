package agent

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// EventHandler observes events as they arrive from a running agent.
type EventHandler func(Event)

// Executor runs a prompt through an agent CLI.
//
// ExecuteWithResult blocks until the agent exits, invoking handler for
// every output event, and returns the subprocess exit code. A non-nil
// error means the agent could not be started or its output could not be
// read; a non-zero exit code with nil error means the agent itself failed.
type Executor interface {
	ExecuteWithResult(ctx context.Context, prompt string, handler EventHandler, model string) (int, error)
}

// CLIExecutor implements [Executor] by spawning the provider's binary.
type CLIExecutor struct {
	provider Provider

	// binary overrides the provider's default binary path when non-empty.
	binary string

	parser Parser
}

// NewCLIExecutor creates an executor for the given provider. An empty
// binary uses the provider default (resolved via PATH).
func NewCLIExecutor(provider Provider, binary string) *CLIExecutor {
	var parser Parser
	if provider.Streaming() {
		parser = NewStreamJSONParser()
	} else {
		parser = NewPlainTextParser()
	}
	return &CLIExecutor{provider: provider, binary: binary, parser: parser}
}

// Provider returns the executor's provider.
func (e *CLIExecutor) Provider() Provider {
	return e.provider
}

// ExecuteWithResult spawns the agent CLI and streams its output through
// the handler. Stderr lines are forwarded to the process stderr with a
// provider prefix. Cancelling the context kills the subprocess.
func (e *CLIExecutor) ExecuteWithResult(ctx context.Context, prompt string, handler EventHandler, model string) (int, error) {
	binary := e.binary
	if binary == "" {
		binary = e.provider.DefaultBinary()
	}

	cmd := exec.CommandContext(ctx, binary, e.provider.Args(prompt, model)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", e.provider, scanner.Text())
		}
	}()

	for event := range e.parser.Parse(stdout) {
		if handler != nil {
			handler(event)
		}
	}

	err = cmd.Wait()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}

// MockExecutor implements [Executor] for tests without spawning processes.
type MockExecutor struct {
	// Events are replayed through the handler on every call.
	Events []Event

	// ExitCode is returned from ExecuteWithResult.
	ExitCode int

	// Err, when set, is returned instead of running the events.
	Err error

	// RecordedPrompts collects every prompt passed in, in order.
	RecordedPrompts []string

	// RecordedModels collects the model argument of every call.
	RecordedModels []string
}

// ExecuteWithResult replays the configured events and returns the
// configured exit code.
func (m *MockExecutor) ExecuteWithResult(ctx context.Context, prompt string, handler EventHandler, model string) (int, error) {
	m.RecordedPrompts = append(m.RecordedPrompts, prompt)
	m.RecordedModels = append(m.RecordedModels, model)

	if m.Err != nil {
		return 1, m.Err
	}

	for _, event := range m.Events {
		if handler != nil {
			handler(event)
		}
	}
	return m.ExitCode, nil
}
