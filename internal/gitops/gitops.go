// Package gitops shells out to git and gh for the finalize step.
//
// Commands run through a [CommandRunner] so tests can assert the exact
// argv without executing anything. The production [ExecRunner] uses
// os/exec with combined output captured for error messages.
package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"nvst/internal/config"
)

// CommandRunner executes an external command and returns its combined
// output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner implements [CommandRunner] with os/exec.
type ExecRunner struct{}

// Run executes the command and returns trimmed combined output. Failures
// wrap the output so callers see what git or gh printed.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		if text != "" {
			return text, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, text)
		}
		return text, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return text, nil
}

// Client wraps the git and gh operations finalize needs.
type Client struct {
	runner CommandRunner
	cfg    config.GitConfig
}

// NewClient creates a [Client] using the real git and gh binaries.
func NewClient(cfg config.GitConfig) *Client {
	return NewClientWithRunner(cfg, ExecRunner{})
}

// NewClientWithRunner creates a [Client] with an injected runner.
func NewClientWithRunner(cfg config.GitConfig, runner CommandRunner) *Client {
	return &Client{runner: runner, cfg: cfg}
}

// BranchName returns the PR branch for a project.
func (c *Client) BranchName(project string) string {
	return c.cfg.BranchPrefix + project
}

// CheckoutBranch creates and switches to the branch.
func (c *Client) CheckoutBranch(ctx context.Context, branch string) error {
	_, err := c.runner.Run(ctx, "git", "checkout", "-b", branch)
	return err
}

// AddAll stages every change in the working tree.
func (c *Client) AddAll(ctx context.Context) error {
	_, err := c.runner.Run(ctx, "git", "add", "-A")
	return err
}

// Commit records the staged changes.
func (c *Client) Commit(ctx context.Context, message string) error {
	_, err := c.runner.Run(ctx, "git", "commit", "-m", message)
	return err
}

// Push pushes the branch to the configured remote with upstream tracking.
func (c *Client) Push(ctx context.Context, branch string) error {
	_, err := c.runner.Run(ctx, "git", "push", "-u", c.cfg.Remote, branch)
	return err
}

// CreatePR opens a pull request with gh and returns its URL.
func (c *Client) CreatePR(ctx context.Context, title, body string) (string, error) {
	out, err := c.runner.Run(ctx, "gh", "pr", "create", "--title", title, "--body", body)
	if err != nil {
		return "", err
	}

	// gh prints the PR URL as the last output line.
	lines := strings.Split(out, "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// Finalize runs the whole publication sequence: branch, stage, commit,
// push, and optionally a PR. Returns the PR URL when one was created.
func (c *Client) Finalize(ctx context.Context, project, message string) (string, error) {
	branch := c.BranchName(project)

	if err := c.CheckoutBranch(ctx, branch); err != nil {
		return "", err
	}
	if err := c.AddAll(ctx); err != nil {
		return "", err
	}
	if err := c.Commit(ctx, message); err != nil {
		return "", err
	}
	if err := c.Push(ctx, branch); err != nil {
		return "", err
	}

	if !c.cfg.CreatePR {
		return "", nil
	}
	return c.CreatePR(ctx, message, fmt.Sprintf("Automated changes for %s.", project))
}

// MockRunner implements [CommandRunner] for tests.
type MockRunner struct {
	// Commands records every invocation as name followed by args.
	Commands [][]string

	// Outputs are returned in order; missing entries return "".
	Outputs []string

	// FailOn, when non-empty, fails any command whose argv contains it.
	FailOn string
}

// Run records the invocation and returns the next configured output.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	argv := append([]string{name}, args...)
	m.Commands = append(m.Commands, argv)

	if m.FailOn != "" {
		for _, a := range argv {
			if a == m.FailOn {
				return "", fmt.Errorf("%s failed", strings.Join(argv, " "))
			}
		}
	}

	if len(m.Outputs) >= len(m.Commands) {
		return m.Outputs[len(m.Commands)-1], nil
	}
	return "", nil
}
