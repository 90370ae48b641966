// Package config provides configuration loading and management for nvst.
//
// Configuration is loaded with Viper, supporting a YAML config file and
// environment variable overrides. The defaults work out of the box; a
// config file only needs the keys it changes.
//
// Key types:
//   - [Config] is the root configuration container
//   - [Loader] handles Viper-based loading
//   - [StepConfig] defines one workflow step's prompt and artifact
//
// Configuration priority (highest to lowest):
//  1. Environment variables (NVST_ prefix, e.g. NVST_AGENT_PROVIDER)
//  2. Config file named by NVST_CONFIG_PATH
//  3. User config directory (e.g. ~/.config/nvst/nvst.yaml on Linux)
//  4. ./.nvst/config.yaml
//  5. ./nvst.yaml
//  6. [DefaultConfig] defaults
package config

import (
	"bytes"
	"fmt"
	"text/template"
)

// Config is the root configuration structure.
type Config struct {
	// Agent selects and locates the agent provider CLI.
	Agent AgentConfig `mapstructure:"agent"`

	// Steps maps "phase/step" keys to step configuration. Steps absent
	// from the map fall back to the built-in defaults.
	Steps map[string]StepConfig `mapstructure:"steps"`

	// Retry bounds the automated-fix loop.
	Retry RetryConfig `mapstructure:"retry"`

	// Git configures the finalize step's branch and PR behavior.
	Git GitConfig `mapstructure:"git"`

	// Output controls terminal output formatting.
	Output OutputConfig `mapstructure:"output"`

	// StatePath overrides state document discovery when non-empty.
	StatePath string `mapstructure:"state_path"`

	// PipelinePath points at an optional pipeline manifest that
	// overrides the default phase/step chain.
	PipelinePath string `mapstructure:"pipeline_path"`
}

// AgentConfig selects the agent provider CLI.
type AgentConfig struct {
	// Provider is one of claude, codex, gemini, cursor.
	Provider string `mapstructure:"provider"`

	// BinaryPath overrides the provider's binary; empty means PATH lookup.
	BinaryPath string `mapstructure:"binary_path"`

	// Model is the default model passed to the provider, if any.
	Model string `mapstructure:"model"`
}

// StepConfig configures a single workflow step.
type StepConfig struct {
	// Prompt is a Go template expanded with [PromptData].
	Prompt string `mapstructure:"prompt"`

	// Model overrides the agent's default model for this step.
	Model string `mapstructure:"model"`

	// Artifact is the output path the step's agent run must produce.
	Artifact string `mapstructure:"artifact"`

	// Schema names the artifact's validation schema, when it has one.
	Schema string `mapstructure:"schema"`
}

// RetryConfig bounds the automated-fix retry loop in the test phase.
type RetryConfig struct {
	// MaxAttempts is the number of fix attempts before the step is
	// marked failed. Default: 3.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// GitConfig configures the refactor/finalize git integration.
type GitConfig struct {
	// BranchPrefix is prepended to the project name for the PR branch.
	// Default: "nvst/".
	BranchPrefix string `mapstructure:"branch_prefix"`

	// Remote is the push target. Default: "origin".
	Remote string `mapstructure:"remote"`

	// CreatePR controls whether finalize opens a PR with gh. Default: true.
	CreatePR bool `mapstructure:"create_pr"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// TruncateLines caps lines shown per tool result. Default: 20.
	TruncateLines int `mapstructure:"truncate_lines"`

	// TruncateLength caps prompt/banner line length. Default: 60.
	TruncateLength int `mapstructure:"truncate_length"`
}

// PromptData is the data available to step prompt templates.
type PromptData struct {
	// Project is the project name from the state document.
	Project string

	// Phase and Step identify the running step.
	Phase string
	Step  string

	// Artifact is the configured artifact path, if any.
	Artifact string

	// Schema is the configured artifact schema name, if any.
	Schema string

	// Attempt is the 1-based attempt number (meaningful for test/fix).
	Attempt int
}

// DefaultConfig returns a [Config] with the built-in step prompts and
// sensible defaults for every knob.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Provider: "claude",
		},
		Steps: map[string]StepConfig{
			"define/prd": {
				Prompt:   "Write a product requirements document for {{.Project}}. Save it with `nvst write-json --schema {{.Schema}} --out {{.Artifact}}`. Do not ask questions.",
				Artifact: "docs/prd.json",
				Schema:   "prd",
			},
			"prototype/scaffold": {
				Prompt: "Scaffold the project structure for {{.Project}} according to docs/prd.json. Create build files and package layout only; no feature code yet. Do not ask questions.",
			},
			"prototype/implement": {
				Prompt: "Implement the requirements in docs/prd.json for {{.Project}}. Work requirement by requirement and keep the build green. Do not ask clarifying questions - use best judgment based on existing patterns.",
			},
			"test/plan": {
				Prompt:   "Write a test plan covering every requirement in docs/prd.json. Save it with `nvst write-json --schema {{.Schema}} --out {{.Artifact}}`. Do not ask questions.",
				Artifact: "docs/test-plan.json",
				Schema:   "test-plan",
			},
			"test/run": {
				Prompt: "Execute the test plan in docs/test-plan.json: run the full test suite and report results. Exit non-zero if any test fails. Do not ask questions.",
			},
			"test/fix": {
				Prompt: "Attempt {{.Attempt}}: fix the failing tests reported by the last test run for {{.Project}}. Re-run the suite after each change. Do not ask questions.",
			},
			"refactor/review": {
				Prompt:   "Review the {{.Project}} codebase for defects and design issues. Save the findings with `nvst write-json --schema {{.Schema}} --out {{.Artifact}}`. Do not ask questions.",
				Artifact: "docs/issues.json",
				Schema:   "issues",
			},
			"refactor/apply": {
				Prompt: "Address every issue in docs/issues.json for {{.Project}}, highest severity first. Run tests after each fix. Do not ask questions.",
			},
			"refactor/finalize": {
				Prompt:   "Write a progress report for {{.Project}} summarizing each phase. Save it with `nvst write-json --schema {{.Schema}} --out {{.Artifact}}`. Do not ask questions.",
				Artifact: "docs/progress.json",
				Schema:   "progress",
			},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
		},
		Git: GitConfig{
			BranchPrefix: "nvst/",
			Remote:       "origin",
			CreatePR:     true,
		},
		Output: OutputConfig{
			TruncateLines:  20,
			TruncateLength: 60,
		},
	}
}

// StepKey builds the Steps map key for a phase/step pair.
func StepKey(phase, step string) string {
	return phase + "/" + step
}

// GetPrompt expands the configured prompt template for a step.
//
// Artifact and schema from the step config are merged into data before
// expansion so templates can reference {{.Artifact}} and {{.Schema}}.
// Returns an error for steps with no configured prompt.
func (c *Config) GetPrompt(phase, step string, data PromptData) (string, error) {
	sc, ok := c.Steps[StepKey(phase, step)]
	if !ok || sc.Prompt == "" {
		return "", fmt.Errorf("no prompt configured for step %s/%s", phase, step)
	}

	data.Phase = phase
	data.Step = step
	if data.Artifact == "" {
		data.Artifact = sc.Artifact
	}
	if data.Schema == "" {
		data.Schema = sc.Schema
	}

	return expandTemplate(sc.Prompt, data)
}

// StepModel returns the model for a step: the step override when set,
// the agent default otherwise.
func (c *Config) StepModel(phase, step string) string {
	if sc, ok := c.Steps[StepKey(phase, step)]; ok && sc.Model != "" {
		return sc.Model
	}
	return c.Agent.Model
}

// StepArtifact returns the configured artifact path and schema for a step.
func (c *Config) StepArtifact(phase, step string) (artifact, schemaName string) {
	sc := c.Steps[StepKey(phase, step)]
	return sc.Artifact, sc.Schema
}

func expandTemplate(tmpl string, data PromptData) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("invalid prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to expand prompt template: %w", err)
	}
	return buf.String(), nil
}
