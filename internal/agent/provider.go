// Package agent runs external AI coding-assistant CLIs as subprocesses.
//
// Four providers are supported: claude, codex, gemini, and cursor. Each
// provider maps a prompt (and optional model) onto the argv of its CLI.
// The claude provider emits stream-json output which is parsed into
// structured [Event] values; the other providers stream plain text, which
// is wrapped into text events so callers handle all providers uniformly.
//
// Key types:
//   - [Provider]: a named agent CLI with its invocation shape
//   - [Executor]: interface for running a prompt and observing events
//   - [CLIExecutor]: production implementation spawning the provider binary
//   - [MockExecutor]: test implementation, no subprocesses
package agent

import "fmt"

// Provider identifies an external agent CLI.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
	ProviderGemini Provider = "gemini"
	ProviderCursor Provider = "cursor"
)

// DefaultProvider is used when neither the config nor the --agent flag
// selects one.
const DefaultProvider = ProviderClaude

// Providers lists all supported providers.
var Providers = []Provider{ProviderClaude, ProviderCodex, ProviderGemini, ProviderCursor}

// ParseProvider validates a provider name from a flag or config value.
func ParseProvider(name string) (Provider, error) {
	for _, p := range Providers {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown agent provider: %q (supported: claude, codex, gemini, cursor)", name)
}

// DefaultBinary returns the provider's CLI binary name as found in PATH.
func (p Provider) DefaultBinary() string {
	if p == ProviderCursor {
		return "cursor-agent"
	}
	return string(p)
}

// Streaming reports whether the provider emits structured stream-json
// output. Only claude does; the rest print plain text.
func (p Provider) Streaming() bool {
	return p == ProviderClaude
}

// Args builds the provider argv (excluding the binary) for a prompt.
// The model argument is appended only when non-empty.
func (p Provider) Args(prompt, model string) []string {
	var args []string
	switch p {
	case ProviderClaude:
		args = []string{"--dangerously-skip-permissions", "-p", prompt, "--output-format", "stream-json"}
		if model != "" {
			args = append(args, "--model", model)
		}
	case ProviderCodex:
		args = []string{"exec", "--full-auto"}
		if model != "" {
			args = append(args, "-m", model)
		}
		args = append(args, prompt)
	case ProviderGemini:
		args = []string{"--yolo", "-p", prompt}
		if model != "" {
			args = append(args, "-m", model)
		}
	case ProviderCursor:
		args = []string{"-p", prompt, "--output-format", "text"}
		if model != "" {
			args = append(args, "-m", model)
		}
	}
	return args
}
