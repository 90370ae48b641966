package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "NVST"

// Loader loads configuration from files and the environment.
type Loader struct{}

// NewLoader creates a new [Loader].
func NewLoader() *Loader {
	return &Loader{}
}

// Load resolves configuration from the standard locations.
//
// A missing config file is not an error; the defaults plus environment
// overrides are returned. A present but malformed file is an error.
func (l *Loader) Load() (*Config, error) {
	v := newViper()

	if path := configFilePath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from an explicit file path, applied
// on top of the defaults. Environment overrides still win.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys viper already knows about, so the
	// overridable scalars are bound explicitly.
	for _, key := range []string{
		"agent.provider",
		"agent.binary_path",
		"agent.model",
		"retry.max_attempts",
		"git.branch_prefix",
		"git.remote",
		"output.truncate_lines",
		"output.truncate_length",
		"state_path",
		"pipeline_path",
	} {
		v.BindEnv(key)
	}

	return v
}

// configFilePath finds the first config file in the search order, or
// empty when none exists.
func configFilePath() string {
	if path := os.Getenv(envPrefix + "_CONFIG_PATH"); path != "" {
		return path
	}

	var candidates []string
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "nvst", "nvst.yaml"))
	}
	candidates = append(candidates,
		filepath.Join(".nvst", "config.yaml"),
		"nvst.yaml",
	)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// unmarshal decodes viper settings on top of the defaults. Steps present
// in the file override the default step of the same key; other defaults
// remain untouched.
func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// File-provided step maps replace the whole map during decoding;
	// merge the defaults back for any step the file did not mention.
	for key, sc := range DefaultConfig().Steps {
		if _, ok := cfg.Steps[key]; !ok {
			cfg.Steps[key] = sc
		}
	}

	return cfg, nil
}
