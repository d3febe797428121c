// Package config loads deepagents configuration from the user config file
// and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the resolved deepagents configuration.
// Priority: environment variables > config file > defaults.
type Config struct {
	// APIBaseURL is the base URL for OpenAI-compatible chat completions.
	APIBaseURL string `koanf:"api_base_url" validate:"required,url"`
	// APIKey is the bearer token used for Authorization.
	APIKey string `koanf:"api_key"`
	// Model is the default model alias or provider model name.
	Model string `koanf:"model" validate:"required"`
	// ModelAliases maps friendly names to provider model ids.
	ModelAliases map[string]string `koanf:"model_aliases"`
	// TimeoutMS configures LLM request timeout in milliseconds.
	TimeoutMS int `koanf:"timeout_ms" validate:"min=1"`
	// MaxTurns caps tool-assisted turns per user message.
	MaxTurns int `koanf:"max_turns" validate:"min=1,max=100"`
	// ExecuteTimeoutS is the default command timeout in seconds.
	ExecuteTimeoutS int `koanf:"execute_timeout_s" validate:"min=1,max=604800"`
	// DataDir stores thread and memory databases.
	DataDir string `koanf:"data_dir" validate:"required"`
	// SandboxURL points at a remote sandbox daemon. Empty selects the local
	// shell backend.
	SandboxURL string `koanf:"sandbox_url"`
	// SandboxSecret signs sandbox auth tokens.
	SandboxSecret string `koanf:"sandbox_secret"`
	// LogLevel sets console log verbosity.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
	// LogFile enables JSON debug logs when set.
	LogFile string `koanf:"log_file"`
}

// defaults returns the built-in configuration values.
func defaults() map[string]any {
	return map[string]any{
		"api_base_url":      "https://api.openai.com/v1",
		"model":             "gpt-4o",
		"timeout_ms":        600000,
		"max_turns":         24,
		"execute_timeout_s": 120,
		"data_dir":          "~/.deepagents",
		"log_level":         "warn",
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".deepagents", "config.json"), nil
}

// Load reads configuration from configPath (or the default location when
// empty), overlays DEEPAGENTS_ environment variables, and validates the
// result. A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		k.Set(key, value)
	}

	if configPath == "" {
		var err error
		configPath, err = Path()
		if err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), json.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("DEEPAGENTS_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.DataDir = expandHomePath(cfg.DataDir)
	if cfg.ModelAliases == nil {
		cfg.ModelAliases = map[string]string{}
	}
	return &cfg, nil
}

// ResolveModel resolves a CLI or profile model name through the alias map,
// falling back to the configured default.
func (c *Config) ResolveModel(requested string) string {
	name := requested
	if name == "" {
		name = c.Model
	}
	if aliased, ok := c.ModelAliases[name]; ok {
		return aliased
	}
	return name
}

// envTransform converts environment variable names to config keys.
// Example: DEEPAGENTS_MAX_TURNS -> max_turns.
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "DEEPAGENTS_"))
}

// expandHomePath expands ~ to the user's home directory.
func expandHomePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
