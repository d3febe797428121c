// Command deepagents is a terminal coding agent with pluggable filesystem
// backends.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/deepagents/deepagents/internal/agent"
	"github.com/deepagents/deepagents/internal/backend"
	"github.com/deepagents/deepagents/internal/config"
	"github.com/deepagents/deepagents/internal/llm/openai"
	"github.com/deepagents/deepagents/internal/logging"
	"github.com/deepagents/deepagents/internal/threads"
	"github.com/deepagents/deepagents/internal/tools"
)

var version = "0.1.0"

// options holds root command flags.
type options struct {
	// Print runs one prompt non-interactively and exits.
	Print bool
	// Model overrides the configured model for this run.
	Model string
	// Agent selects an agent profile by name.
	Agent string
	// Thread resumes a specific thread id.
	Thread string
	// Continue resumes the most recent thread.
	Continue bool
	// Workdir is the local workspace root.
	Workdir string
	// SandboxURL selects a remote sandbox backend.
	SandboxURL string
	// Timeout is the default command timeout in seconds.
	Timeout int
	// MaxTurns caps tool-assisted turns.
	MaxTurns int
	// AllowedTools restricts the tool set.
	AllowedTools []string
	// DisallowedTools removes tools from the set.
	DisallowedTools []string
	// ConfigPath overrides the config file location.
	ConfigPath string
	// LogLevel overrides configured console log verbosity.
	LogLevel string
	// Version prints the CLI version.
	Version bool
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "deepagents [prompt]",
		Short: "deepagents - a coding agent with composable filesystem backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Println(version)
				return nil
			}
			return runRoot(cmd, opts, args)
		},
	}
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.SilenceUsage = true

	applyFlags(rootCmd.Flags(), opts)

	rootCmd.AddCommand(threadsCommand(opts))
	rootCmd.AddCommand(ralphCommand(opts))
	rootCmd.AddCommand(doctorCommand(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.BoolVarP(&opts.Print, "print", "p", false, "Print response and exit")
	flags.StringVar(&opts.Model, "model", "", "Model for the current session")
	flags.StringVar(&opts.Agent, "agent", "", "Agent profile for the current session")
	flags.StringVarP(&opts.Thread, "thread", "t", "", "Resume a thread by id (prefixes allowed)")
	flags.BoolVarP(&opts.Continue, "continue", "c", false, "Continue the most recent thread")
	flags.StringVarP(&opts.Workdir, "workdir", "w", "", "Workspace directory (default: current directory)")
	flags.StringVar(&opts.SandboxURL, "sandbox-url", "", "Remote sandbox daemon URL")
	flags.IntVar(&opts.Timeout, "timeout", 0, "Default command timeout in seconds")
	flags.IntVar(&opts.MaxTurns, "max-turns", 0, "Maximum number of tool-assisted turns")
	flags.StringSliceVar(&opts.AllowedTools, "allowed-tools", nil, "Allowed tools list")
	flags.StringSliceVar(&opts.DisallowedTools, "disallowed-tools", nil, "Disallowed tools list")
	flags.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Console log level (debug|info|warn|error)")
	flags.BoolVarP(&opts.Version, "version", "v", false, "Output the version number")
}

// runtime bundles everything a run mode needs.
type runtime struct {
	cfg      *config.Config
	profile  *config.Profile
	runner   *agent.Runner
	threads  *threads.Store
	model    string
	system   string
	memories *backend.StoreBackend
}

func (r *runtime) Close() {
	if r.threads != nil {
		r.threads.Close()
	}
	if r.memories != nil {
		r.memories.Close()
	}
}

// buildRuntime loads config, builds the backend stack, and wires the agent
// runner.
func buildRuntime(opts *options) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Timeout > 0 {
		cfg.ExecuteTimeoutS = opts.Timeout
	}
	if opts.MaxTurns > 0 {
		cfg.MaxTurns = opts.MaxTurns
	}
	if opts.SandboxURL != "" {
		cfg.SandboxURL = opts.SandboxURL
	}
	if _, err := logging.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var profile *config.Profile
	if opts.Agent != "" {
		profiles, err := config.LoadProfiles(filepath.Join(cfg.DataDir, "agents"))
		if err != nil {
			return nil, err
		}
		profile = profiles[opts.Agent]
		if profile == nil {
			return nil, fmt.Errorf("unknown agent %q (available: %v)", opts.Agent, config.ProfileNames(profiles))
		}
	}

	def, err := defaultBackend(opts, cfg)
	if err != nil {
		return nil, err
	}
	memories, err := backend.OpenStore(filepath.Join(cfg.DataDir, "memories.db"))
	if err != nil {
		return nil, err
	}
	fs := backend.NewComposite(def, map[string]backend.Backend{
		"/memories/": memories,
	})

	toolSet := tools.DefaultTools()
	allowed, disallowed := opts.AllowedTools, opts.DisallowedTools
	if profile != nil {
		if len(allowed) == 0 {
			allowed = profile.Tools
		}
		disallowed = append(disallowed, profile.DisallowedTools...)
	}
	if len(allowed) > 0 || len(disallowed) > 0 {
		toolSet, err = tools.FilterTools(toolSet, allowed, disallowed)
		if err != nil {
			return nil, err
		}
	}
	toolRunner := tools.NewRunner(toolSet)

	workdir := opts.Workdir
	if workdir == "" {
		workdir, _ = os.Getwd()
	}

	model := cfg.ResolveModel(opts.Model)
	system := agent.DefaultSystemPrompt(toolRunner.ToolNames())
	if profile != nil {
		if opts.Model == "" && profile.Model != "" {
			model = cfg.ResolveModel(profile.Model)
		}
		if profile.SystemPrompt != "" {
			system += "\n\n" + profile.SystemPrompt
		}
	}

	runner := &agent.Runner{
		Client: openai.NewClient(cfg.APIBaseURL, cfg.APIKey, time.Duration(cfg.TimeoutMS)*time.Millisecond),
		ToolRunner: toolRunner,
		ToolContext: tools.ToolContext{
			FS:             fs,
			Workdir:        workdir,
			ExecuteTimeout: time.Duration(cfg.ExecuteTimeoutS) * time.Second,
			Todos:          &tools.TodoList{},
		},
		MaxTurns: cfg.MaxTurns,
	}

	store, err := threads.Open(filepath.Join(cfg.DataDir, "threads.db"))
	if err != nil {
		memories.Close()
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		profile:  profile,
		runner:   runner,
		threads:  store,
		model:    model,
		system:   system,
		memories: memories,
	}, nil
}

// defaultBackend picks the execution backend: remote sandbox when a URL is
// configured, otherwise the local shell.
func defaultBackend(opts *options, cfg *config.Config) (backend.Backend, error) {
	if cfg.SandboxURL != "" {
		dialCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		remote, err := backend.DialRemoteSandbox(dialCtx, backend.RemoteSandboxConfig{
			URL:    cfg.SandboxURL,
			Secret: cfg.SandboxSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("connect sandbox: %w", err)
		}
		return remote, nil
	}
	workdir := opts.Workdir
	if workdir == "" {
		var err error
		workdir, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}
	return backend.NewLocalShell(workdir,
		backend.WithExecuteTimeout(time.Duration(cfg.ExecuteTimeoutS)*time.Second))
}

func doctorCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check deepagents configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigPath
			if path == "" {
				var err error
				path, err = config.Path()
				if err != nil {
					return err
				}
			}
			if info, err := os.Stat(path); err == nil {
				if mode := info.Mode().Perm(); mode&0o077 != 0 {
					return fmt.Errorf("config permissions too open: %s", mode)
				}
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}
			fmt.Printf("OK: model %s via %s\n", cfg.Model, cfg.APIBaseURL)
			if cfg.APIKey == "" {
				fmt.Println("warning: no api_key configured")
			}
			return nil
		},
	}
}
