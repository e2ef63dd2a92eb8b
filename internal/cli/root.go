package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/storyboard/internal/config"
	"github.com/roach88/storyboard/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Config and Logger are resolved by the root command before a
	// subcommand runs. A subcommand executed on its own sees nil and falls
	// back to its flags.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// flagKeys binds command flags to config keys. A flag set on the command
// line overrides the environment and the config file.
var flagKeys = map[string]string{
	"format": config.KeyFormat,
	"db":     config.KeyDB,
	"redis":  config.KeyRedisURL,
}

// NewRootCommand creates the root command for the storyboard CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storyboard",
		Short: "Storyboard - scripted effects for traffic simulations",
		Long: `Storyboard evaluates condition trees against a running traffic
simulation once per tick and applies the effects of the stories that fire.

Settings are read from flags, STORYBOARD_* environment variables and an
optional storyboard.yaml, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error and picks the exit code
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./storyboard.yaml if present)")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// load resolves configuration for the executing command and sets up the
// process logger on its error stream.
func (o *RootOptions) load(cmd *cobra.Command) error {
	v := config.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return WrapExitError(ExitCommandError, "failed to bind flag", err)
			}
		}
	}

	cfg, err := config.Load(v, o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	o.Config = cfg
	o.Format = cfg.Format
	o.Logger = logger.Setup(cmd.ErrOrStderr(), cfg)
	if cfg.File != "" {
		o.Logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// log returns the configured logger, or one that discards everything.
func (o *RootOptions) log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.Discard()
}

// database returns the firing log path: the resolved config when the root
// command ran, the flag otherwise.
func (o *RootOptions) database(flag string) string {
	if o.Config != nil {
		return o.Config.DB
	}
	return flag
}

// redisURL returns the live feed address, empty when disabled.
func (o *RootOptions) redisURL(flag string) string {
	if o.Config != nil {
		return o.Config.RedisURL
	}
	return flag
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
