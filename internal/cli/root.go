package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands. After the root
// command's pre-run they also carry values from the config file and the
// environment.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigFile  string
	Schema      string // directory of CUE record types
	Backend     string // memory | cel | sqlite | postgres
	Database    string // SQLite database path
	PostgresURL string

	// Logger is configured in the root pre-run.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dynquery CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dynquery",
		Short: "dynquery - dynamic query builder",
		Long: `Build validated, parameterized queries from declarative requests and
run them against in-memory, CEL, SQLite or PostgreSQL execution layers.

Settings are read from flags, DYNQUERY_* environment variables and an
optional dynquery.yaml, in that order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(cmd, opts); err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./dynquery.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "directory of CUE record type definitions")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "memory", "execution layer (memory|cel|sqlite|postgres)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database path (default in-memory)")
	cmd.PersistentFlags().StringVar(&opts.PostgresURL, "pg-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// newLogger returns a text logger on w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// logger returns the configured logger, or one on stderr for commands
// constructed without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		o.Logger = newLogger(os.Stderr, o.Verbose)
	}
	return o.Logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
