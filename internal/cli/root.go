package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Stream      string // path to the fact stream file
	LockTimeout time.Duration

	// Logger is configured by the root command from the format and verbose
	// flags. Diagnostic records go to stderr so JSON output stays clean.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the factstream CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "factstream",
		Short: "Append-only fact stream tool",
		Long:  "Append facts to a timestamp-ordered stream file and read them back.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Stream == "" {
				return fmt.Errorf("--stream must not be empty")
			}

			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handlerOpts := &slog.HandlerOptions{Level: level}
			if opts.Format == "json" {
				opts.Logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts))
			} else {
				opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Stream, "stream", "s", "facts.stream", "path to the fact stream file")
	cmd.PersistentFlags().DurationVar(&opts.LockTimeout, "lock-timeout", 0, "how long to wait for the stream lock (0 fails immediately)")

	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewCatCommand(opts))
	cmd.AddCommand(NewLatestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// logger returns the configured logger, falling back to the process default
// when the root command has not run.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
