package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/factstream"
	"github.com/roach88/factstream/store"
)

// LatestResult is the success payload of the latest command.
type LatestResult struct {
	Latest string `json:"latest,omitempty"`
	Empty  bool   `json:"empty"`
}

// NewLatestCommand creates the latest command.
func NewLatestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "latest",
		Short:         "Print the latest fact timestamp in the stream",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(rootOpts, cmd)
		},
	}

	return cmd
}

func runLatest(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.OpenOrCreate[string, factstream.UnknownAttribute, string](opts.Stream, store.WithLockTimeout(opts.LockTimeout))
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStream, fmt.Sprintf("opening store: %v", err), nil)
	}

	result := LatestResult{}
	if latest, ok := st.LatestTimestamp(); ok {
		result.Latest = latest.Format(time.RFC3339Nano)
	} else {
		result.Empty = true
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if result.Empty {
		fmt.Fprintln(formatter.Writer, "(empty stream)")
		return nil
	}
	fmt.Fprintln(formatter.Writer, result.Latest)
	return nil
}
