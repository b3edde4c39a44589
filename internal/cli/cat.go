package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/factstream"
	"github.com/roach88/factstream/store"
)

// CatOptions holds flags for the cat command.
type CatOptions struct {
	*RootOptions
	Since string
}

// CatFact is the JSON shape of one fact in the cat output.
type CatFact struct {
	Entity    string `json:"entity"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Operation string `json:"operation"`
}

// CatResult is the success payload of the cat command.
type CatResult struct {
	Facts   []CatFact `json:"facts"`
	Skipped int       `json:"skipped,omitempty"` // undecodable lines
}

// NewCatCommand creates the cat command.
func NewCatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cat",
		Short: "Print facts from the stream in file order",
		Long: `Print every fact in the stream, oldest first.

With --since, the linear scan skips facts older than the given time;
a fact at exactly that time is included. Lines that fail to decode are
counted and reported, not fatal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Since, "since", "", "only print facts at or after this time (RFC 3339)")

	return cmd
}

func runCat(opts *CatOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var since time.Time
	if opts.Since != "" {
		parsed, err := time.Parse(time.RFC3339Nano, opts.Since)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeBadFlag, fmt.Sprintf("invalid --since: %v", err), nil)
		}
		since = parsed
	}

	st, err := store.OpenOrCreate[string, factstream.UnknownAttribute, string](opts.Stream, store.WithLockTimeout(opts.LockTimeout))
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStream, fmt.Sprintf("opening store: %v", err), nil)
	}

	result := CatResult{Facts: []CatFact{}}
	for fact, err := range st.IterFrom(since) {
		if err != nil {
			result.Skipped++
			opts.logger().Warn("skipping undecodable line", "err", err)
			continue
		}
		result.Facts = append(result.Facts, toCatFact(fact))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, fact := range result.Facts {
		fmt.Fprintf(formatter.Writer, "%s  %s  %s=%s  %s  %s\n",
			fact.Timestamp, fact.Entity, fact.Attribute, rawValue(fact.Value), fact.Source, fact.Operation)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(formatter.Writer, "(%d undecodable line(s) skipped)\n", result.Skipped)
	}
	return nil
}

func toCatFact(fact StreamFact) CatFact {
	return CatFact{
		Entity:    fact.Entity,
		Attribute: fact.Value.Tag,
		Value:     fact.Value.Content,
		Timestamp: fact.Timestamp.Format(time.RFC3339Nano),
		Source:    fact.Source,
		Operation: string(fact.Operation),
	}
}

func rawValue(v any) string {
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw)
	}
	return fmt.Sprintf("%v", v)
}
