package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/factstream"
	"github.com/roach88/factstream/store"
	"github.com/roach88/factstream/stream"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Entity    string
	NewEntity bool
	Attribute string
	Value     string
	Source    string
	Timestamp string
	Retract   bool
	File      string
}

// AppendResult is the success payload of the append command.
type AppendResult struct {
	Appended int      `json:"appended"`
	Entities []string `json:"entities"`
	Latest   string   `json:"latest"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append facts to the stream",
		Long: `Append one fact from flags, or a whole batch from a YAML file.

The value is parsed as JSON; anything that is not valid JSON is treated
as a plain string. The batch form appends all facts or none.

Examples:
  factstream append --entity track1 --attribute Bpm --value 128 --source alice
  factstream append --new-entity --attribute Title --value '"First"' --source alice
  factstream append --file facts.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity the fact is about")
	cmd.Flags().BoolVar(&opts.NewEntity, "new-entity", false, "generate a fresh entity id (UUIDv7)")
	cmd.Flags().StringVar(&opts.Attribute, "attribute", "", "attribute tag")
	cmd.Flags().StringVar(&opts.Value, "value", "", "attribute payload as JSON")
	cmd.Flags().StringVar(&opts.Source, "source", "", "who asserts the fact")
	cmd.Flags().StringVar(&opts.Timestamp, "timestamp", "", "fact timestamp (RFC 3339, default now)")
	cmd.Flags().BoolVar(&opts.Retract, "retract", false, "retract the value instead of asserting it")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML batch file to append")
	cmd.MarkFlagsMutuallyExclusive("entity", "new-entity")
	cmd.MarkFlagsMutuallyExclusive("file", "entity")
	cmd.MarkFlagsMutuallyExclusive("file", "new-entity")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	facts, err := collectFacts(opts, formatter)
	if err != nil {
		return err
	}

	st, err := store.OpenOrCreate[string, factstream.UnknownAttribute, string](opts.Stream, store.WithLockTimeout(opts.LockTimeout))
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStream, fmt.Sprintf("opening store: %v", err), nil)
	}

	if err := st.AppendBatch(facts); err != nil {
		return appendError(formatter, err)
	}
	opts.logger().Debug("batch appended", "stream", opts.Stream, "facts", len(facts))

	result := AppendResult{Appended: len(facts)}
	for _, fact := range facts {
		result.Entities = append(result.Entities, fact.Entity)
	}
	if latest, ok := st.LatestTimestamp(); ok {
		result.Latest = latest.Format(time.RFC3339Nano)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "appended %d fact(s), latest %s\n", result.Appended, result.Latest)
	if opts.NewEntity {
		fmt.Fprintf(formatter.Writer, "entity: %s\n", result.Entities[0])
	}
	return nil
}

// collectFacts builds the batch to append, either from the batch file or
// from the single-fact flags.
func collectFacts(opts *AppendOptions, formatter *OutputFormatter) ([]StreamFact, error) {
	now := time.Now().UTC()

	if opts.File != "" {
		batch, errs := LoadBatch(opts.File)
		if len(errs) > 0 {
			for _, err := range errs[1:] {
				opts.logger().Debug("batch file error", "err", err)
			}
			return nil, fail(formatter, ExitFailure, ErrCodeBatchFile, errs[0].Error(), len(errs))
		}
		opts.logger().Debug("batch file loaded", "path", opts.File, "facts", len(batch.Facts))

		facts, err := batch.ToFacts(now)
		if err != nil {
			return nil, fail(formatter, ExitFailure, ErrCodeBatchFile, err.Error(), nil)
		}
		return facts, nil
	}

	entity := opts.Entity
	if opts.NewEntity {
		entity = uuid.Must(uuid.NewV7()).String()
	}
	if entity == "" {
		return nil, fail(formatter, ExitCommandError, ErrCodeBadFlag, "--entity or --new-entity is required", nil)
	}
	if opts.Attribute == "" {
		return nil, fail(formatter, ExitCommandError, ErrCodeBadFlag, "--attribute is required", nil)
	}
	if opts.Source == "" {
		return nil, fail(formatter, ExitCommandError, ErrCodeBadFlag, "--source is required", nil)
	}

	content := json.RawMessage(opts.Value)
	if !json.Valid(content) {
		// Not JSON, treat the flag as a plain string payload.
		quoted, err := json.Marshal(opts.Value)
		if err != nil {
			return nil, fail(formatter, ExitCommandError, ErrCodeBadFlag, fmt.Sprintf("encoding value: %v", err), nil)
		}
		content = quoted
	}

	ts := now
	if opts.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, opts.Timestamp)
		if err != nil {
			return nil, fail(formatter, ExitCommandError, ErrCodeBadFlag, fmt.Sprintf("invalid --timestamp: %v", err), nil)
		}
		ts = parsed
	}

	op := factstream.Assert
	if opts.Retract {
		op = factstream.Retract
	}

	value := factstream.UnknownAttribute{Tag: opts.Attribute, Content: content}
	return []StreamFact{factstream.New(entity, value, ts, opts.Source, op)}, nil
}

// appendError maps store failures to exit codes: contention and ordering
// violations are domain failures, anything else is an I/O level error.
func appendError(formatter *OutputFormatter, err error) error {
	var ordErr *store.TimestampOrderingError
	switch {
	case errors.As(err, &ordErr):
		return fail(formatter, ExitFailure, ErrCodeOrdering, ordErr.Error(), nil)
	case stream.IsLockContention(err):
		return fail(formatter, ExitFailure, ErrCodeLocked, err.Error(), nil)
	default:
		return fail(formatter, ExitCommandError, ErrCodeStream, err.Error(), nil)
	}
}
