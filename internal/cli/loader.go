package cli

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/factstream"
)

// StreamFact is the fact shape the CLI works with: string entities and
// sources, and a generic tagged value that accepts any attribute.
type StreamFact = factstream.Fact[string, factstream.UnknownAttribute, string]

//go:embed schema.cue
var batchSchema string

// Batch is a validated batch file: a list of facts to append together.
type Batch struct {
	Facts []BatchFact `yaml:"facts"`
}

// BatchFact is one entry of a batch file. Timestamp and Operation are
// optional; absent timestamps are filled in at append time and the
// operation defaults to assert.
type BatchFact struct {
	Entity    string `yaml:"entity"`
	Attribute string `yaml:"attribute"`
	Value     any    `yaml:"value"`
	Source    string `yaml:"source"`
	Timestamp string `yaml:"timestamp"`
	Operation string `yaml:"operation"`
}

// LoadError represents an error that occurred during batch loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadBatch reads a YAML batch file and validates it against the embedded
// CUE schema. Schema violations are collected, not fail-fast, so a bad file
// reports every problem at once.
func LoadBatch(path string) (*Batch, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBatchFile, Message: fmt.Sprintf("reading batch file: %v", err)}}
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBatchFile, Message: fmt.Sprintf("parsing batch file: %v", err)}}
	}

	if errs := validateBatch(doc); len(errs) > 0 {
		return nil, errs
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBatchFile, Message: fmt.Sprintf("decoding batch file: %v", err)}}
	}
	return &batch, nil
}

// validateBatch unifies the decoded document with the batch schema and
// returns one LoadError per CUE error.
func validateBatch(doc any) []error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(batchSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("compiling batch schema: %v", err)}}
	}

	unified := schema.Unify(ctx.Encode(doc))
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []error
	for _, cueErr := range cueerrors.Errors(err) {
		errs = append(errs, &LoadError{Code: ErrCodeBatchFile, Message: cueErr.Error()})
	}
	return errs
}

// ToFacts converts the batch into stream facts. Entries without a timestamp
// get now; entries without an operation assert.
func (b *Batch) ToFacts(now time.Time) ([]StreamFact, error) {
	facts := make([]StreamFact, 0, len(b.Facts))
	for i, entry := range b.Facts {
		fact, err := entry.toFact(now)
		if err != nil {
			return nil, fmt.Errorf("fact %d of %d: %w", i+1, len(b.Facts), err)
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func (f BatchFact) toFact(now time.Time) (StreamFact, error) {
	content, err := json.Marshal(f.Value)
	if err != nil {
		return StreamFact{}, fmt.Errorf("encoding value: %w", err)
	}

	ts := now
	if f.Timestamp != "" {
		ts, err = time.Parse(time.RFC3339Nano, f.Timestamp)
		if err != nil {
			return StreamFact{}, fmt.Errorf("parsing timestamp %q: %w", f.Timestamp, err)
		}
	}

	op, err := parseOperation(f.Operation)
	if err != nil {
		return StreamFact{}, err
	}

	value := factstream.UnknownAttribute{Tag: f.Attribute, Content: content}
	return factstream.New(f.Entity, value, ts, f.Source, op), nil
}

// parseOperation maps the batch file's lowercase operation tokens onto the
// wire operations. Empty means assert.
func parseOperation(s string) (factstream.Operation, error) {
	switch s {
	case "", "assert":
		return factstream.Assert, nil
	case "retract":
		return factstream.Retract, nil
	default:
		return "", fmt.Errorf("invalid operation %q: must be assert or retract", s)
	}
}
