package stream

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/roach88/factstream"
)

// testValue is a minimal two-variant value union for stream tests.
type testValue struct {
	Count *int
	Note  *string
}

func (v testValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Count != nil:
		return factstream.MarshalTagged("Count", *v.Count)
	case v.Note != nil:
		return factstream.MarshalTagged("Note", *v.Note)
	}
	return nil, fmt.Errorf("empty testValue")
}

func (v *testValue) UnmarshalJSON(data []byte) error {
	tag, content, err := factstream.UnmarshalTagged(data)
	if err != nil {
		return err
	}
	*v = testValue{}
	switch tag {
	case "Count":
		v.Count = new(int)
		return json.Unmarshal(content, v.Count)
	case "Note":
		v.Note = new(string)
		return json.Unmarshal(content, v.Note)
	default:
		return fmt.Errorf("unknown tag %q", tag)
	}
}

func countValue(n int) testValue  { return testValue{Count: &n} }
func noteValue(s string) testValue { return testValue{Note: &s} }

type testFact = factstream.Fact[string, testValue, string]

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return parsed
}

func testFacts(t *testing.T) []testFact {
	t.Helper()
	return []testFact{
		factstream.New("item1", countValue(1), ts(t, "2024-01-15T10:00:00Z"), "source1", factstream.Assert),
		factstream.New("item2", noteValue("Line 1\nLine 2"), ts(t, "2024-01-15T10:01:00Z"), "source1", factstream.Assert),
		factstream.New("item1", countValue(1), ts(t, "2024-01-15T10:02:00Z"), "source2", factstream.Retract),
	}
}

// collect drains a fact sequence into parallel fact and error slices.
func collect(seq func(yield func(testFact, error) bool)) (facts []testFact, errs []error) {
	for fact, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		facts = append(facts, fact)
	}
	return facts, errs
}
