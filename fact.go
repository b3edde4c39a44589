package factstream

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operation is the kind of change a fact encodes: asserting a value for an
// entity's attribute, or retracting one previously asserted.
//
// Corrections are never expressed by rewriting history. To undo an assertion,
// append a new fact carrying the withdrawn value with operation Retract.
type Operation string

const (
	// Assert records that an attribute value holds for an entity.
	Assert Operation = "Assert"

	// Retract withdraws a previously asserted value.
	Retract Operation = "Retract"
)

// Valid reports whether op is one of the two recognized operation tokens.
func (op Operation) Valid() bool {
	return op == Assert || op == Retract
}

// Fact is an immutable record of one assertion or retraction about an
// entity's attribute at a point in time.
//
// Fact is generic over the entity identifier type E, the value type V, and
// the source type S. A fact is created once, appended once, and never
// updated in place.
//
// On the wire a fact is a single line holding a 5-element JSON array:
//
//	[entity, value, timestamp, source, operation]
//
// The timestamp is RFC 3339 UTC with sub-second precision preserved. The
// value must serialize as a two-field tagged union (see MarshalTagged); the
// operation is the literal token "Assert" or "Retract".
type Fact[E, V, S any] struct {
	Entity    E
	Value     V
	Timestamp time.Time
	Source    S
	Operation Operation
}

// New constructs a fact. The timestamp is normalized to UTC.
func New[E, V, S any](entity E, value V, timestamp time.Time, source S, op Operation) Fact[E, V, S] {
	return Fact[E, V, S]{
		Entity:    entity,
		Value:     value,
		Timestamp: timestamp.UTC(),
		Source:    source,
		Operation: op,
	}
}

// MarshalJSON encodes the fact as the 5-element array wire form.
//
// Any line-break characters inside string payloads are escaped by the JSON
// encoding, so an encoded fact never spans more than one physical line.
func (f Fact[E, V, S]) MarshalJSON() ([]byte, error) {
	if !f.Operation.Valid() {
		return nil, fmt.Errorf("marshal fact: invalid operation %q", string(f.Operation))
	}
	return json.Marshal([]any{f.Entity, f.Value, f.Timestamp.UTC(), f.Source, f.Operation})
}

// UnmarshalJSON decodes the 5-element array wire form. The element count and
// the operation token are validated; the timestamp is normalized to UTC.
func (f *Fact[E, V, S]) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("unmarshal fact: %w", err)
	}
	if len(fields) != 5 {
		return fmt.Errorf("unmarshal fact: expected 5 elements, got %d", len(fields))
	}

	if err := json.Unmarshal(fields[0], &f.Entity); err != nil {
		return fmt.Errorf("unmarshal fact entity: %w", err)
	}
	if err := json.Unmarshal(fields[1], &f.Value); err != nil {
		return fmt.Errorf("unmarshal fact value: %w", err)
	}
	var ts time.Time
	if err := json.Unmarshal(fields[2], &ts); err != nil {
		return fmt.Errorf("unmarshal fact timestamp: %w", err)
	}
	f.Timestamp = ts.UTC()
	if err := json.Unmarshal(fields[3], &f.Source); err != nil {
		return fmt.Errorf("unmarshal fact source: %w", err)
	}
	var op Operation
	if err := json.Unmarshal(fields[4], &op); err != nil {
		return fmt.Errorf("unmarshal fact operation: %w", err)
	}
	if !op.Valid() {
		return fmt.Errorf("unmarshal fact operation: unknown token %q", string(op))
	}
	f.Operation = op
	return nil
}
