package factstream

import (
	"encoding/json"
	"fmt"
)

// Value types serialize as a two-field tagged union: a tag field naming the
// variant and a content field holding its payload, and nothing else. This is
// a hard contract of the wire format - a value that adds or drops fields will
// not round-trip against readers built on a different schema revision.
const (
	// TagField is the JSON key carrying the variant name.
	TagField = "t"

	// ContentField is the JSON key carrying the variant payload.
	ContentField = "v"
)

type tagged struct {
	Tag     string          `json:"t"`
	Content json.RawMessage `json:"v"`
}

// MarshalTagged encodes a value as the two-field tagged union
// {"t": tag, "v": content}. Value types implement their MarshalJSON in terms
// of this helper so the union contract holds by construction.
func MarshalTagged(tag string, content any) ([]byte, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal tagged content %q: %w", tag, err)
	}
	return json.Marshal(tagged{Tag: tag, Content: payload})
}

// UnmarshalTagged decodes a two-field tagged union, returning the tag and the
// raw content payload. It rejects any encoding that is not exactly the pair
// of TagField and ContentField at the top level.
func UnmarshalTagged(data []byte) (tag string, content json.RawMessage, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, fmt.Errorf("unmarshal tagged value: %w", err)
	}
	if len(fields) != 2 {
		return "", nil, fmt.Errorf("unmarshal tagged value: expected exactly fields %q and %q, got %d fields", TagField, ContentField, len(fields))
	}
	rawTag, ok := fields[TagField]
	if !ok {
		return "", nil, fmt.Errorf("unmarshal tagged value: missing tag field %q", TagField)
	}
	content, ok = fields[ContentField]
	if !ok {
		return "", nil, fmt.Errorf("unmarshal tagged value: missing content field %q", ContentField)
	}
	if err := json.Unmarshal(rawTag, &tag); err != nil {
		return "", nil, fmt.Errorf("unmarshal tagged value tag: %w", err)
	}
	return tag, content, nil
}

// CheckValueFormat verifies that a value's JSON encoding satisfies the
// tagged-union contract. It is the runtime analog of checking a schema at
// definition time; call it from a test for every variant of an application
// value type.
func CheckValueFormat(value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("check value format: %w", err)
	}
	if _, _, err := UnmarshalTagged(data); err != nil {
		return fmt.Errorf("check value format: %w", err)
	}
	return nil
}

// UnknownAttribute preserves a value whose tag is not part of the reader's
// schema. Decoding never fails on an unrecognized tag; the tag and its raw
// payload are carried opaquely so that readers built against an older schema
// keep working on streams written by newer writers.
type UnknownAttribute struct {
	Tag     string
	Content json.RawMessage
}

// MarshalJSON re-encodes the attribute exactly as it appeared on the wire.
func (u UnknownAttribute) MarshalJSON() ([]byte, error) {
	content := u.Content
	if content == nil {
		content = json.RawMessage("null")
	}
	return json.Marshal(tagged{Tag: u.Tag, Content: content})
}

// UnmarshalJSON accepts any two-field tagged union regardless of tag.
func (u *UnknownAttribute) UnmarshalJSON(data []byte) error {
	tag, content, err := UnmarshalTagged(data)
	if err != nil {
		return err
	}
	u.Tag = tag
	u.Content = content
	return nil
}

// Unknown implements UnknownValue. An UnknownAttribute is always unknown.
func (u UnknownAttribute) Unknown() (UnknownAttribute, bool) {
	return u, true
}

// UnknownValue is implemented by value types that can carry attributes whose
// tag was not recognized at decode time. Aggregation dispatches such values
// to the unknown-attribute hooks instead of the typed assert/retract path.
//
// UnknownAttribute itself implements the interface, as does any application
// value union that keeps a fallback variant for unrecognized tags.
type UnknownValue interface {
	// Unknown returns the preserved attribute and true when the value is an
	// unrecognized fallback, or false when the value decoded as a known
	// variant.
	Unknown() (UnknownAttribute, bool)
}
