// Package factstream defines an append-only, timestamp-ordered log of
// immutable domain facts and the wire format used to persist them.
//
// A Fact records one assertion or retraction about an entity's attribute at
// a point in time. Facts are never updated in place: state changes are
// expressed by appending new facts, and current state is obtained by folding
// the stream (see the aggregate package). The store package provides the
// durable, ordering-enforced container; the stream package provides the
// lock-disciplined file I/O underneath it.
//
// # Wire format
//
// Each fact occupies exactly one line of a newline-delimited text file,
// encoded as a 5-element JSON array:
//
//	["track1",{"t":"Bpm","v":128},"2024-01-15T10:30:00Z","alice","Assert"]
//
// Values are two-field tagged unions ({"t": tag, "v": payload}); tags not
// recognized by a reader decode into UnknownAttribute rather than failing
// the line, which makes the schema forward-compatible under addition.
//
// # Defining a value type
//
// An application value union implements json.Marshaler and json.Unmarshaler
// via MarshalTagged/UnmarshalTagged and keeps an UnknownAttribute fallback:
//
//	type TrackValue struct {
//		Bpm     *int
//		Title   *string
//		Unknown *factstream.UnknownAttribute
//	}
//
// Appending and reading facts then goes through a store:
//
//	st, err := store.OpenOrCreate[string, TrackValue, string]("tracks.facts")
//	if err != nil {
//		return err
//	}
//	fact := factstream.New("track1", bpm(128), time.Now(), "analyzer", factstream.Assert)
//	if err := st.Append(fact); err != nil {
//		return err
//	}
//	for fact, err := range st.Iter() {
//		...
//	}
//
// Incremental consumers remember the last timestamp they saw and resume with
// st.IterFrom(since); the scan is linear from the start of the file by
// design (no index is maintained).
package factstream
