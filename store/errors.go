package store

import (
	"fmt"
	"time"
)

// TimestampOrderingError rejects an append whose batch contains a fact older
// than the store's latest known timestamp. Nothing from the batch is
// written and the cached timestamp is unchanged.
type TimestampOrderingError struct {
	// New is the offending fact's timestamp.
	New time.Time

	// Latest is the store's latest timestamp at the time of the check.
	Latest time.Time
}

func (e *TimestampOrderingError) Error() string {
	return fmt.Sprintf("timestamp ordering violation: new fact at %s is before latest %s",
		e.New.Format(time.RFC3339Nano), e.Latest.Format(time.RFC3339Nano))
}
