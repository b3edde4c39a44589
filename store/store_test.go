package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factstream"
	"github.com/roach88/factstream/internal/testutil"
	"github.com/roach88/factstream/stream"
)

// itemValue is a single-variant value union for store tests.
type itemValue struct {
	Count *int
}

func (v itemValue) MarshalJSON() ([]byte, error) {
	if v.Count == nil {
		return nil, fmt.Errorf("empty itemValue")
	}
	return factstream.MarshalTagged("Count", *v.Count)
}

func (v *itemValue) UnmarshalJSON(data []byte) error {
	tag, content, err := factstream.UnmarshalTagged(data)
	if err != nil {
		return err
	}
	if tag != "Count" {
		return fmt.Errorf("unknown tag %q", tag)
	}
	v.Count = new(int)
	return json.Unmarshal(content, v.Count)
}

func countValue(n int) itemValue { return itemValue{Count: &n} }

type itemFact = factstream.Fact[string, itemValue, string]
type itemStore = Store[string, itemValue, string]

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return parsed
}

func testFacts(t *testing.T) []itemFact {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), time.Minute)
	return []itemFact{
		factstream.New("item1", countValue(1), clock.Next(), "source1", factstream.Assert),
		factstream.New("item2", countValue(2), clock.Next(), "source1", factstream.Assert),
		factstream.New("item3", countValue(3), clock.Next(), "source1", factstream.Assert),
	}
}

func openStore(t *testing.T, path string) *itemStore {
	t.Helper()
	st, err := OpenOrCreate[string, itemValue, string](path)
	require.NoError(t, err)
	return st
}

func collectFrom(t *testing.T, st *itemStore, since time.Time) []itemFact {
	t.Helper()
	var facts []itemFact
	for fact, err := range st.IterFrom(since) {
		require.NoError(t, err)
		facts = append(facts, fact)
	}
	return facts
}

func collectAll(t *testing.T, st *itemStore) []itemFact {
	t.Helper()
	return collectFrom(t, st, time.Time{})
}

func TestOpenOrCreateEmpty(t *testing.T) {
	st := openStore(t, filepath.Join(t.TempDir(), "facts.stream"))

	_, ok := st.LatestTimestamp()
	assert.False(t, ok, "fresh store should have no latest timestamp")
	assert.Empty(t, collectAll(t, st))
}

func TestOpenOrCreateMakesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "facts.stream")
	st := openStore(t, path)
	require.NoError(t, st.Append(testFacts(t)[0]))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAppendAdvancesLatestTimestamp(t *testing.T) {
	st := openStore(t, filepath.Join(t.TempDir(), "facts.stream"))
	facts := testFacts(t)

	require.NoError(t, st.Append(facts[0]))
	latest, ok := st.LatestTimestamp()
	require.True(t, ok)
	assert.True(t, latest.Equal(facts[0].Timestamp))

	require.NoError(t, st.Append(facts[1]))
	latest, _ = st.LatestTimestamp()
	assert.True(t, latest.Equal(facts[1].Timestamp))
}

func TestAppendBatchEmptyIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.stream")
	st := openStore(t, path)

	require.NoError(t, st.AppendBatch(nil))

	_, ok := st.LatestTimestamp()
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "empty batch should not create the file")
}

func TestTimestampOrderingEnforced(t *testing.T) {
	st := openStore(t, filepath.Join(t.TempDir(), "facts.stream"))
	facts := testFacts(t)

	// Write the latest fact first, then try to go back in time.
	require.NoError(t, st.Append(facts[2]))
	err := st.Append(facts[0])

	var ordErr *TimestampOrderingError
	require.ErrorAs(t, err, &ordErr)
	assert.True(t, ordErr.New.Equal(facts[0].Timestamp))
	assert.True(t, ordErr.Latest.Equal(facts[2].Timestamp))
}

func TestRejectedBatchLeavesStoreUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.stream")
	st := openStore(t, path)
	facts := testFacts(t)

	require.NoError(t, st.Append(facts[2]))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A batch with one stale fact is rejected wholesale, even though its
	// other fact would be acceptable.
	stale := []itemFact{
		factstream.New("item9", countValue(9), facts[2].Timestamp.Add(time.Minute), "source1", factstream.Assert),
		facts[0],
	}
	require.Error(t, st.AppendBatch(stale))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected batch must not change the file")

	latest, _ := st.LatestTimestamp()
	assert.True(t, latest.Equal(facts[2].Timestamp), "rejected batch must not move the cache")
}

func TestEqualTimestampAccepted(t *testing.T) {
	st := openStore(t, filepath.Join(t.TempDir(), "facts.stream"))
	facts := testFacts(t)

	require.NoError(t, st.Append(facts[0]))
	same := factstream.New("item2", countValue(2), facts[0].Timestamp, "source2", factstream.Assert)
	assert.NoError(t, st.Append(same), "equal timestamps satisfy the ordering rule")
}

func TestIterAll(t *testing.T) {
	st := openStore(t, filepath.Join(t.TempDir(), "facts.stream"))
	facts := testFacts(t)
	require.NoError(t, st.AppendBatch(facts))

	read := collectAll(t, st)
	require.Len(t, read, len(facts))
	for i := range facts {
		assert.Equal(t, facts[i].Entity, read[i].Entity)
		assert.True(t, read[i].Timestamp.Equal(facts[i].Timestamp))
	}
}

func TestIterFromBounds(t *testing.T) {
	st := openStore(t, filepath.Join(t.TempDir(), "facts.stream"))
	facts := testFacts(t)
	require.NoError(t, st.AppendBatch(facts))

	t.Run("before_all", func(t *testing.T) {
		read := collectFrom(t, st, ts(t, "2024-01-15T09:00:00Z"))
		assert.Len(t, read, 3)
	})

	t.Run("equal_to_middle", func(t *testing.T) {
		read := collectFrom(t, st, facts[1].Timestamp)
		require.Len(t, read, 2, "a fact at exactly the bound is included")
		assert.Equal(t, "item2", read[0].Entity)
		assert.Equal(t, "item3", read[1].Entity)
	})

	t.Run("after_all", func(t *testing.T) {
		read := collectFrom(t, st, ts(t, "2024-01-15T11:00:00Z"))
		assert.Empty(t, read)
	})
}

func TestDurabilityAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.stream")
	facts := testFacts(t)

	st := openStore(t, path)
	require.NoError(t, st.Append(facts[0]))

	// A new store instance over the same path stands in for a process
	// restart: the cache must be recovered from the file.
	st = openStore(t, path)
	latest, ok := st.LatestTimestamp()
	require.True(t, ok)
	assert.True(t, latest.Equal(facts[0].Timestamp))

	require.NoError(t, st.Append(facts[1]))

	st = openStore(t, path)
	assert.Len(t, collectAll(t, st), 2)
}

func TestRecoveryToleratesCorruptedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.stream")
	facts := testFacts(t)

	st := openStore(t, path)
	require.NoError(t, st.AppendBatch(facts[:2]))

	// Simulate a crash mid-write: a truncated, undecodable final line.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`["item3",{"t":"Cou`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	st = openStore(t, path)
	latest, ok := st.LatestTimestamp()
	require.True(t, ok, "store with corrupted tail must still open")
	assert.True(t, latest.Equal(facts[1].Timestamp), "latest comes from the last decodable line")
}

func TestIterSurfacesDecodeErrorsPerItem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.stream")
	facts := testFacts(t)

	st := openStore(t, path)
	require.NoError(t, st.Append(facts[0]))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("garbage\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, st.Append(facts[1]))

	var good, bad int
	for _, err := range st.Iter() {
		if err != nil {
			var decodeErr *stream.DecodeError
			assert.ErrorAs(t, err, &decodeErr)
			bad++
			continue
		}
		good++
	}
	assert.Equal(t, 2, good, "facts around the malformed line are still yielded")
	assert.Equal(t, 1, bad)
}

func TestAppendLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.stream")
	st := openStore(t, path)
	facts := testFacts(t)
	require.NoError(t, st.Append(facts[0]))

	r, err := stream.NewReader[string, itemValue, string](path)
	require.NoError(t, err)
	defer r.Close()

	err = st.Append(facts[1])
	assert.ErrorIs(t, err, stream.ErrAlreadyLocked)

	latest, _ := st.LatestTimestamp()
	assert.True(t, latest.Equal(facts[0].Timestamp), "failed append must not move the cache")
}

func TestPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.stream")
	st := openStore(t, path)
	assert.Equal(t, path, st.Path())
}
