package store

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roach88/factstream"
	"github.com/roach88/factstream/stream"
)

// Store is a thread-safe fact store over a single stream file, enforcing
// monotonic timestamp order across appends.
//
// The latest-timestamp cache is per store instance and guarded by a
// read/write mutex: append validation reads it under the read lock, only a
// successful durable write updates it under the write lock. Concurrent
// callers of one instance are safe; independently opened instances over the
// same file are not coordinated (see the package comment).
type Store[E, V, S any] struct {
	path string
	cfg  config

	mu     sync.RWMutex
	latest time.Time
	// hasLatest distinguishes an empty store from one whose latest fact
	// carries the zero timestamp.
	hasLatest bool
}

// OpenOrCreate opens the fact store at path, creating parent directories as
// needed. If the file exists, the latest timestamp is recovered by one
// linear scan; lines that fail to decode are skipped so that a tail
// corrupted by a crash mid-write does not prevent opening.
func OpenOrCreate[E, V, S any](path string, opts ...Option) (*Store[E, V, S], error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	st := &Store[E, V, S]{path: path, cfg: newConfig(opts)}

	latest, ok, err := recoverLatest[E, V, S](path)
	if err != nil {
		return nil, err
	}
	st.latest, st.hasLatest = latest, ok
	return st, nil
}

// Append appends a single fact, enforcing timestamp ordering.
func (s *Store[E, V, S]) Append(fact factstream.Fact[E, V, S]) error {
	return s.AppendBatch([]factstream.Fact[E, V, S]{fact})
}

// AppendBatch durably appends all facts, or none of them.
//
// An empty batch is a no-op. Every fact's timestamp must be at or after the
// cached latest timestamp; one violation rejects the whole batch with a
// TimestampOrderingError and writes nothing. On success the cache advances
// to the final fact's timestamp.
func (s *Store[E, V, S]) AppendBatch(facts []factstream.Fact[E, V, S]) error {
	if len(facts) == 0 {
		return nil
	}

	if err := s.checkOrdering(facts); err != nil {
		return err
	}

	w, err := stream.NewWriter[E, V, S](s.path, stream.WithLockTimeout(s.cfg.lockTimeout))
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.WriteBatch(facts); err != nil {
		return err
	}

	s.advance(facts[len(facts)-1].Timestamp)
	return nil
}

// checkOrdering validates the batch against the cached latest timestamp
// under the read lock. The cache, not the file, is consulted: within one
// store instance this is exact, across instances it can be stale.
func (s *Store[E, V, S]) checkOrdering(facts []factstream.Fact[E, V, S]) error {
	s.mu.RLock()
	latest, ok := s.latest, s.hasLatest
	s.mu.RUnlock()

	if !ok {
		return nil
	}
	for _, fact := range facts {
		if fact.Timestamp.Before(latest) {
			return &TimestampOrderingError{New: fact.Timestamp, Latest: latest}
		}
	}
	return nil
}

func (s *Store[E, V, S]) advance(ts time.Time) {
	s.mu.Lock()
	s.latest = ts
	s.hasLatest = true
	s.mu.Unlock()
}

// LatestTimestamp returns the cached latest timestamp. The second return is
// false for a store that has never held a fact.
func (s *Store[E, V, S]) LatestTimestamp() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

// Path returns the backing file path.
func (s *Store[E, V, S]) Path() string {
	return s.path
}

// Iter iterates over every fact in the store in file order.
func (s *Store[E, V, S]) Iter() iter.Seq2[factstream.Fact[E, V, S], error] {
	return s.IterFrom(time.Time{})
}

// IterFrom lazily yields every fact with a timestamp at or after since, in
// file order. The scan is linear from the beginning of the file; once the
// first fact at or after since is found, all subsequent facts are yielded
// without further filtering. Lines that fail to decode surface as per-item
// errors in position and do not end the sequence.
//
// Iteration reads without taking the advisory lock, so it can run
// concurrently with a writer; the append-plus-fsync write discipline keeps
// every previously written line intact.
func (s *Store[E, V, S]) IterFrom(since time.Time) iter.Seq2[factstream.Fact[E, V, S], error] {
	return func(yield func(factstream.Fact[E, V, S], error) bool) {
		var zero factstream.Fact[E, V, S]

		file, err := os.Open(s.path)
		if err != nil {
			// A store that was opened but never appended to has no
			// file yet; that is an empty sequence, not an error.
			if !errors.Is(err, fs.ErrNotExist) {
				yield(zero, fmt.Errorf("open stream for reading: %w", err))
			}
			return
		}
		defer file.Close()

		found := false
		for fact, err := range stream.Scan[E, V, S](file) {
			if err != nil {
				if !yield(zero, err) {
					return
				}
				continue
			}
			if !found {
				if fact.Timestamp.Before(since) {
					continue
				}
				found = true
			}
			if !yield(fact, nil) {
				return
			}
		}
	}
}

// recoverLatest scans the file once, keeping the timestamp of the last line
// that decodes. Malformed lines are tolerated here (and only here): a crash
// between write and sync can leave a truncated tail, and that must not make
// the store unopenable.
func recoverLatest[E, V, S any](path string) (time.Time, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("open stream for recovery: %w", err)
	}
	defer file.Close()

	var latest time.Time
	var found bool
	for fact, err := range stream.Scan[E, V, S](file) {
		if err != nil {
			continue
		}
		latest, found = fact.Timestamp, true
	}
	return latest, found, nil
}
