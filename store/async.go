package store

import (
	"context"
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

// AsyncStore is the context-aware variant of Store with an identical
// external contract: same error taxonomy, same whole-batch ordering rule,
// same linear-scan iteration semantics. The context applies at the
// suspension points - the lock-wait retry sleep and iteration between
// lines. A batch write itself is atomic: fully applied or not attempted.
type AsyncStore[E, V, S any] struct {
	path string
	cfg  config

	mu        sync.RWMutex
	latest    time.Time
	hasLatest bool
}

// OpenOrCreateAsync opens the fact store at path, creating parent
// directories as needed and recovering the latest timestamp by one tolerant
// linear scan. The scan checks ctx between lines.
func OpenOrCreateAsync[E, V, S any](ctx context.Context, path string, opts ...Option) (*AsyncStore[E, V, S], error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	st := &AsyncStore[E, V, S]{path: path, cfg: newConfig(opts)}

	latest, ok, err := recoverLatestContext[E, V, S](ctx, path)
	if err != nil {
		return nil, err
	}
	st.latest, st.hasLatest = latest, ok
	return st, nil
}

// Append appends a single fact, enforcing timestamp ordering.
func (s *AsyncStore[E, V, S]) Append(ctx context.Context, fact factstream.Fact[E, V, S]) error {
	return s.AppendBatch(ctx, []factstream.Fact[E, V, S]{fact})
}

// AppendBatch durably appends all facts, or none of them. See
// Store.AppendBatch for the ordering rule; ctx bounds the wait for the
// stream's exclusive lock.
func (s *AsyncStore[E, V, S]) AppendBatch(ctx context.Context, facts []factstream.Fact[E, V, S]) error {
	if len(facts) == 0 {
		return nil
	}

	if err := s.checkOrdering(facts); err != nil {
		return err
	}

	w, err := stream.NewAsyncWriter[E, V, S](s.path, stream.WithLockTimeout(s.cfg.lockTimeout))
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.WriteBatch(ctx, facts); err != nil {
		return err
	}

	s.mu.Lock()
	s.latest = facts[len(facts)-1].Timestamp
	s.hasLatest = true
	s.mu.Unlock()
	return nil
}

func (s *AsyncStore[E, V, S]) checkOrdering(facts []factstream.Fact[E, V, S]) error {
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

// LatestTimestamp returns the cached latest timestamp. The second return is
// false for a store that has never held a fact.
func (s *AsyncStore[E, V, S]) LatestTimestamp() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

// Path returns the backing file path.
func (s *AsyncStore[E, V, S]) Path() string {
	return s.path
}

// Iter iterates over every fact in the store in file order.
func (s *AsyncStore[E, V, S]) Iter(ctx context.Context) iter.Seq2[factstream.Fact[E, V, S], error] {
	return s.IterFrom(ctx, time.Time{})
}

// IterFrom lazily yields every fact with a timestamp at or after since, in
// file order, with the same semantics as Store.IterFrom. Cancellation of
// ctx surfaces as a final ctx.Err() item and ends the sequence.
func (s *AsyncStore[E, V, S]) IterFrom(ctx context.Context, since time.Time) iter.Seq2[factstream.Fact[E, V, S], error] {
	return func(yield func(factstream.Fact[E, V, S], error) bool) {
		var zero factstream.Fact[E, V, S]

		file, err := os.Open(s.path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				yield(zero, fmt.Errorf("open stream for reading: %w", err))
			}
			return
		}
		defer file.Close()

		found := false
		for fact, err := range stream.Scan[E, V, S](file) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(zero, ctxErr)
				return
			}
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

func recoverLatestContext[E, V, S any](ctx context.Context, path string) (time.Time, bool, error) {
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
		if ctxErr := ctx.Err(); ctxErr != nil {
			return time.Time{}, false, ctxErr
		}
		if err != nil {
			continue
		}
		latest, found = fact.Timestamp, true
	}
	return latest, found, nil
}
