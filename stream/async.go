package stream

import (
	"context"
	"fmt"
	"iter"
	"os"

	"github.com/roach88/factstream"
)

// AsyncWriter is the context-aware variant of Writer with an otherwise
// identical contract: same locking modes, same all-or-nothing batch
// serialization, same durability barrier. The context applies at the
// suspension point - the retry sleep while waiting for the lock.
type AsyncWriter[E, V, S any] struct {
	file *os.File
	cfg  config
}

// NewAsyncWriter opens (creating if absent) the stream file at path in
// append mode. No lock is taken until the first WriteBatch.
func NewAsyncWriter[E, V, S any](path string, opts ...Option) (*AsyncWriter[E, V, S], error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open stream for writing: %w", err)
	}
	return &AsyncWriter[E, V, S]{file: file, cfg: newConfig(opts)}, nil
}

// WriteBatch durably appends all facts in order, waiting for the exclusive
// lock under ctx. Once the lock is held the write itself is not
// interruptible: a batch is fully applied or not attempted.
func (w *AsyncWriter[E, V, S]) WriteBatch(ctx context.Context, facts []factstream.Fact[E, V, S]) error {
	buf, err := encodeBatch(facts)
	if err != nil {
		return err
	}

	if err := acquireContext(ctx, w.file, tryLockExclusive, w.cfg.lockTimeout); err != nil {
		return err
	}
	defer unlock(w.file)

	if _, err := w.file.Write(buf); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync stream: %w", err)
	}
	return nil
}

// Close closes the stream file, releasing any advisory lock with it.
func (w *AsyncWriter[E, V, S]) Close() error {
	return w.file.Close()
}

// AsyncReader is the context-aware variant of Reader: the shared-lock wait
// at open honors ctx, and iteration checks ctx between lines.
type AsyncReader[E, V, S any] struct {
	inner *Reader[E, V, S]
}

// NewAsyncReader opens the stream file at path and acquires a shared lock,
// waiting under ctx when a lock timeout is configured.
func NewAsyncReader[E, V, S any](ctx context.Context, path string, opts ...Option) (*AsyncReader[E, V, S], error) {
	cfg := newConfig(opts)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stream for reading: %w", err)
	}
	if err := acquireContext(ctx, file, tryLockShared, cfg.lockTimeout); err != nil {
		file.Close()
		return nil, err
	}
	return &AsyncReader[E, V, S]{inner: newReaderFromFile[E, V, S](file)}, nil
}

// Facts returns the single-use sequence of decoded facts. Cancellation of
// ctx surfaces as a final ctx.Err() item and ends the sequence.
func (r *AsyncReader[E, V, S]) Facts(ctx context.Context) iter.Seq2[factstream.Fact[E, V, S], error] {
	return func(yield func(factstream.Fact[E, V, S], error) bool) {
		var zero factstream.Fact[E, V, S]
		for {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			fact, err, ok := r.inner.sc.next()
			if !ok {
				return
			}
			if !yield(fact, err) {
				return
			}
		}
	}
}

// Close releases the shared lock and closes the file.
func (r *AsyncReader[E, V, S]) Close() error {
	return r.inner.Close()
}
