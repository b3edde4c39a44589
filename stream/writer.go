package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/roach88/factstream"
)

// Writer appends batches of facts to a stream file under an exclusive
// advisory lock.
//
// The lock is not held between batches: each WriteBatch acquires it, writes,
// syncs, and releases, so readers can interleave with a long-lived writer.
// Close releases the underlying file; so does process exit.
type Writer[E, V, S any] struct {
	file *os.File
	cfg  config
}

// NewWriter opens (creating if absent) the stream file at path in append
// mode. No lock is taken until the first WriteBatch.
func NewWriter[E, V, S any](path string, opts ...Option) (*Writer[E, V, S], error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open stream for writing: %w", err)
	}
	return &Writer[E, V, S]{file: file, cfg: newConfig(opts)}, nil
}

// WriteBatch durably appends all facts in order.
//
// The batch is serialized to memory first; if any fact fails to encode,
// nothing is written. The exclusive lock is held only across the write
// itself, and a nil return means the bytes have been fsynced to disk.
func (w *Writer[E, V, S]) WriteBatch(facts []factstream.Fact[E, V, S]) error {
	buf, err := encodeBatch(facts)
	if err != nil {
		return err
	}

	if err := acquire(w.file, tryLockExclusive, w.cfg.lockTimeout); err != nil {
		return err
	}
	defer unlock(w.file)

	return w.writeLocked(buf)
}

func (w *Writer[E, V, S]) writeLocked(buf []byte) error {
	if _, err := w.file.Write(buf); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync stream: %w", err)
	}
	return nil
}

// Close closes the stream file, releasing any advisory lock with it.
func (w *Writer[E, V, S]) Close() error {
	return w.file.Close()
}

// encodeBatch serializes facts as newline-delimited JSON into one buffer.
// Fact encoding escapes embedded newlines, so each fact is exactly one line.
func encodeBatch[E, V, S any](facts []factstream.Fact[E, V, S]) ([]byte, error) {
	var buf bytes.Buffer
	for i, fact := range facts {
		data, err := json.Marshal(fact)
		if err != nil {
			return nil, fmt.Errorf("encode fact %d of %d: %w", i+1, len(facts), err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
