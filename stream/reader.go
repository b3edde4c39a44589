package stream

import (
	"fmt"
	"iter"
	"os"

	"github.com/roach88/factstream"
)

// Reader produces a lazy, forward-only sequence of decoded facts from a
// stream file, one per line, under a shared advisory lock.
//
// Blank lines are skipped silently. A line that fails to decode is surfaced
// as a DecodeError item in its position without ending the sequence. The
// shared lock is held from NewReader until Close; restart iteration by
// reopening.
type Reader[E, V, S any] struct {
	file *os.File
	sc   *lineScanner[E, V, S]
}

// NewReader opens the stream file at path and acquires a shared lock,
// immediately or with bounded retry per WithLockTimeout. On lock failure
// the file is closed before the error is returned.
func NewReader[E, V, S any](path string, opts ...Option) (*Reader[E, V, S], error) {
	cfg := newConfig(opts)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stream for reading: %w", err)
	}
	if err := acquire(file, tryLockShared, cfg.lockTimeout); err != nil {
		file.Close()
		return nil, err
	}
	return newReaderFromFile[E, V, S](file), nil
}

// newReaderFromFile wraps an already-opened, already-locked file.
func newReaderFromFile[E, V, S any](file *os.File) *Reader[E, V, S] {
	return &Reader[E, V, S]{file: file, sc: newLineScanner[E, V, S](file)}
}

// Facts returns the single-use sequence of decoded facts. Each item is
// either a fact or the error for its line; end of file ends the sequence
// without an error item.
func (r *Reader[E, V, S]) Facts() iter.Seq2[factstream.Fact[E, V, S], error] {
	return r.sc.seq()
}

// Close releases the shared lock and closes the file.
func (r *Reader[E, V, S]) Close() error {
	return r.file.Close()
}
