package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/roach88/factstream"
)

// lineScanner is the shared decode loop: one fact per non-blank line, blank
// lines skipped, decode failures surfaced as positioned per-item errors.
type lineScanner[E, V, S any] struct {
	br   *bufio.Reader
	line int
}

func newLineScanner[E, V, S any](r io.Reader) *lineScanner[E, V, S] {
	return &lineScanner[E, V, S]{br: bufio.NewReader(r)}
}

// next reads forward to the next non-blank line and decodes it. The third
// return is false at end of input.
func (sc *lineScanner[E, V, S]) next() (factstream.Fact[E, V, S], error, bool) {
	var zero factstream.Fact[E, V, S]
	for {
		data, readErr := sc.br.ReadBytes('\n')
		if len(data) > 0 {
			sc.line++
		}

		line := bytes.TrimSpace(data)
		if len(line) > 0 {
			var fact factstream.Fact[E, V, S]
			if err := json.Unmarshal(line, &fact); err != nil {
				return zero, &DecodeError{Line: sc.line, Err: err}, true
			}
			return fact, nil, true
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				return zero, fmt.Errorf("read stream: %w", readErr), true
			}
			return zero, nil, false
		}
	}
}

func (sc *lineScanner[E, V, S]) seq() iter.Seq2[factstream.Fact[E, V, S], error] {
	return func(yield func(factstream.Fact[E, V, S], error) bool) {
		for {
			fact, err, ok := sc.next()
			if !ok {
				return
			}
			if !yield(fact, err) {
				return
			}
		}
	}
}

// Scan decodes facts from r with the stream line discipline but without any
// locking; the caller controls the lifetime of r. The store package layers
// its timestamp filter on top of this.
func Scan[E, V, S any](r io.Reader) iter.Seq2[factstream.Fact[E, V, S], error] {
	return newLineScanner[E, V, S](r).seq()
}
