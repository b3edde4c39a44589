package aggregate

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/roach88/factstream"
)

// Aggregator accumulates the facts of one entity into domain state. The
// engine creates one instance per distinct entity and calls Assert or
// Retract for each fact in input order. Implementations are almost always
// pointer types, since both methods mutate.
type Aggregator[V, S any] interface {
	Assert(value V, source S)
	Retract(value V, source S)
}

// UnknownAggregator is an optional extension of Aggregator. When a fact's
// value reports itself as an unknown attribute, the engine calls these
// methods instead of Assert and Retract. Aggregators that do not implement
// the interface simply never see unknown attributes.
type UnknownAggregator[S any] interface {
	AssertUnknown(tag string, content json.RawMessage, source S)
	RetractUnknown(tag string, content json.RawMessage, source S)
}

// Builder is an Aggregator whose accumulated state can be consumed once
// into a validated output value. Build may fail, typically on a missing
// required field, and is never called twice on the same instance.
type Builder[V, S, O any] interface {
	Aggregator[V, S]
	Build() (O, error)
}

// BuildError reports the entity whose Build call failed, together with how
// many facts had been folded into it.
type BuildError[E any] struct {
	Entity E
	Facts  int
	Err    error
}

func (e *BuildError[E]) Error() string {
	return fmt.Sprintf("build aggregate for entity %v after %d facts: %v", e.Entity, e.Facts, e.Err)
}

func (e *BuildError[E]) Unwrap() error { return e.Err }

// Aggregate folds facts into one aggregator per entity. Aggregators are
// created on first reference via newAggregator and returned keyed by
// entity. Facts are consumed in input order; the caller controls that
// order, which for a store iterator is file order and hence chronological.
func Aggregate[E comparable, V, S any, A Aggregator[V, S]](facts iter.Seq[factstream.Fact[E, V, S]], newAggregator func() A) map[E]A {
	out := make(map[E]A)
	for fact := range facts {
		agg, ok := out[fact.Entity]
		if !ok {
			agg = newAggregator()
			out[fact.Entity] = agg
		}
		dispatch(agg, fact)
	}
	return out
}

// AggregateBuild folds facts as Aggregate does, then finalizes every
// aggregator via Build after the whole input has been consumed. The first
// Build failure aborts with a BuildError naming the entity; results built
// before the failure are discarded.
func AggregateBuild[E comparable, V, S, O any, A Builder[V, S, O]](facts iter.Seq[factstream.Fact[E, V, S]], newBuilder func() A) (map[E]O, error) {
	builders := make(map[E]A)
	counts := make(map[E]int)
	for fact := range facts {
		b, ok := builders[fact.Entity]
		if !ok {
			b = newBuilder()
			builders[fact.Entity] = b
		}
		counts[fact.Entity]++
		dispatch(b, fact)
	}

	out := make(map[E]O, len(builders))
	for entity, b := range builders {
		built, err := b.Build()
		if err != nil {
			return nil, &BuildError[E]{Entity: entity, Facts: counts[entity], Err: err}
		}
		out[entity] = built
	}
	return out, nil
}

// Valid adapts a fact-and-error sequence, as produced by a store iterator,
// into a plain fact sequence by dropping error items. Use it when feeding
// an iterator with tolerable decode errors straight into Aggregate.
func Valid[E, V, S any](facts iter.Seq2[factstream.Fact[E, V, S], error]) iter.Seq[factstream.Fact[E, V, S]] {
	return func(yield func(factstream.Fact[E, V, S]) bool) {
		for fact, err := range facts {
			if err != nil {
				continue
			}
			if !yield(fact) {
				return
			}
		}
	}
}

func dispatch[E comparable, V, S any, A Aggregator[V, S]](agg A, fact factstream.Fact[E, V, S]) {
	if uv, ok := any(fact.Value).(factstream.UnknownValue); ok {
		if attr, isUnknown := uv.Unknown(); isUnknown {
			u, ok := any(agg).(UnknownAggregator[S])
			if !ok {
				return
			}
			switch fact.Operation {
			case factstream.Assert:
				u.AssertUnknown(attr.Tag, attr.Content, fact.Source)
			case factstream.Retract:
				u.RetractUnknown(attr.Tag, attr.Content, fact.Source)
			}
			return
		}
	}

	switch fact.Operation {
	case factstream.Assert:
		agg.Assert(fact.Value, fact.Source)
	case factstream.Retract:
		agg.Retract(fact.Value, fact.Source)
	}
}
