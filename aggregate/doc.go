// Package aggregate folds a sequence of facts into per-entity state.
//
// The fold is generic: the caller supplies an Aggregator implementation and
// a factory for it, and the engine walks the facts in input order,
// dispatching each one to the aggregator for its entity. Cardinality policy
// lives entirely in the aggregator. "Latest wins" and "accumulate, retract
// removes a matching element" are both expressed the same way from the
// engine's point of view.
//
// Values whose type reports an unknown attribute (see
// factstream.UnknownValue) are routed to the optional UnknownAggregator
// methods instead of Assert and Retract, so aggregators can opt in to
// attributes written by newer schemas.
package aggregate
