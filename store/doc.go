// Package store provides the durable, ordering-enforced fact container:
// batched appends that preserve monotonic timestamp order and resumable,
// timestamp-filtered iteration over everything appended so far.
//
// A Store owns a path and a cached latest timestamp. The cache is recovered
// once at open by a linear scan of the file (tolerating a corrupted tail)
// and updated after each successful append; the file itself remains the
// source of truth. Every batch is validated against the cache before
// anything is written: one fact older than the latest timestamp rejects the
// whole batch, leaving file and cache untouched.
//
// The ordering check is only as fresh as this store instance's own writes.
// Two independently opened stores (or processes) appending to one file can
// each hold a stale cache and violate monotonicity undetected; callers that
// need multi-writer safety must serialize store opens externally.
//
// Iteration is a linear scan from the start of the file on every call. This
// is a deliberate simplification - no index is maintained - so IterFrom is
// O(file size) regardless of the since bound.
//
// Store blocks on I/O and lock waits; AsyncStore is the context-aware
// variant with an identical contract.
package store
