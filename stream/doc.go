// Package stream implements the low-level fact stream I/O: durable batched
// appends and lazy line-by-line reads over a single log file, serialized by
// OS advisory locks.
//
// # Locking discipline
//
// Writers take an exclusive flock, readers a shared one. Both support two
// acquisition modes: immediate (the default, failing with ErrAlreadyLocked
// on contention) and bounded retry (polling every 100ms up to a configured
// timeout, failing with LockTimeoutError when it expires). The writer holds
// its lock only for the duration of one WriteBatch call; a reader holds its
// shared lock from open until Close. Advisory locks are released by the OS
// when the backing file is closed, so an abandoned writer cannot leave the
// file locked.
//
// # Durability
//
// WriteBatch serializes the entire batch to memory before touching the
// file. A serialization failure therefore writes nothing. After the buffer
// is written the file is fsynced, so a nil return means the batch survives
// a crash.
//
// Most callers want the store package, which layers timestamp ordering and
// resumable iteration on top of this package.
package stream
