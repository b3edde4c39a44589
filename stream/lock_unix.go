//go:build unix

package stream

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// tryLockExclusive attempts a non-blocking exclusive flock on f.
// Returns ErrAlreadyLocked when another holder has a conflicting lock.
func tryLockExclusive(f *os.File) error {
	return tryFlock(f, unix.LOCK_EX)
}

// tryLockShared attempts a non-blocking shared flock on f. Shared locks are
// compatible with each other and conflict only with an exclusive holder.
func tryLockShared(f *os.File) error {
	return tryFlock(f, unix.LOCK_SH)
}

func tryFlock(f *os.File, how int) error {
	err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
	if err == nil {
		return nil
	}
	// EWOULDBLOCK (EAGAIN on Linux) means a conflicting holder exists.
	if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
		return ErrAlreadyLocked
	}
	return fmt.Errorf("flock %s: %w", f.Name(), err)
}

// unlock releases any advisory lock held on f. The kernel also releases the
// lock when the file is closed or the process exits, so unlock is a
// courtesy for long-lived handles, not a correctness requirement.
func unlock(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock %s: %w", f.Name(), err)
	}
	return nil
}
