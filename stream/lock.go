package stream

import (
	"context"
	"errors"
	"os"
	"time"
)

// lockRetryInterval is the poll interval used by bounded-retry acquisition.
const lockRetryInterval = 100 * time.Millisecond

// acquire obtains an advisory lock via try, in one of two modes.
//
// With a zero timeout it makes a single attempt and surfaces contention as
// ErrAlreadyLocked. With a nonzero timeout it polls every lockRetryInterval
// until the lock is granted or the timeout elapses, in which case it returns
// a LockTimeoutError. I/O-level failures propagate unchanged in either mode.
func acquire(f *os.File, try func(*os.File) error, timeout time.Duration) error {
	start := time.Now()
	for {
		err := try(f)
		if err == nil || !errors.Is(err, ErrAlreadyLocked) {
			return err
		}
		if timeout <= 0 {
			return ErrAlreadyLocked
		}
		if time.Since(start)+lockRetryInterval > timeout {
			return &LockTimeoutError{Timeout: timeout}
		}
		time.Sleep(lockRetryInterval)
	}
}

// acquireContext is acquire with the retry sleep as a cancellation point.
// The single zero-timeout attempt never blocks, so it ignores ctx.
func acquireContext(ctx context.Context, f *os.File, try func(*os.File) error, timeout time.Duration) error {
	start := time.Now()
	for {
		err := try(f)
		if err == nil || !errors.Is(err, ErrAlreadyLocked) {
			return err
		}
		if timeout <= 0 {
			return ErrAlreadyLocked
		}
		if time.Since(start)+lockRetryInterval > timeout {
			return &LockTimeoutError{Timeout: timeout}
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
