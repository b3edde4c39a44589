package stream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// lockedFile opens a second handle on path and takes an exclusive lock.
func lockedFile(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open holder handle: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	if err := tryLockExclusive(f); err != nil {
		t.Fatalf("holder lock failed: %v", err)
	}
	return f
}

func TestAcquireImmediateModeFailsFast(t *testing.T) {
	path := writeRaw(t, "")
	lockedFile(t, path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	start := time.Now()
	err = acquire(f, tryLockExclusive, 0)
	if !errors.Is(err, ErrAlreadyLocked) {
		t.Errorf("acquire() = %v, want ErrAlreadyLocked", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("immediate mode took %s, want no retry wait", elapsed)
	}
}

func TestAcquireTimeoutModeRetriesThenFails(t *testing.T) {
	path := writeRaw(t, "")
	lockedFile(t, path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	timeout := 250 * time.Millisecond
	start := time.Now()
	err = acquire(f, tryLockExclusive, timeout)

	var lockTimeout *LockTimeoutError
	if !errors.As(err, &lockTimeout) {
		t.Fatalf("acquire() = %v, want *LockTimeoutError", err)
	}
	if lockTimeout.Timeout != timeout {
		t.Errorf("timeout in error = %s, want %s", lockTimeout.Timeout, timeout)
	}
	if elapsed := time.Since(start); elapsed < lockRetryInterval {
		t.Errorf("timeout mode returned after %s, want at least one retry interval", elapsed)
	}
}

func TestAcquireTimeoutModeSucceedsAfterRelease(t *testing.T) {
	path := writeRaw(t, "")
	holder := lockedFile(t, path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	go func() {
		time.Sleep(150 * time.Millisecond)
		unlock(holder)
	}()

	if err := acquire(f, tryLockExclusive, 2*time.Second); err != nil {
		t.Errorf("acquire() after release = %v, want nil", err)
	}
}

func TestAcquireContextCancelledDuringWait(t *testing.T) {
	path := writeRaw(t, "")
	lockedFile(t, path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err = acquireContext(ctx, f, tryLockExclusive, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("acquireContext() = %v, want context.Canceled", err)
	}
}

func TestIsLockContention(t *testing.T) {
	if !IsLockContention(ErrAlreadyLocked) {
		t.Error("IsLockContention(ErrAlreadyLocked) = false")
	}
	if !IsLockContention(&LockTimeoutError{Timeout: time.Second}) {
		t.Error("IsLockContention(LockTimeoutError) = false")
	}
	if IsLockContention(os.ErrNotExist) {
		t.Error("IsLockContention(ErrNotExist) = true")
	}
}

func TestSharedLocksExcludeExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.stream")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}

	shared, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer shared.Close()
	if err := tryLockShared(shared); err != nil {
		t.Fatalf("shared lock failed: %v", err)
	}

	other, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer other.Close()

	if err := tryLockShared(other); err != nil {
		t.Errorf("second shared lock = %v, want nil", err)
	}
	if err := tryLockExclusive(other); !errors.Is(err, ErrAlreadyLocked) {
		t.Errorf("exclusive over shared = %v, want ErrAlreadyLocked", err)
	}
}
