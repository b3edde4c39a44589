package stream

import "time"

// Option configures a Writer or Reader.
type Option func(*config)

type config struct {
	lockTimeout time.Duration
}

// WithLockTimeout switches lock acquisition from immediate-fail to bounded
// retry: contention is polled every 100ms until the lock is granted or the
// timeout elapses. A zero timeout restores the default single attempt.
func WithLockTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.lockTimeout = timeout
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
