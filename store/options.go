package store

import "time"

// Option configures a Store or AsyncStore at open.
type Option func(*config)

type config struct {
	lockTimeout time.Duration
}

// WithLockTimeout makes appends wait for the stream's exclusive lock with
// bounded retry instead of failing immediately on contention. The timeout
// is passed through to the underlying stream writer.
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
