package pcache

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTTL is the default cache entry time-to-live.
	DefaultTTL = 15 * time.Minute
	// DefaultMaxConcurrent is the default limit on concurrent fetches.
	DefaultMaxConcurrent = 3
	// DefaultWaitTimeout is the default time a request waits for an
	// in-flight fetch before giving up.
	DefaultWaitTimeout = 10 * time.Second
)

type config struct {
	maxConcurrent int
	ttl           time.Duration
	waitTimeout   time.Duration
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		maxConcurrent: DefaultMaxConcurrent,
		ttl:           DefaultTTL,
		waitTimeout:   DefaultWaitTimeout,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithTTL sets the cache entry time-to-live duration. This is the time that
// a fetch result remains usable after it is recorded. Negative results age
// out on the same schedule as data.
//
// Default is 15 minutes.
func WithTTL(ttl time.Duration) Option {
	return func(cfg *config) error {
		if ttl > 0 {
			cfg.ttl = ttl
		}
		return nil
	}
}

// WithMaxConcurrent limits the number of upstream fetches that may be in
// flight at the same time. Claimed keys beyond the limit wait in a queue and
// are fetched in request order.
//
// Default is 3.
func WithMaxConcurrent(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("concurrent fetch limit must be at least 1")
		}
		cfg.maxConcurrent = n
		return nil
	}
}

// WithWaitTimeout bounds how long a request waits for an in-flight fetch
// before giving up and returning no data. The fetch itself keeps running so
// that its result is cached for later requests.
//
// Default is 10 seconds.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout > 0 {
			cfg.waitTimeout = timeout
		}
		return nil
	}
}
