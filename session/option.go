package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/tripatlas/go-placemeta/pcache"
	"github.com/tripatlas/go-placemeta/place"
)

type config struct {
	ttl           time.Duration
	maxConcurrent int
	waitTimeout   time.Duration
	sweepInterval time.Duration
	detailFields  []string
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		ttl:           pcache.DefaultTTL,
		maxConcurrent: pcache.DefaultMaxConcurrent,
		waitTimeout:   pcache.DefaultWaitTimeout,
		detailFields:  place.DefaultDetailFields,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithTTL sets how long a fetched result, including the fact that a place had
// nothing, stays usable before the place is fetched again on demand. Both the
// photo and detail caches use this TTL.
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

// WithMaxConcurrent limits the number of photo fetches in flight at the same
// time. Requests beyond the limit wait their turn in request order.
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

// WithWaitTimeout bounds how long a photo request waits for a fetch before
// giving up and reporting no photos. The fetch itself keeps running so that
// its result is cached for later requests.
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

// WithSweepInterval starts a background sweep that removes expired cache
// entries every interval, bounding memory held by entries nothing asks for
// anymore. Zero, the default, disables the sweep; freshness is checked on
// every read, so correctness never depends on sweeping.
func WithSweepInterval(interval time.Duration) Option {
	return func(cfg *config) error {
		if interval < 0 {
			return errors.New("sweep interval cannot be negative")
		}
		cfg.sweepInterval = interval
		return nil
	}
}

// WithDetailFields sets the detail fields requested from the provider for
// detail lookups.
//
// Default is place.DefaultDetailFields.
func WithDetailFields(fields ...string) Option {
	return func(cfg *config) error {
		if len(fields) != 0 {
			cfg.detailFields = fields
		}
		return nil
	}
}
