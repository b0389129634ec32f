package placehttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	placemeta "github.com/tripatlas/go-placemeta"
)

const defaultTimeout = 10 * time.Second

type config struct {
	client    *http.Client
	timeout   time.Duration
	apiKey    string
	userAgent string

	// retry holds retry settings to apply when building the HTTP client.
	retry *retryablehttp.Client
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		timeout:   defaultTimeout,
		userAgent: "go-placemeta/" + placemeta.Release,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClient uses an existing http.Client with the provider client. A client
// given here is used as-is, so WithTimeout has no effect on it.
func WithClient(c *http.Client) Option {
	return func(cfg *config) error {
		cfg.client = c
		return nil
	}
}

// WithTimeout configures the timeout to wait for a response to each provider
// request.
//
// Default is 10 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout > 0 {
			cfg.timeout = timeout
		}
		return nil
	}
}

// WithAPIKey sets the provider API key sent with every request.
func WithAPIKey(key string) Option {
	return func(cfg *config) error {
		cfg.apiKey = key
		return nil
	}
}

// WithUserAgent sets the value used for the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(cfg *config) error {
		cfg.userAgent = userAgent
		return nil
	}
}

// RetryableHTTPClient configures the client to retry failed requests with
// exponential backoff, waiting between waitMin and waitMax between attempts.
// Rate-limit responses are never retried; they are returned to the caller,
// which owns backoff policy for provider quota.
func RetryableHTTPClient(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(cfg *config) error {
		if retryMax < 0 {
			return fmt.Errorf("retry limit cannot be negative: %d", retryMax)
		}
		cfg.retry = &retryablehttp.Client{
			RetryWaitMin: waitMin,
			RetryWaitMax: waitMax,
			RetryMax:     retryMax,
		}
		return nil
	}
}
