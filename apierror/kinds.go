package apierror

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// IsNotFound reports whether err says the requested place does not exist
// upstream. Not-found is a definitive answer, so callers may cache it.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsRateLimited reports whether err says the provider refused the request
// because of quota or rate limits. Rate-limit failures are transient and
// must not be cached.
func IsRateLimited(err error) bool {
	return statusOf(err) == http.StatusTooManyRequests
}

// IsTimeout reports whether err resulted from the provider, or the transport
// to it, timing out.
func IsTimeout(err error) bool {
	switch statusOf(err) {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}

func statusOf(err error) int {
	var apierr *Error
	if errors.As(err, &apierr) {
		return apierr.Status()
	}
	return 0
}
