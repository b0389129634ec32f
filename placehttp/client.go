// Package placehttp provides an HTTP client for place information APIs that
// serve place details, photo listings, and photo media over JSON endpoints.
// It implements the place.Provider interface consumed by the caching layer.
package placehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tripatlas/go-placemeta/apierror"
	"github.com/tripatlas/go-placemeta/place"
)

const (
	detailsPath = "details"
	photosPath  = "photos"
	mediaPath   = "media"
)

// Client is an HTTP client for the place information API.
type Client struct {
	c          *http.Client
	detailsURL *url.URL
	photosURL  *url.URL
	mediaURL   *url.URL
	header     http.Header
}

// Client must implement the provider contract.
var _ place.Provider = (*Client)(nil)

// New creates a new place provider HTTP client.
func New(baseURL string, options ...Option) (*Client, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url must have http or https scheme: %s", baseURL)
	}
	u.Path = ""

	httpClient := opts.client
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.timeout,
		}
	}
	if opts.retry != nil {
		rclient := &retryablehttp.Client{
			HTTPClient:   httpClient,
			RetryWaitMin: opts.retry.RetryWaitMin,
			RetryWaitMax: opts.retry.RetryWaitMax,
			RetryMax:     opts.retry.RetryMax,
			CheckRetry:   retryPolicy,
			Backoff:      retryablehttp.DefaultBackoff,
		}
		httpClient = rclient.StandardClient()
	}

	header := make(http.Header)
	header.Set("User-Agent", opts.userAgent)
	if opts.apiKey != "" {
		header.Set("X-Api-Key", opts.apiKey)
	}

	return &Client{
		c:          httpClient,
		detailsURL: u.JoinPath(detailsPath),
		photosURL:  u.JoinPath(photosPath),
		mediaURL:   u.JoinPath(mediaPath),
		header:     header,
	}, nil
}

// retryPolicy is retryablehttp.DefaultRetryPolicy except that rate-limit
// responses are not retried. Retrying those only spends more quota; the
// caller is told instead so it can back off.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Details gets the requested detail fields for the place identified by key.
// A place that the provider does not know is reported as an error with
// not-found status.
func (c *Client) Details(ctx context.Context, key string, fields []string) (*place.Details, error) {
	u := c.detailsURL.JoinPath(key)
	if len(fields) != 0 {
		q := u.Query()
		q.Set("fields", strings.Join(fields, ","))
		u.RawQuery = q.Encode()
	}

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var details place.Details
	err = json.Unmarshal(body, &details)
	if err != nil {
		return nil, err
	}
	if details.Key == "" {
		details.Key = key
	}
	return &details, nil
}

// photoRecord is the provider's wire form of one photo reference.
type photoRecord struct {
	Name        string
	WidthPx     int    `json:",omitempty"`
	HeightPx    int    `json:",omitempty"`
	Attribution string `json:",omitempty"`
}

// Photos gets references to the photos of the place identified by key. The
// returned references materialize fetchable URLs on demand; see Photo.
func (c *Client) Photos(ctx context.Context, key string) ([]place.Photo, error) {
	u := c.photosURL.JoinPath(key)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var records []photoRecord
	err = json.Unmarshal(body, &records)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	photos := make([]place.Photo, len(records))
	for i, rec := range records {
		photos[i] = &photoHandle{
			client: c,
			record: rec,
		}
	}
	return photos, nil
}

// get fetches u and returns the response body. A non-OK response is returned
// as an apierror carrying the response status.
func (c *Client) get(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for key, vals := range c.header {
		for _, val := range vals {
			req.Header.Add(key, val)
		}
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apierror.FromResponse(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) String() string {
	return c.detailsURL.Host
}
