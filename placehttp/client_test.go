package placehttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	placemeta "github.com/tripatlas/go-placemeta"
	"github.com/tripatlas/go-placemeta/apierror"
	"github.com/tripatlas/go-placemeta/place"
	"github.com/tripatlas/go-placemeta/placehttp"
)

func TestDetails(t *testing.T) {
	var gotFields, gotAPIKey, gotUserAgent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, http.MethodGet, req.Method)
		require.True(t, strings.HasPrefix(req.URL.Path, "/details/"))
		gotAPIKey = req.Header.Get("X-Api-Key")
		gotUserAgent = req.Header.Get("User-Agent")

		key := path.Base(req.URL.Path)
		if key != "pl-1" {
			http.Error(w, "no such place", http.StatusNotFound)
			return
		}
		gotFields = req.URL.Query().Get("fields")
		err := json.NewEncoder(w).Encode(&place.Details{
			Name:    "Glass Museum",
			Kinds:   []string{"museum"},
			Address: "12 Canal Street",
		})
		require.NoError(t, err)
	}))
	defer ts.Close()

	c, err := placehttp.New(ts.URL, placehttp.WithAPIKey("test-key"))
	require.NoError(t, err)

	details, err := c.Details(context.Background(), "pl-1", []string{place.FieldName, place.FieldAddress})
	require.NoError(t, err)
	require.Equal(t, "Glass Museum", details.Name)
	require.Equal(t, "12 Canal Street", details.Address)
	// The key is filled in when the provider response omits it.
	require.Equal(t, "pl-1", details.Key)

	require.Equal(t, "name,address", gotFields)
	require.Equal(t, "test-key", gotAPIKey)
	require.Equal(t, "go-placemeta/"+placemeta.Release, gotUserAgent)

	// An unknown place is an error with not-found status, so that callers
	// can cache the miss.
	_, err = c.Details(context.Background(), "pl-2", nil)
	require.Error(t, err)
	require.True(t, apierror.IsNotFound(err))
}

func TestPhotos(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.HasPrefix(req.URL.Path, "/photos/"):
			switch path.Base(req.URL.Path) {
			case "pl-1":
				_, err := w.Write([]byte(`[
  {"Name": "ph-broken", "WidthPx": 4032, "HeightPx": 3024, "Attribution": "A. Wanderer"},
  {"Name": "ph-good", "WidthPx": 1600, "HeightPx": 1200, "Attribution": "B. Traveler"}
]`))
				require.NoError(t, err)
			case "pl-empty":
				_, err := w.Write([]byte(`[]`))
				require.NoError(t, err)
			default:
				http.Error(w, "no such place", http.StatusNotFound)
			}
		case strings.HasPrefix(req.URL.Path, "/media/"):
			name := path.Base(req.URL.Path)
			if name == "ph-broken" {
				http.Error(w, "media unavailable", http.StatusGone)
				return
			}
			require.Equal(t, "640", req.URL.Query().Get("maxWidth"))
			require.Equal(t, "480", req.URL.Query().Get("maxHeight"))
			err := json.NewEncoder(w).Encode(map[string]string{"URL": "https://img.example.com/" + name})
			require.NoError(t, err)
		default:
			http.Error(w, "", http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c, err := placehttp.New(ts.URL)
	require.NoError(t, err)

	photos, err := c.Photos(context.Background(), "pl-1")
	require.NoError(t, err)
	require.Len(t, photos, 2)
	require.Equal(t, "A. Wanderer", photos[0].Attribution())
	require.Equal(t, "B. Traveler", photos[1].Attribution())

	// Materialization fails for one photo without affecting the others.
	_, err = photos[0].URL(context.Background(), 640, 480)
	require.Error(t, err)

	u, err := photos[1].URL(context.Background(), 640, 480)
	require.NoError(t, err)
	require.Equal(t, "https://img.example.com/ph-good", u)

	// A place with no photos is a valid answer, not an error.
	photos, err = c.Photos(context.Background(), "pl-empty")
	require.NoError(t, err)
	require.Nil(t, photos)

	_, err = c.Photos(context.Background(), "pl-unknown")
	require.Error(t, err)
	require.True(t, apierror.IsNotFound(err))
}

func TestRateLimitedNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c, err := placehttp.New(ts.URL, placehttp.RetryableHTTPClient(3, 10*time.Millisecond, 50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Details(context.Background(), "pl-1", nil)
	require.Error(t, err)
	require.True(t, apierror.IsRateLimited(err))
	require.ErrorContains(t, err, "quota exhausted")

	// No retries were spent on the rate-limit response.
	require.Equal(t, int32(1), calls.Load())
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "temporary", http.StatusServiceUnavailable)
			return
		}
		err := json.NewEncoder(w).Encode(&place.Details{Name: "Harbor Cafe"})
		require.NoError(t, err)
	}))
	defer ts.Close()

	c, err := placehttp.New(ts.URL, placehttp.RetryableHTTPClient(3, time.Millisecond, 10*time.Millisecond))
	require.NoError(t, err)

	details, err := c.Details(context.Background(), "pl-1", nil)
	require.NoError(t, err)
	require.Equal(t, "Harbor Cafe", details.Name)
	require.Equal(t, int32(3), calls.Load())
}

func TestTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c, err := placehttp.New(ts.URL, placehttp.WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Details(context.Background(), "pl-1", nil)
	require.Error(t, err)
	require.True(t, apierror.IsTimeout(err))
}

func TestNewValidation(t *testing.T) {
	_, err := placehttp.New("ftp://example.com")
	require.ErrorContains(t, err, "http or https")

	_, err = placehttp.New("not a url://")
	require.Error(t, err)

	_, err = placehttp.New("http://example.com", placehttp.RetryableHTTPClient(-1, 0, 0))
	require.ErrorContains(t, err, "option 0 failed")
}
