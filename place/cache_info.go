package place

import "time"

// EntryInfo describes the cache state for one key in one cache.
type EntryInfo struct {
	// Cached reports whether a result, positive or negative, is recorded.
	Cached bool
	// Fresh reports whether the recorded result is still within its TTL.
	Fresh bool `json:",omitempty"`
	// Negative reports whether the recorded result is a cached miss.
	Negative bool `json:",omitempty"`
	// Fetching reports whether a fetch for the key is currently in flight.
	Fetching bool `json:",omitempty"`
	// Age is the time since the result was recorded.
	Age time.Duration `json:",omitempty"`
}

// CacheInfo reports the cache state of a single place across the detail and
// photo caches. It exists for diagnostics and tests, not for cache control.
type CacheInfo struct {
	Details EntryInfo
	Photos  EntryInfo
}
