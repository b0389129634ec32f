package place

import (
	"context"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64
	Lng float64
}

// Details describes a single place. All fields other than Key are optional
// and populated only when the provider was asked for them and had data.
type Details struct {
	// Key is the provider-scoped place identifier. It is treated as opaque
	// text and is only meaningful to the provider that issued it.
	Key string
	// Name is the display name of the place.
	Name string `json:",omitempty"`
	// Kinds are the provider's category tags for the place, such as
	// "museum" or "cafe". The first entry is the primary category.
	Kinds []string `json:",omitempty"`
	// Address is the formatted postal address.
	Address string `json:",omitempty"`
	// Location is the place coordinate, if known.
	Location *Location `json:",omitempty"`
	// Rating is the average user rating, 0 when unrated.
	Rating float64 `json:",omitempty"`
	// RatingCount is the number of ratings behind Rating.
	RatingCount int    `json:",omitempty"`
	Website     string `json:",omitempty"`
	Phone       string `json:",omitempty"`
	// Open reports whether the place is open at the time of the lookup. It
	// is nil when the provider has no opening hours for the place.
	Open *bool `json:",omitempty"`
	// Attribution is the credit line that must be shown with this data.
	Attribution string `json:",omitempty"`
}

// Photo is a reference to a single place photo. Getting a photo reference
// does not fetch image data. A fetchable URL for the image is produced on
// demand by URL, and producing it may fail independently for each photo.
type Photo interface {
	// URL returns a fetchable URL for the photo image, sized to fit within
	// maxWidth and maxHeight pixels. A dimension of 0 leaves that axis
	// unconstrained.
	URL(ctx context.Context, maxWidth, maxHeight int) (string, error)
	// Attribution returns the credit line that must be shown with the
	// photo, if any.
	Attribution() string
}

// Provider is an interface for fetching place information from an upstream
// place API. All operations are read-only and idempotent, so repeating a
// request is always safe. Implementations report a missing place as an error
// carrying a not-found status, never as a nil result.
type Provider interface {
	// Details gets the requested detail fields for a specific place.
	Details(ctx context.Context, key string, fields []string) (*Details, error)
	// Photos gets references to the photos of a specific place.
	Photos(ctx context.Context, key string) ([]Photo, error)
}
