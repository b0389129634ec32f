package placehttp

import (
	"context"
	"encoding/json"
	"strconv"
)

// photoHandle is a reference to one photo served by the provider's media
// endpoint. Materializing a URL is itself a provider call and may fail for
// one photo while succeeding for another of the same place.
type photoHandle struct {
	client *Client
	record photoRecord
}

// mediaResponse is the provider's answer to a media request.
type mediaResponse struct {
	URL string
}

func (h *photoHandle) URL(ctx context.Context, maxWidth, maxHeight int) (string, error) {
	u := h.client.mediaURL.JoinPath(h.record.Name)
	q := u.Query()
	if maxWidth > 0 {
		q.Set("maxWidth", strconv.Itoa(maxWidth))
	}
	if maxHeight > 0 {
		q.Set("maxHeight", strconv.Itoa(maxHeight))
	}
	u.RawQuery = q.Encode()

	body, err := h.client.get(ctx, u)
	if err != nil {
		return "", err
	}

	var media mediaResponse
	err = json.Unmarshal(body, &media)
	if err != nil {
		return "", err
	}
	return media.URL, nil
}

func (h *photoHandle) Attribution() string {
	return h.record.Attribution
}
