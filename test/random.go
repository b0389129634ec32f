package test

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/tripatlas/go-placemeta/place"
)

var globalSeed atomic.Int64

var kinds = []string{"museum", "cafe", "park", "gallery", "restaurant", "landmark"}

// RandomPlaceKeys returns a slice of n random unique place keys.
func RandomPlaceKeys(n int) []string {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))
	keys := make([]string, n)
	keySet := make(map[string]struct{})
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("pl-%08x", rng.Int31())
		if _, ok := keySet[key]; ok {
			i--
			continue
		}
		keySet[key] = struct{}{}
		keys[i] = key
	}
	return keys
}

// RandomDetails returns a place detail record with randomized content for key.
func RandomDetails(key string) *place.Details {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))
	open := rng.Intn(2) == 0
	return &place.Details{
		Key:         key,
		Name:        fmt.Sprintf("Place %06x", rng.Int31n(1<<24)),
		Kinds:       []string{kinds[rng.Intn(len(kinds))]},
		Address:     fmt.Sprintf("%d Main Street", rng.Intn(9998)+1),
		Location:    &place.Location{Lat: rng.Float64()*180 - 90, Lng: rng.Float64()*360 - 180},
		Rating:      float64(rng.Intn(41)+10) / 10,
		RatingCount: rng.Intn(5000) + 1,
		Open:        &open,
		Attribution: "Example Place Data",
	}
}
