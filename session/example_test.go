package session_test

import (
	"context"
	"fmt"
	"time"

	"github.com/tripatlas/go-placemeta/place"
	"github.com/tripatlas/go-placemeta/placehttp"
	"github.com/tripatlas/go-placemeta/session"
)

func ExampleSession() {
	// Create a provider client and a session over it.
	client, err := placehttp.New("https://places.example.net",
		placehttp.WithAPIKey("secret"),
		placehttp.RetryableHTTPClient(3, time.Second, 10*time.Second))
	if err != nil {
		panic(err)
	}

	ses, err := session.New(client,
		session.WithTTL(5*time.Minute),
		session.WithDetailFields(place.FieldName, place.FieldAddress, place.FieldRating))
	if err != nil {
		panic(err)
	}
	defer ses.Close()

	ctx := context.Background()

	// The user selected a place, so load its details.
	details, token, err := ses.Details(ctx, "pl-downtown-cafe", false)
	if err != nil {
		panic(err)
	}
	if details == nil {
		fmt.Println("no such place")
		return
	}
	// The user may have selected another place while this one loaded. Render
	// only the current selection.
	if !ses.IsCurrent(token) {
		return
	}
	fmt.Println(details.Name, details.Address)

	// Fetch a displayable photo URL. An empty URL means no photo could be
	// materialized and the consumer renders its placeholder.
	u, err := ses.PhotoURL(ctx, "pl-downtown-cafe", 640, 480)
	if err != nil {
		panic(err)
	}
	if u != "" {
		fmt.Println("photo:", u)
	}
}
