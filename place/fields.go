package place

// Detail field names that can be requested from a provider. Requesting only
// the fields that will be shown keeps provider billing and payload size down.
const (
	FieldName     = "name"
	FieldKinds    = "kinds"
	FieldAddress  = "address"
	FieldLocation = "location"
	FieldRating   = "rating"
	FieldWebsite  = "website"
	FieldPhone    = "phone"
	FieldOpen     = "open"
)

// DefaultDetailFields are the fields fetched when a caller does not choose
// its own field set. This covers what a detail panel typically renders.
var DefaultDetailFields = []string{
	FieldName,
	FieldKinds,
	FieldAddress,
	FieldLocation,
	FieldRating,
	FieldWebsite,
	FieldPhone,
	FieldOpen,
}
