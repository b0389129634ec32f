package placemeta

// Release is the current release version of go-placemeta.
const Release = "v0.3.2"
