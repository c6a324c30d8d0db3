package gantry

// Version is the release of the gantry module. Release builds override it with
// -ldflags "-X github.com/aretw0/gantry.Version=...".
var Version = "0.1.0"
