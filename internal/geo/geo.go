// Package geo resolves IP addresses to coarse locations for credential
// enrichment and suspicious-login comparison.
package geo

import "context"

// Location is a coarse resolution result. The zero value means the address
// could not be resolved; callers treat it as "cannot compare".
type Location struct {
	CountryCode string
	Name        string
}

// Known reports whether the location carries a comparable country code.
func (l Location) Known() bool {
	return l.CountryCode != ""
}

// Sentinel values for loopback and private addresses, kept deterministic so
// local environments and tests never depend on a remote provider.
const (
	LocalCountryCode = "LOCAL"
	LocalName        = "Local Development"
)

// Resolver maps an IP address to a location. Implementations return the zero
// Location together with a non-nil error when resolution fails; issuance
// proceeds without location data in that case.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (Location, error)
}
