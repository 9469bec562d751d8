package geo

import (
	"context"
	"fmt"
	"net"
)

// Local wraps another resolver and short-circuits loopback and private
// addresses to the deterministic LOCAL sentinel. The next resolver may be
// nil, in which case every non-local address resolves as unknown.
type Local struct {
	next Resolver
}

// NewLocal creates a Local resolver delegating non-local addresses to next.
func NewLocal(next Resolver) *Local {
	return &Local{next: next}
}

// Resolve implements Resolver.
func (l *Local) Resolve(ctx context.Context, ip string) (Location, error) {
	if isLocal(ip) {
		return Location{CountryCode: LocalCountryCode, Name: LocalName}, nil
	}
	if l.next == nil {
		return Location{}, fmt.Errorf("no upstream resolver for %s", ip)
	}
	return l.next.Resolve(ctx, ip)
}

func isLocal(ip string) bool {
	if ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified()
}
