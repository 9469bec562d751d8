package middleware

import (
	"context"

	"github.com/mkarev/tokenvault/internal/model"
)

type contextKey int

const (
	accessTokenContextKey contextKey = iota
	fingerprintContextKey
)

// AccessTokenFromContext returns the authenticated access token stored by the
// Authenticate middleware.
func AccessTokenFromContext(ctx context.Context) (model.AccessToken, bool) {
	at, ok := ctx.Value(accessTokenContextKey).(model.AccessToken)
	return at, ok
}

// ContextWithAccessToken stores the authenticated access token.
func ContextWithAccessToken(ctx context.Context, at model.AccessToken) context.Context {
	return context.WithValue(ctx, accessTokenContextKey, at)
}

// FingerprintFromContext returns the device fingerprint captured by the
// DeviceInfo middleware, or nil when the middleware did not run.
func FingerprintFromContext(ctx context.Context) *model.DeviceFingerprint {
	fp, _ := ctx.Value(fingerprintContextKey).(*model.DeviceFingerprint)
	return fp
}

// ContextWithFingerprint stores the captured device fingerprint.
func ContextWithFingerprint(ctx context.Context, fp *model.DeviceFingerprint) context.Context {
	return context.WithValue(ctx, fingerprintContextKey, fp)
}
