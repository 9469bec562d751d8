package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/mkarev/tokenvault/internal/logger"
	"github.com/mkarev/tokenvault/internal/model"
	"github.com/mkarev/tokenvault/internal/service"
)

// Request and response headers for opportunistic pre-expiry rotation.
const (
	HeaderRefreshToken    = "X-Refresh-Token"
	HeaderNewAccessToken  = "X-New-Access-Token"
	HeaderNewRefreshToken = "X-New-Refresh-Token"
	HeaderTokenExpiration = "X-Token-Expiration"
)

// rotationWindow is how close to expiry the access token must be before the
// middleware rotates it.
const rotationWindow = 5 * time.Minute

// Rotator is the token-service surface the refresh middleware needs.
type Rotator interface {
	RefreshTokenValid(ctx context.Context, refreshSecret string) bool
	Rotate(ctx context.Context, refreshSecret string, name string, abilities []string, fp *model.DeviceFingerprint) (service.IssueResult, error)
}

// Refresh rotates the caller's credential pair in-flight when the access
// token is about to expire and the request carries a still-valid refresh
// secret. The replacement pair is returned in response headers; the request
// itself proceeds either way. Must run after Authenticate.
func Refresh(tokens Rotator, l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			at, ok := AccessTokenFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			refreshSecret := r.Header.Get(HeaderRefreshToken)
			if refreshSecret == "" || time.Until(at.ExpiresAt) > rotationWindow {
				next.ServeHTTP(w, r)
				return
			}

			if !tokens.RefreshTokenValid(r.Context(), refreshSecret) {
				next.ServeHTTP(w, r)
				return
			}

			res, err := tokens.Rotate(r.Context(), refreshSecret, at.Name, at.Abilities, FingerprintFromContext(r.Context()))
			if err != nil {
				// Lost a race or the secret died between check and rotate;
				// the request continues on the current token.
				l.Debug("refresh middleware: rotation skipped", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(HeaderNewAccessToken, res.Pair.AccessToken)
			w.Header().Set(HeaderNewRefreshToken, res.Pair.RefreshToken)
			w.Header().Set(HeaderTokenExpiration, res.Pair.ExpiresAt.Format(time.RFC3339))

			// Rotation replaced the pair, so downstream handlers must see the
			// replacement as the current session.
			at.ID = res.AccessTokenID
			at.ExpiresAt = res.Pair.ExpiresAt
			next.ServeHTTP(w, r.WithContext(ContextWithAccessToken(r.Context(), at)))
		})
	}
}
