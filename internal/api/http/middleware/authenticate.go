package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mkarev/tokenvault/internal/model"
)

// Authenticator verifies bearer credentials against the store.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (model.AccessToken, error)
}

// Authenticate rejects requests without a valid bearer token and injects the
// verified access token into the request context.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := bearerToken(r)
			if bearer == "" {
				unauthorized(w, "missing authorization token")
				return
			}

			at, err := auth.Authenticate(r.Context(), bearer)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAccessToken(r.Context(), at)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return header
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
