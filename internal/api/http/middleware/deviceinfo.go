package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mileusna/useragent"

	"github.com/mkarev/tokenvault/internal/model"
)

// DeviceInfo derives a device fingerprint from the User-Agent header and the
// client address and stores it in the request context. Services receive the
// fingerprint explicitly; they never read request state themselves.
func DeviceInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.Parse(r.UserAgent())

		fp := &model.DeviceFingerprint{
			IPAddress:       clientIP(r),
			UserAgent:       r.UserAgent(),
			Browser:         ua.Name,
			BrowserVersion:  ua.Version,
			Platform:        ua.OS,
			PlatformVersion: ua.OSVersion,
			IsDesktop:       ua.Desktop,
			IsPhone:         ua.Mobile,
			IsTablet:        ua.Tablet,
		}

		next.ServeHTTP(w, r.WithContext(ContextWithFingerprint(r.Context(), fp)))
	})
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
