// Package http wires the transport boundary: routing, handlers and
// middleware around the token services.
package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mkarev/tokenvault/internal/api/http/handler"
	"github.com/mkarev/tokenvault/internal/api/http/middleware"
	"github.com/mkarev/tokenvault/internal/logger"
	"github.com/mkarev/tokenvault/internal/model"
	"github.com/mkarev/tokenvault/internal/service"
)

// NewRouter assembles the HTTP API.
//
// Public routes take the device-info middleware so logins are enriched with
// fingerprint data. Authenticated routes additionally verify the bearer token
// and opportunistically rotate credential pairs that are close to expiry.
func NewRouter(
	auth *service.Auth,
	tokens *service.TokenService,
	devices *service.Devices,
	users model.UserStore,
	l *logger.Logger,
) http.Handler {
	authHandler := handler.NewAuth(auth, tokens, users, l)
	deviceHandler := handler.NewDevices(devices, tokens, l)

	r := mux.NewRouter()
	r.Use(middleware.Logging(l))
	r.Use(middleware.DeviceInfo)

	r.HandleFunc("/api/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/refresh", authHandler.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/revoke", authHandler.Revoke).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.Authenticate(tokens))
	protected.Use(middleware.Refresh(tokens, l))

	protected.HandleFunc("/profile", authHandler.Profile).Methods(http.MethodGet)
	protected.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/password", authHandler.ChangePassword).Methods(http.MethodPut)
	protected.HandleFunc("/devices", deviceHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/devices/{id}", deviceHandler.Revoke).Methods(http.MethodDelete)

	return r
}
