package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mkarev/tokenvault/internal/api/http/middleware"
	"github.com/mkarev/tokenvault/internal/logger"
	"github.com/mkarev/tokenvault/internal/model"
	"github.com/mkarev/tokenvault/internal/service"
)

// Devices exposes the session registry: list the account's active devices and
// revoke one remotely.
type Devices struct {
	devices *service.Devices
	tokens  *service.TokenService
	logger  *logger.Logger
}

// NewDevices creates a Devices handler.
func NewDevices(devices *service.Devices, tokens *service.TokenService, logger *logger.Logger) *Devices {
	return &Devices{devices: devices, tokens: tokens, logger: logger}
}

type sessionResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	IPAddress   string     `json:"ip_address"`
	Browser     string     `json:"browser"`
	Platform    string     `json:"platform"`
	Device      string     `json:"device"`
	Location    string     `json:"location"`
	CountryCode string     `json:"country_code"`
	Suspicious  bool       `json:"is_suspicious"`
	Current     bool       `json:"is_current_device"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}

func newSessionResponse(s model.Session, currentID uuid.UUID) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		Name:        s.Name,
		IPAddress:   s.IPAddress,
		Browser:     s.Browser,
		Platform:    s.Platform,
		Device:      string(s.Device),
		Location:    s.Location,
		CountryCode: s.CountryCode,
		Suspicious:  s.Suspicious,
		Current:     s.ID == currentID,
		CreatedAt:   s.CreatedAt,
		LastUsedAt:  s.LastUsedAt,
	}
}

// List returns the caller's active sessions, most recently used first, with
// the current session marked.
func (h *Devices) List(w http.ResponseWriter, r *http.Request) {
	at, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	sessions, err := h.devices.List(r.Context(), at.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionResponse(s, at.ID))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"devices":           out,
		"current_device_id": at.ID,
	})
}

// Revoke terminates one of the caller's other sessions. The current session
// cannot be revoked here; that is what logout is for.
func (h *Devices) Revoke(w http.ResponseWriter, r *http.Request) {
	at, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	if id == at.ID {
		respondError(w, http.StatusConflict, "cannot revoke the current device")
		return
	}

	revoked, err := h.tokens.RevokeDevice(r.Context(), at.UserID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !revoked {
		respondError(w, http.StatusNotFound, "device not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
