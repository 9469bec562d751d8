package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/tokenvault/internal/api/http/middleware"
	"github.com/mkarev/tokenvault/internal/logger"
	"github.com/mkarev/tokenvault/internal/model"
	"github.com/mkarev/tokenvault/internal/service"
)

// Auth exposes registration, login, token rotation and revocation endpoints.
type Auth struct {
	auth   *service.Auth
	tokens *service.TokenService
	users  model.UserStore
	logger *logger.Logger
}

// NewAuth creates an Auth handler.
func NewAuth(auth *service.Auth, tokens *service.TokenService, users model.UserStore, logger *logger.Logger) *Auth {
	return &Auth{auth: auth, tokens: tokens, users: users, logger: logger}
}

type userResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type tokenPairResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func newTokenPairResponse(p model.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresAt:    p.ExpiresAt,
	}
}

// Register creates an account and returns its first credential pair.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusUnprocessableEntity, "email and password are required")
		return
	}

	fp := middleware.FingerprintFromContext(r.Context())
	user, res, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password, fp)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user":   newUserResponse(user),
		"tokens": newTokenPairResponse(res.Pair),
	})
}

// Login verifies the password and returns a credential pair plus the
// suspicious-login verdict for this device.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fp := middleware.FingerprintFromContext(r.Context())
	user, res, err := h.auth.Login(r.Context(), req.Email, req.Password, fp)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":                newUserResponse(user),
		"tokens":              newTokenPairResponse(res.Pair),
		"is_suspicious_login": res.Suspicious,
	})
}

// Refresh rotates a refresh secret into a new credential pair. The secret
// arrives in the X-Refresh-Token header or the JSON body.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshSecret := r.Header.Get(middleware.HeaderRefreshToken)
	if refreshSecret == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := decodeJSON(r, &req); err == nil {
			refreshSecret = req.RefreshToken
		}
	}
	if refreshSecret == "" {
		respondError(w, http.StatusBadRequest, "missing refresh token")
		return
	}

	fp := middleware.FingerprintFromContext(r.Context())
	res, err := h.tokens.Rotate(r.Context(), refreshSecret, "auth_token", []string{"*"}, fp)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tokens": newTokenPairResponse(res.Pair),
	})
}

// Revoke invalidates a refresh token and its sibling access token. Revoking
// an unknown or already-dead secret reports revoked=false rather than an
// error.
func (h *Auth) Revoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "missing refresh token")
		return
	}

	revoked, err := h.tokens.Revoke(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
}

// Logout revokes the caller's current credential pair.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	at, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if _, err := h.tokens.RevokeDevice(r.Context(), at.UserID, at.ID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Profile returns the authenticated account.
func (h *Auth) Profile(w http.ResponseWriter, r *http.Request) {
	at, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.users.GetByID(r.Context(), at.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}

// ChangePassword replaces the password and revokes every credential the
// account holds. The caller must log in again afterwards.
func (h *Auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	at, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.NewPassword == "" {
		respondError(w, http.StatusUnprocessableEntity, "new password is required")
		return
	}

	if err := h.auth.ChangePassword(r.Context(), at.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
