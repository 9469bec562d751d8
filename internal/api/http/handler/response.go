package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkarev/tokenvault/internal/model"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError maps domain sentinels onto HTTP status codes. Anything
// unrecognized is a 500 with a generic body; details stay in the server log.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, model.ErrInvalidRefreshToken):
		respondError(w, http.StatusUnauthorized, "invalid or expired refresh token")
	case errors.Is(err, model.ErrInvalidAccessToken):
		respondError(w, http.StatusUnauthorized, "invalid or expired access token")
	case errors.Is(err, model.ErrEmailIsTaken):
		respondError(w, http.StatusConflict, "email is already taken")
	case errors.Is(err, model.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
