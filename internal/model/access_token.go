package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccessTokenStore defines persistence operations for access tokens.
type AccessTokenStore interface {
	Create(ctx context.Context, token AccessToken) error
	GetByID(ctx context.Context, id uuid.UUID) (AccessToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllByUser(ctx context.Context, userID uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	// ListActiveByUser returns the user's non-expired tokens ordered by
	// last_used_at descending, most recently active first.
	ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]AccessToken, error)
	// LastUsedWithCountry returns the user's most recently used token that
	// has a known country code, or ErrNotFound.
	LastUsedWithCountry(ctx context.Context, userID uuid.UUID) (AccessToken, error)
}

// AccessToken represents a short-lived bearer credential. Only the SHA-256
// hash of the secret is persisted; the plaintext exists once, at issuance.
// Fingerprint fields use the empty string (and DeviceUnknown) when the
// attribute was not captured or could not be resolved.
type AccessToken struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Name            string
	Abilities       []string
	TokenHash       []byte
	IPAddress       string
	UserAgent       string
	Browser         string
	BrowserVersion  string
	Platform        string
	PlatformVersion string
	Device          DeviceClass
	Location        string
	CountryCode     string
	Suspicious      bool
	LastUsedAt      *time.Time
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Session summarizes the token for device listings.
func (t AccessToken) Session() Session {
	return Session{
		ID:          t.ID,
		Name:        t.Name,
		IPAddress:   t.IPAddress,
		Browser:     t.Browser,
		Platform:    t.Platform,
		Device:      t.Device,
		Location:    t.Location,
		CountryCode: t.CountryCode,
		Suspicious:  t.Suspicious,
		CreatedAt:   t.CreatedAt,
		LastUsedAt:  t.LastUsedAt,
	}
}
