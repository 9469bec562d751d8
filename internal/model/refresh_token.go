package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore defines persistence operations for refresh tokens.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	GetByHash(ctx context.Context, hash []byte) (RefreshToken, error)
	// Consume flips the token to revoked if and only if it is still valid.
	// Under concurrent calls for the same token exactly one caller gets true.
	Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	RevokeByAccessTokenID(ctx context.Context, accessTokenID uuid.UUID) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) error
}

// RefreshToken represents a long-lived single-use rotation credential.
// AccessTokenID references the sibling access token issued in the same pair;
// it may dangle if that token is deleted independently.
type RefreshToken struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	TokenHash     []byte
	AccessTokenID *uuid.UUID
	Revoked       bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Valid reports whether the token can still be used. Validity only ever
// decreases: a revoked or expired token never becomes valid again.
func (t RefreshToken) Valid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
