package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is the read-side summary of an active access token, as shown in
// device listings.
type Session struct {
	ID          uuid.UUID
	Name        string
	IPAddress   string
	Browser     string
	Platform    string
	Device      DeviceClass
	Location    string
	CountryCode string
	Suspicious  bool
	CreatedAt   time.Time
	LastUsedAt  *time.Time
}

// TokenPair carries the one-time plaintext results of issuing a credential
// pair. The plaintext values are not retrievable again.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
}
