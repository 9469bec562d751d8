// Package secret generates and verifies opaque credential secrets. Secrets
// are never persisted in recoverable form; storage holds only SHA-256 hashes.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// entropyBytes is the amount of randomness per secret: 32 bytes = 256 bits.
const entropyBytes = 32

// New returns a fresh high-entropy secret encoded as URL-safe base64.
func New() (string, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the SHA-256 digest of a plaintext secret.
func Hash(s string) []byte {
	h := sha256.Sum256([]byte(s))
	return h[:]
}

// Verify compares a stored hash against a presented plaintext in constant
// time.
func Verify(hash []byte, presented string) bool {
	return subtle.ConstantTimeCompare(hash, Hash(presented)) == 1
}

// WithID encodes an access token as "<id>|<secret>" so the row can be looked
// up by primary key before the secret is verified against its hash.
func WithID(id uuid.UUID, s string) string {
	return id.String() + "|" + s
}

// SplitID decodes a token produced by WithID.
func SplitID(token string) (uuid.UUID, string, error) {
	idPart, secretPart, ok := strings.Cut(token, "|")
	if !ok || secretPart == "" {
		return uuid.Nil, "", fmt.Errorf("malformed token")
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("malformed token id: %w", err)
	}
	return id, secretPart, nil
}
