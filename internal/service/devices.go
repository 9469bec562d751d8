package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/tokenvault/internal/logger"
	"github.com/mkarev/tokenvault/internal/model"
)

// Devices is the read-side catalog of an account's active sessions. It never
// mutates state.
type Devices struct {
	stores model.Stores
	logger *logger.Logger
}

// NewDevices creates a Devices registry.
func NewDevices(stores model.Stores, logger *logger.Logger) *Devices {
	return &Devices{stores: stores, logger: logger}
}

// List returns the user's non-expired sessions ordered most recently active
// first.
func (d *Devices) List(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	tokens, err := d.stores.AccessTokens.ListActiveByUser(ctx, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list access tokens: %w", err)
	}

	sessions := make([]model.Session, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, t.Session())
	}

	return sessions, nil
}
