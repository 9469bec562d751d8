package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/tokenvault/internal/geo"
	"github.com/mkarev/tokenvault/internal/logger"
	"github.com/mkarev/tokenvault/internal/model"
	"github.com/mkarev/tokenvault/internal/secret"
)

// TokenService issues, rotates and revokes access/refresh credential pairs.
// Every mutating operation spans its multi-row writes with one transaction;
// a pair is created together or not at all, and no revocation path leaves an
// active orphan behind.
type TokenService struct {
	stores     model.Stores
	tx         model.TxManager
	resolver   geo.Resolver
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *logger.Logger
}

// NewTokenService creates a TokenService with per-instance token lifetimes.
func NewTokenService(
	stores model.Stores,
	tx model.TxManager,
	resolver geo.Resolver,
	accessTTL time.Duration,
	refreshTTL time.Duration,
	logger *logger.Logger,
) *TokenService {
	return &TokenService{
		stores:     stores,
		tx:         tx,
		resolver:   resolver,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

const tokenTypeBearer = "Bearer"

// IssueResult is the outcome of minting a credential pair. The plaintext
// secrets in Pair exist only here; storage keeps hashes.
type IssueResult struct {
	Pair          model.TokenPair
	AccessTokenID uuid.UUID
	Suspicious    bool
}

// Issue mints an access/refresh pair for the user as one atomic unit. When a
// fingerprint is supplied the access token is enriched with device, location
// and suspicion data; the enrichment is part of the same insert, so the token
// is never observable half-enriched.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, name string, abilities []string, fp *model.DeviceFingerprint) (IssueResult, error) {
	s.logger.Debug("token service: issuing credential pair", "user_id", userID, "name", name)

	loc := s.resolveLocation(ctx, fp)

	var res IssueResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st model.Stores) error {
		var err error
		res, err = s.issuePair(ctx, st, userID, name, abilities, fp, loc)
		return err
	})
	if err != nil {
		return IssueResult{}, err
	}

	s.logger.Info("token service: credential pair issued",
		"user_id", userID,
		"access_token_id", res.AccessTokenID,
		"suspicious", res.Suspicious)

	return res, nil
}

// Rotate consumes a refresh secret and mints a replacement pair. A refresh
// secret rotates at most once: concurrent attempts race on a conditional
// update in the store and every loser gets ErrInvalidRefreshToken.
func (s *TokenService) Rotate(ctx context.Context, refreshSecret string, name string, abilities []string, fp *model.DeviceFingerprint) (IssueResult, error) {
	s.logger.Debug("token service: rotating refresh token")

	loc := s.resolveLocation(ctx, fp)
	hash := secret.Hash(refreshSecret)

	var res IssueResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st model.Stores) error {
		rt, err := st.RefreshTokens.GetByHash(ctx, hash)
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrInvalidRefreshToken
		}
		if err != nil {
			return fmt.Errorf("failed to get refresh token: %w", err)
		}

		now := time.Now()
		if !rt.Valid(now) {
			return model.ErrInvalidRefreshToken
		}

		consumed, err := st.RefreshTokens.Consume(ctx, rt.ID, now)
		if err != nil {
			return fmt.Errorf("failed to consume refresh token: %w", err)
		}
		if !consumed {
			// Lost the race against a concurrent rotation.
			return model.ErrInvalidRefreshToken
		}

		if rt.AccessTokenID != nil {
			if err := st.AccessTokens.Delete(ctx, *rt.AccessTokenID); err != nil && !errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("failed to delete rotated access token: %w", err)
			}
		}

		res, err = s.issuePair(ctx, st, rt.UserID, name, abilities, fp, loc)
		return err
	})
	if err != nil {
		return IssueResult{}, err
	}

	s.logger.Info("token service: refresh token rotated",
		"access_token_id", res.AccessTokenID)

	return res, nil
}

// Revoke invalidates a refresh token and deletes its sibling access token.
// It reports false, without error, when the secret is unknown, expired or
// already revoked; repeating a revoke is a no-op.
func (s *TokenService) Revoke(ctx context.Context, refreshSecret string) (bool, error) {
	hash := secret.Hash(refreshSecret)

	var revoked bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st model.Stores) error {
		rt, err := st.RefreshTokens.GetByHash(ctx, hash)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get refresh token: %w", err)
		}

		now := time.Now()
		if !rt.Valid(now) {
			return nil
		}

		consumed, err := st.RefreshTokens.Consume(ctx, rt.ID, now)
		if err != nil {
			return fmt.Errorf("failed to consume refresh token: %w", err)
		}
		if !consumed {
			return nil
		}

		if rt.AccessTokenID != nil {
			if err := st.AccessTokens.Delete(ctx, *rt.AccessTokenID); err != nil && !errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("failed to delete sibling access token: %w", err)
			}
		}

		revoked = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if revoked {
		s.logger.Info("token service: refresh token revoked")
	}

	return revoked, nil
}

// RevokeDevice revokes the refresh tokens linked to an access token and then
// deletes the access token itself. It reports false when the token does not
// exist or belongs to a different user. Whether the caller may revoke their
// own current session is a boundary policy, not enforced here.
func (s *TokenService) RevokeDevice(ctx context.Context, userID, accessTokenID uuid.UUID) (bool, error) {
	var revoked bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st model.Stores) error {
		at, err := st.AccessTokens.GetByID(ctx, accessTokenID)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get access token: %w", err)
		}
		if at.UserID != userID {
			return nil
		}

		if err := st.RefreshTokens.RevokeByAccessTokenID(ctx, at.ID); err != nil {
			return fmt.Errorf("failed to revoke linked refresh tokens: %w", err)
		}
		if err := st.AccessTokens.Delete(ctx, at.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to delete access token: %w", err)
		}

		revoked = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if revoked {
		s.logger.Info("token service: device revoked",
			"user_id", userID,
			"access_token_id", accessTokenID)
	}

	return revoked, nil
}

// RevokeAllForUser deletes every access token and revokes every refresh token
// the user owns, as one cascading operation. Called on password change and
// similar credential-compromise events.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st model.Stores) error {
		if err := st.AccessTokens.DeleteAllByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete access tokens: %w", err)
		}
		if err := st.RefreshTokens.RevokeAllByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("token service: compromise cascade failed",
			"user_id", userID,
			"error", err.Error())
		return fmt.Errorf("%w: %v", model.ErrRevokeAllFailed, err)
	}

	s.logger.Info("token service: all credentials revoked", "user_id", userID)
	return nil
}

// RefreshTokenValid reports whether a presented refresh secret would still
// rotate. Read-only; used by the opportunistic pre-expiry rotation boundary.
func (s *TokenService) RefreshTokenValid(ctx context.Context, refreshSecret string) bool {
	rt, err := s.stores.RefreshTokens.GetByHash(ctx, secret.Hash(refreshSecret))
	if err != nil {
		return false
	}
	return rt.Valid(time.Now())
}

// Authenticate verifies a presented bearer token against the store, touches
// its last_used_at and returns the token row.
func (s *TokenService) Authenticate(ctx context.Context, bearer string) (model.AccessToken, error) {
	id, plaintext, err := secret.SplitID(bearer)
	if err != nil {
		return model.AccessToken{}, model.ErrInvalidAccessToken
	}

	at, err := s.stores.AccessTokens.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.AccessToken{}, model.ErrInvalidAccessToken
	}
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("failed to get access token: %w", err)
	}

	now := time.Now()
	if at.Expired(now) || !secret.Verify(at.TokenHash, plaintext) {
		return model.AccessToken{}, model.ErrInvalidAccessToken
	}

	if err := s.stores.AccessTokens.Touch(ctx, at.ID, now); err != nil {
		// Best effort: a failed touch does not fail the request.
		s.logger.Error("token service: failed to touch access token",
			"access_token_id", at.ID,
			"error", err.Error())
	} else {
		at.LastUsedAt = &now
	}

	return at, nil
}

// issuePair creates both credential rows inside the caller's transaction.
// The account's session history is read before the new access token is
// written, so a login never compares against itself.
func (s *TokenService) issuePair(ctx context.Context, st model.Stores, userID uuid.UUID, name string, abilities []string, fp *model.DeviceFingerprint, loc geo.Location) (IssueResult, error) {
	now := time.Now()

	accessSecret, err := secret.New()
	if err != nil {
		return IssueResult{}, fmt.Errorf("failed to generate access secret: %w", err)
	}
	refreshSecret, err := secret.New()
	if err != nil {
		return IssueResult{}, fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	at := model.AccessToken{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Abilities: abilities,
		TokenHash: secret.Hash(accessSecret),
		Device:    model.DeviceUnknown,
		ExpiresAt: now.Add(s.accessTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	suspicious := false
	if fp != nil {
		prior, err := st.AccessTokens.LastUsedWithCountry(ctx, userID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return IssueResult{}, fmt.Errorf("failed to get prior session: %w", err)
		}
		if err == nil {
			priorSession := prior.Session()
			suspicious = Classify(&priorSession, fp.Class(), loc)
		}

		at.IPAddress = fp.IPAddress
		at.UserAgent = fp.UserAgent
		at.Browser = fp.Browser
		at.BrowserVersion = fp.BrowserVersion
		at.Platform = fp.Platform
		at.PlatformVersion = fp.PlatformVersion
		at.Device = fp.Class()
		at.Location = loc.Name
		at.CountryCode = loc.CountryCode
		at.Suspicious = suspicious
	}

	if err := st.AccessTokens.Create(ctx, at); err != nil {
		return IssueResult{}, fmt.Errorf("failed to create access token: %w", err)
	}

	rt := model.RefreshToken{
		ID:            uuid.New(),
		UserID:        userID,
		TokenHash:     secret.Hash(refreshSecret),
		AccessTokenID: &at.ID,
		ExpiresAt:     now.Add(s.refreshTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := st.RefreshTokens.Create(ctx, rt); err != nil {
		return IssueResult{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return IssueResult{
		Pair: model.TokenPair{
			AccessToken:  secret.WithID(at.ID, accessSecret),
			RefreshToken: refreshSecret,
			TokenType:    tokenTypeBearer,
			ExpiresAt:    at.ExpiresAt,
		},
		AccessTokenID: at.ID,
		Suspicious:    suspicious,
	}, nil
}

// resolveLocation runs geolocation before the transaction opens; a provider
// failure degrades to the unknown location instead of failing issuance.
func (s *TokenService) resolveLocation(ctx context.Context, fp *model.DeviceFingerprint) geo.Location {
	if fp == nil || fp.IPAddress == "" || s.resolver == nil {
		return geo.Location{}
	}
	loc, err := s.resolver.Resolve(ctx, fp.IPAddress)
	if err != nil {
		s.logger.Debug("token service: geolocation failed",
			"ip", fp.IPAddress,
			"error", err.Error())
		return geo.Location{}
	}
	return loc
}
