package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkarev/tokenvault/internal/logger"
	"github.com/mkarev/tokenvault/internal/model"
)

// Auth is the account gateway in front of the token service: registration,
// password login and password change. A password change triggers the
// credential-compromise cascade explicitly; there is no hidden event hook.
type Auth struct {
	stores model.Stores
	tokens *TokenService
	logger *logger.Logger
}

// NewAuth creates an Auth service.
func NewAuth(stores model.Stores, tokens *TokenService, logger *logger.Logger) *Auth {
	return &Auth{stores: stores, tokens: tokens, logger: logger}
}

const defaultTokenName = "auth_token"

var defaultAbilities = []string{"*"}

// Register creates an account and issues its first credential pair.
func (a *Auth) Register(ctx context.Context, name, email, password string, fp *model.DeviceFingerprint) (model.User, IssueResult, error) {
	a.logger.Debug("auth service: registering user", "email", email)

	existing, err := a.stores.Users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, IssueResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	if existing.ID != uuid.Nil {
		return model.User{}, IssueResult{}, model.ErrEmailIsTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, IssueResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user, err := a.stores.Users.Create(ctx, model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.User{}, IssueResult{}, fmt.Errorf("failed to create user: %w", err)
	}

	res, err := a.tokens.Issue(ctx, user.ID, defaultTokenName, defaultAbilities, fp)
	if err != nil {
		return model.User{}, IssueResult{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("auth service: user registered", "user_id", user.ID)
	return user, res, nil
}

// Login verifies the password and issues a credential pair.
func (a *Auth) Login(ctx context.Context, email, password string, fp *model.DeviceFingerprint) (model.User, IssueResult, error) {
	user, err := a.stores.Users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, IssueResult{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, IssueResult{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return model.User{}, IssueResult{}, model.ErrInvalidCredentials
	}

	res, err := a.tokens.Issue(ctx, user.ID, defaultTokenName, defaultAbilities, fp)
	if err != nil {
		return model.User{}, IssueResult{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("auth service: user logged in",
		"user_id", user.ID,
		"suspicious", res.Suspicious)

	return user, res, nil
}

// ChangePassword replaces the password and revokes every credential the user
// holds, so stolen tokens die with the old password.
func (a *Auth) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := a.stores.Users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(current)); err != nil {
		return model.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.stores.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := a.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	a.logger.Info("auth service: password changed, credentials revoked", "user_id", userID)
	return nil
}
