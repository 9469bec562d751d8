// Package memory provides in-memory store implementations used by unit
// tests. Semantics mirror the postgres repositories, including the
// single-winner conditional consume on refresh tokens.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/tokenvault/internal/model"
)

// Store holds all entities behind one mutex.
type Store struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	users   map[uuid.UUID]model.User
	access  map[uuid.UUID]model.AccessToken
	refresh map[uuid.UUID]model.RefreshToken
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[uuid.UUID]model.User),
		access:  make(map[uuid.UUID]model.AccessToken),
		refresh: make(map[uuid.UUID]model.RefreshToken),
	}
}

// Stores returns the model.Stores view over this Store.
func (s *Store) Stores() model.Stores {
	return model.Stores{
		Users:         (*userStore)(s),
		AccessTokens:  (*accessTokenStore)(s),
		RefreshTokens: (*refreshTokenStore)(s),
	}
}

// WithinTx serializes multi-entity mutations. It does not roll back partial
// writes; tests that need rollback semantics use the postgres repositories.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st model.Stores) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx, s.Stores())
}

type userStore Store

func (s *userStore) Create(ctx context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return user, nil
}

func (s *userStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *userStore) UpdatePassword(ctx context.Context, id uuid.UUID, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

type accessTokenStore Store

func (s *accessTokenStore) Create(ctx context.Context, token model.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[token.ID] = token
	return nil
}

func (s *accessTokenStore) GetByID(ctx context.Context, id uuid.UUID) (model.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.access[id]
	if !ok {
		return model.AccessToken{}, model.ErrNotFound
	}
	return t, nil
}

func (s *accessTokenStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.access[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.access, id)
	return nil
}

func (s *accessTokenStore) DeleteAllByUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.access {
		if t.UserID == userID {
			delete(s.access, id)
		}
	}
	return nil
}

func (s *accessTokenStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.access[id]
	if !ok {
		return model.ErrNotFound
	}
	t.LastUsedAt = &at
	t.UpdatedAt = at
	s.access[id] = t
	return nil
}

func (s *accessTokenStore) ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AccessToken
	for _, t := range s.access {
		if t.UserID == userID && !t.Expired(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	return out, nil
}

func (s *accessTokenStore) LastUsedWithCountry(ctx context.Context, userID uuid.UUID) (model.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  model.AccessToken
		found bool
	)
	for _, t := range s.access {
		if t.UserID != userID || t.CountryCode == "" {
			continue
		}
		if !found || lastActivity(t).After(lastActivity(best)) {
			best = t
			found = true
		}
	}
	if !found {
		return model.AccessToken{}, model.ErrNotFound
	}
	return best, nil
}

func lastActivity(t model.AccessToken) time.Time {
	if t.LastUsedAt != nil {
		return *t.LastUsedAt
	}
	return t.CreatedAt
}

type refreshTokenStore Store

func (s *refreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token.ID] = token
	return nil
}

func (s *refreshTokenStore) GetByHash(ctx context.Context, hash []byte) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.refresh {
		if string(t.TokenHash) == string(hash) {
			return t, nil
		}
	}
	return model.RefreshToken{}, model.ErrNotFound
}

func (s *refreshTokenStore) Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.refresh[id]
	if !ok || !t.Valid(now) {
		return false, nil
	}
	t.Revoked = true
	t.UpdatedAt = now
	s.refresh[id] = t
	return true, nil
}

func (s *refreshTokenStore) RevokeByAccessTokenID(ctx context.Context, accessTokenID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.refresh {
		if t.AccessTokenID != nil && *t.AccessTokenID == accessTokenID && !t.Revoked {
			t.Revoked = true
			t.UpdatedAt = time.Now()
			s.refresh[id] = t
		}
	}
	return nil
}

func (s *refreshTokenStore) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.refresh {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			t.UpdatedAt = time.Now()
			s.refresh[id] = t
		}
	}
	return nil
}
