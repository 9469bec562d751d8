package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarev/tokenvault/internal/model"
	"github.com/mkarev/tokenvault/internal/secret"
)

func newAccessMock(t *testing.T) (sqlmock.Sqlmock, *AccessTokenRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewAccessTokenRepository(db)
}

func accessTokenRowColumns() []string {
	return []string{
		"id", "user_id", "name", "abilities", "token_hash",
		"ip_address", "user_agent", "browser", "browser_version", "platform", "platform_version",
		"device", "location", "country_code", "is_suspicious",
		"last_used_at", "expires_at", "created_at", "updated_at",
	}
}

func TestAccessTokenRepository_Create(t *testing.T) {
	mock, repo := newAccessMock(t)

	token := model.AccessToken{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Name:        "auth_token",
		Abilities:   []string{"*"},
		TokenHash:   secret.Hash("access-secret"),
		IPAddress:   "203.0.113.5",
		UserAgent:   "Mozilla/5.0",
		Browser:     "Chrome",
		Device:      model.DeviceDesktop,
		Location:    "Paris, Ile-de-France",
		CountryCode: "FR",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	mock.ExpectExec("INSERT INTO access_tokens").
		WithArgs(
			token.ID, token.UserID, token.Name, []byte(`["*"]`), token.TokenHash,
			token.IPAddress, token.UserAgent, token.Browser, token.BrowserVersion,
			token.Platform, token.PlatformVersion,
			string(token.Device), token.Location, token.CountryCode, token.Suspicious,
			token.ExpiresAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), token)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessTokenRepository_GetByID(t *testing.T) {
	mock, repo := newAccessMock(t)

	id := uuid.New()
	userID := uuid.New()
	now := time.Now()
	lastUsed := now.Add(-time.Minute)

	rows := sqlmock.NewRows(accessTokenRowColumns()).AddRow(
		id.String(), userID.String(), "auth_token", []byte(`["*"]`), secret.Hash("access-secret"),
		"203.0.113.5", "Mozilla/5.0", "Chrome", "120", "Windows", "10",
		"Desktop", "Paris, Ile-de-France", "FR", false,
		lastUsed, now.Add(time.Hour), now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM access_tokens WHERE id").
		WithArgs(id).
		WillReturnRows(rows)

	token, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, token.ID)
	assert.Equal(t, userID, token.UserID)
	assert.Equal(t, []string{"*"}, token.Abilities)
	assert.Equal(t, model.DeviceDesktop, token.Device)
	assert.Equal(t, "FR", token.CountryCode)
	require.NotNil(t, token.LastUsedAt)
	assert.WithinDuration(t, lastUsed, *token.LastUsedAt, time.Second)
}

func TestAccessTokenRepository_GetByID_NotFound(t *testing.T) {
	mock, repo := newAccessMock(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM access_tokens WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(accessTokenRowColumns()))

	_, err := repo.GetByID(context.Background(), id)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccessTokenRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "existing row", affected: 1},
		{name: "missing row", affected: 0, wantErr: model.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newAccessMock(t)

			id := uuid.New()
			mock.ExpectExec("DELETE FROM access_tokens WHERE id").
				WithArgs(id).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.Delete(context.Background(), id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAccessTokenRepository_ListActiveByUser(t *testing.T) {
	mock, repo := newAccessMock(t)

	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows(accessTokenRowColumns()).
		AddRow(
			uuid.New().String(), userID.String(), "auth_token", []byte(`["*"]`), secret.Hash("a"),
			"203.0.113.5", "Mozilla/5.0", "Chrome", "120", "Windows", "10",
			"Desktop", "Paris, Ile-de-France", "FR", false,
			now, now.Add(time.Hour), now, now,
		).
		AddRow(
			uuid.New().String(), userID.String(), "auth_token", []byte(`["*"]`), secret.Hash("b"),
			"198.51.100.7", "Mozilla/5.0", "Safari", "17", "iOS", "17",
			"Phone", "", "", true,
			nil, now.Add(time.Hour), now.Add(-time.Hour), now,
		)

	mock.ExpectQuery("SELECT (.+) FROM access_tokens").
		WithArgs(userID, sqlmock.AnyArg()).
		WillReturnRows(rows)

	tokens, err := repo.ListActiveByUser(context.Background(), userID, now)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, model.DeviceDesktop, tokens[0].Device)
	assert.Nil(t, tokens[1].LastUsedAt)
	assert.True(t, tokens[1].Suspicious)
}

func TestAccessTokenRepository_LastUsedWithCountry_NotFound(t *testing.T) {
	mock, repo := newAccessMock(t)

	userID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM access_tokens").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(accessTokenRowColumns()))

	_, err := repo.LastUsedWithCountry(context.Background(), userID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccessTokenRepository_Touch(t *testing.T) {
	mock, repo := newAccessMock(t)

	id := uuid.New()
	at := time.Now()
	mock.ExpectExec("UPDATE access_tokens SET last_used_at").
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Touch(context.Background(), id, at))
}
