package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/tokenvault/internal/dbx"
	"github.com/mkarev/tokenvault/internal/model"
)

var _ model.AccessTokenStore = (*AccessTokenRepository)(nil)

type AccessTokenRepository struct {
	db dbx.DBTX
}

func NewAccessTokenRepository(db dbx.DBTX) *AccessTokenRepository {
	return &AccessTokenRepository{db: db}
}

const accessTokenColumns = `id, user_id, name, abilities, token_hash,
        ip_address, user_agent, browser, browser_version, platform, platform_version,
        device, location, country_code, is_suspicious,
        last_used_at, expires_at, created_at, updated_at`

func (r *AccessTokenRepository) Create(ctx context.Context, token model.AccessToken) error {
	const query = `
        INSERT INTO access_tokens (
            id, user_id, name, abilities, token_hash,
            ip_address, user_agent, browser, browser_version, platform, platform_version,
            device, location, country_code, is_suspicious,
            expires_at, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())
    `

	abilities, err := json.Marshal(token.Abilities)
	if err != nil {
		return fmt.Errorf("failed to marshal abilities: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Name, abilities, token.TokenHash,
		token.IPAddress, token.UserAgent, token.Browser, token.BrowserVersion,
		token.Platform, token.PlatformVersion,
		string(token.Device), token.Location, token.CountryCode, token.Suspicious,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}
	return nil
}

func (r *AccessTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (model.AccessToken, error) {
	const query = `SELECT ` + accessTokenColumns + ` FROM access_tokens WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	token, err := scanAccessToken(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AccessToken{}, model.ErrNotFound
		}
		return model.AccessToken{}, fmt.Errorf("failed to get access token: %w", err)
	}
	return token, nil
}

func (r *AccessTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM access_tokens WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *AccessTokenRepository) DeleteAllByUser(ctx context.Context, userID uuid.UUID) error {
	const query = `DELETE FROM access_tokens WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete access tokens by user: %w", err)
	}
	return nil
}

func (r *AccessTokenRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `UPDATE access_tokens SET last_used_at = $2, updated_at = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to touch access token: %w", err)
	}
	return nil
}

func (r *AccessTokenRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]model.AccessToken, error) {
	const query = `
        SELECT ` + accessTokenColumns + `
        FROM access_tokens
        WHERE user_id = $1 AND expires_at > $2
        ORDER BY COALESCE(last_used_at, created_at) DESC
    `

	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list access tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]model.AccessToken, 0)
	for rows.Next() {
		token, err := scanAccessToken(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate access tokens: %w", err)
	}
	return tokens, nil
}

func (r *AccessTokenRepository) LastUsedWithCountry(ctx context.Context, userID uuid.UUID) (model.AccessToken, error) {
	const query = `
        SELECT ` + accessTokenColumns + `
        FROM access_tokens
        WHERE user_id = $1 AND country_code <> ''
        ORDER BY COALESCE(last_used_at, created_at) DESC
        LIMIT 1
    `

	row := r.db.QueryRowContext(ctx, query, userID)
	token, err := scanAccessToken(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AccessToken{}, model.ErrNotFound
		}
		return model.AccessToken{}, fmt.Errorf("failed to get last used access token: %w", err)
	}
	return token, nil
}

func scanAccessToken(scan func(dest ...any) error) (model.AccessToken, error) {
	var (
		t         model.AccessToken
		abilities []byte
		device    string
	)
	err := scan(
		&t.ID, &t.UserID, &t.Name, &abilities, &t.TokenHash,
		&t.IPAddress, &t.UserAgent, &t.Browser, &t.BrowserVersion,
		&t.Platform, &t.PlatformVersion,
		&device, &t.Location, &t.CountryCode, &t.Suspicious,
		&t.LastUsedAt, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return model.AccessToken{}, err
	}
	if err := json.Unmarshal(abilities, &t.Abilities); err != nil {
		return model.AccessToken{}, fmt.Errorf("failed to unmarshal abilities: %w", err)
	}
	t.Device = model.DeviceClass(device)
	return t, nil
}
