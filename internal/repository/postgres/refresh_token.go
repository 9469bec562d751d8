package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarev/tokenvault/internal/dbx"
	"github.com/mkarev/tokenvault/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db dbx.DBTX
}

func NewRefreshTokenRepository(db dbx.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (
            id, user_id, token_hash, access_token_id, revoked, expires_at, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
    `

	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.AccessTokenID, token.Revoked, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) GetByHash(ctx context.Context, hash []byte) (model.RefreshToken, error) {
	const query = `
        SELECT id, user_id, token_hash, access_token_id, revoked, expires_at, created_at, updated_at
        FROM refresh_tokens WHERE token_hash = $1
    `

	var (
		rt            model.RefreshToken
		accessTokenID uuid.NullUUID
	)
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&rt.ID, &rt.UserID, &rt.TokenHash, &accessTokenID, &rt.Revoked,
		&rt.ExpiresAt, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token by hash: %w", err)
	}
	if accessTokenID.Valid {
		rt.AccessTokenID = &accessTokenID.UUID
	}
	return rt, nil
}

// Consume marks the token revoked only while it is still valid. The
// conditional update is the single point that resolves concurrent rotation:
// exactly one caller observes an affected row.
func (r *RefreshTokenRepository) Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	const query = `
        UPDATE refresh_tokens SET revoked = TRUE, updated_at = $2
        WHERE id = $1 AND NOT revoked AND expires_at > $2
    `

	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *RefreshTokenRepository) RevokeByAccessTokenID(ctx context.Context, accessTokenID uuid.UUID) error {
	const query = `
        UPDATE refresh_tokens SET revoked = TRUE, updated_at = NOW()
        WHERE access_token_id = $1 AND NOT revoked
    `

	if _, err := r.db.ExecContext(ctx, query, accessTokenID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens by access token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	const query = `
        UPDATE refresh_tokens SET revoked = TRUE, updated_at = NOW()
        WHERE user_id = $1 AND NOT revoked
    `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens by user: %w", err)
	}
	return nil
}
