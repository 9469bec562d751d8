package postgres

import (
	"context"
	"database/sql"

	"github.com/mkarev/tokenvault/internal/dbx"
	"github.com/mkarev/tokenvault/internal/model"
)

// NewStores binds all repositories to the given handle, which may be a pool
// or a live transaction.
func NewStores(db dbx.DBTX) model.Stores {
	return model.Stores{
		Users:         NewUserRepository(db),
		AccessTokens:  NewAccessTokenRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
	}
}

var _ model.TxManager = (*TxManager)(nil)

// TxManager runs store operations inside database transactions.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a TxManager over the connection pool.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx implements model.TxManager: fn sees stores bound to one
// transaction, committed on success and rolled back on error.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, s model.Stores) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewStores(tx))
	})
}
