package model

import "context"

// Stores bundles the persistence interfaces the services operate on.
type Stores struct {
	Users         UserStore
	AccessTokens  AccessTokenStore
	RefreshTokens RefreshTokenStore
}

// TxManager runs a function against stores bound to a single atomic unit of
// work. Partial multi-row writes are never observable: either every write in
// fn commits or none do.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
