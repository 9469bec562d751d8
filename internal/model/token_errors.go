package model

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrInvalidAccessToken  = errors.New("invalid or expired access token")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailIsTaken        = errors.New("email is already taken")
	ErrRevokeAllFailed     = errors.New("failed to revoke user credentials")
)
