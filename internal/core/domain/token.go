package domain

import "time"

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

type TokenPair struct {
	Access  string
	Refresh string
}

// TokenClaims is the validated content of a bearer token.
type TokenClaims struct {
	ID        string
	UserID    int64
	Kind      TokenKind
	ExpiresAt time.Time
}
