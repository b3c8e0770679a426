package port

import "github.com/rl1809/aircraft-factory/internal/core/domain"

type TokenService interface {
	Issue(userID int64) (domain.TokenPair, error)
	IssueAccess(userID int64) (string, error)

	// Validate parses token and checks signature, expiry and kind.
	Validate(token string, kind domain.TokenKind) (domain.TokenClaims, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}
