package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency removes a key so a failed request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// RevokeToken denylists a token id until ttl elapses
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error

	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}
