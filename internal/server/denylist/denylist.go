// Package denylist tracks revoked refresh tokens by jti. Refresh tokens are
// otherwise stateless, so without a denylist a logout cannot invalidate an
// already-issued, unexpired refresh token held elsewhere. Entries only need
// to live until the revoked token would have expired anyway, which maps
// directly onto keys with a TTL.
package denylist

import (
	"context"
	"time"
)

// Denylist records revoked refresh-token IDs until their natural expiry.
type Denylist interface {
	// Revoke marks the jti as revoked for ttl. A non-positive ttl is a no-op:
	// the token is already expired.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether the jti has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Noop is the stateless mode: nothing is ever revoked. Used when no Redis
// backend is configured; revocation-before-expiry is then impossible and the
// server logs this residual risk at startup.
type Noop struct{}

func (Noop) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return nil
}

func (Noop) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}
