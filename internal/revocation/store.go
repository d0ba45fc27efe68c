// Package revocation records revoked token ids and fixed-window request counters
// in a key-value store with per-key expiry.
package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps every failure talking to the backing store.
var ErrUnavailable = errors.New("revocation store unavailable")

//go:generate mockgen -source=store.go -destination=../service/mocks/mock_revocation.go -package=mocks -mock_names=Store=MockRevocationStore

type Store interface {
	// MarkRevoked records tokenID as revoked for ttl. Calling it again refreshes the ttl.
	MarkRevoked(ctx context.Context, tokenID string, ttl time.Duration) error
	// IsRevoked reports whether tokenID is currently recorded as revoked. false does not
	// mean the token was ever valid.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// IncrementAndGet atomically increments key, starting a window of the given length on
	// the first increment, and returns the post-increment count.
	IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, error)
	Ping(ctx context.Context) error
}
