package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList records logged-out token IDs in Redis. Entries expire
// together with the token itself, so the list stays bounded.
type RevocationList struct {
	rdb *redis.Client
}

func NewRevocationList(rdb *redis.Client) *RevocationList {
	return &RevocationList{rdb: rdb}
}

// Revoke marks a token ID as revoked until its expiry time.
func (l *RevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return l.rdb.Set(ctx, "revoked:"+jti, "1", ttl).Err()
}

// IsRevoked reports whether a token ID has been revoked. Redis errors are
// surfaced so the gate can fail closed on store trouble.
func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := l.rdb.Get(ctx, "revoked:"+jti).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
