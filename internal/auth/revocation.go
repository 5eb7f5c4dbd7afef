package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker remembers signed-out tokens until they would have expired.
type Revoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisRevoker keeps revoked tokens in Redis so every server instance sees
// a logout. Keys expire with the token.
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

// NewRedisRevoker returns a Revoker backed by client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "snippets:revoked:"}
}

// key hashes the token so full JWTs never sit in Redis.
func (r *RedisRevoker) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + hex.EncodeToString(sum[:])
}

func (r *RedisRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoking token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("auth: checking revocation: %w", err)
	}
	return n > 0, nil
}

// NoopRevoker is used when no Redis is configured: logout only clears the
// cookie and tokens stay valid until they expire.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }

func (NoopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }
