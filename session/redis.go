package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "wallet:session:"

// RedisResolver reads session credentials written to Redis by the
// platform with a TTL. Expired or rotated keys simply stop resolving,
// which is exactly the rotation semantics the bridge needs.
type RedisResolver struct {
	rdb *redis.Client
}

func NewRedisResolver(addr string) *RedisResolver {
	return &RedisResolver{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (r *RedisResolver) Resolve(ctx context.Context, playerID string) (Credentials, error) {
	raw, err := r.rdb.Get(ctx, keyPrefix+playerID).Result()
	if errors.Is(err, redis.Nil) {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("resolve session: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, fmt.Errorf("resolve session: decode: %w", err)
	}
	return creds, nil
}

// Set writes a session mapping with ttl (0 = no expiry); used by sessionctl.
func (r *RedisResolver) Set(ctx context.Context, playerID string, creds Credentials, ttl time.Duration) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, keyPrefix+playerID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *RedisResolver) Delete(ctx context.Context, playerID string) error {
	if err := r.rdb.Del(ctx, keyPrefix+playerID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisResolver) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
