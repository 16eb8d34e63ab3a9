// Package cache provides a Redis-backed read-through cache for user
// records. The cache is advisory: lookups fall back to Postgres on any
// miss or Redis error, and role mutations invalidate eagerly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"wordsofdeath.app/internal/accounts"
	"wordsofdeath.app/internal/obs"
)

const (
	userKeyPrefix = "wod:user:"
	defaultTTL    = 30 * time.Minute
)

// Users caches user records keyed by username.
type Users struct {
	rdb *redis.Client
	ttl time.Duration
}

// Option configures Users.
type Option func(*Users)

// WithTTL overrides the default cache entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(u *Users) {
		if ttl > 0 {
			u.ttl = ttl
		}
	}
}

// NewUsers wraps a Redis client. The caller owns the client lifecycle.
func NewUsers(rdb *redis.Client, opts ...Option) *Users {
	u := &Users{rdb: rdb, ttl: defaultTTL}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

var _ accounts.UserCache = (*Users)(nil)

func (u *Users) Get(ctx context.Context, username string) (accounts.User, bool) {
	raw, err := u.rdb.Get(ctx, userKeyPrefix+username).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			obs.LogRequest(map[string]any{"level": "warn", "msg": "user_cache_get_failed", "error": err.Error()})
		}
		return accounts.User{}, false
	}
	var user accounts.User
	if err := json.Unmarshal(raw, &user); err != nil {
		// Corrupt record; drop it and treat as a miss.
		u.rdb.Del(ctx, userKeyPrefix+username)
		return accounts.User{}, false
	}
	return user, true
}

func (u *Users) Put(ctx context.Context, user accounts.User) {
	if user.Username == "" {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := u.rdb.Set(ctx, userKeyPrefix+user.Username, raw, u.ttl).Err(); err != nil {
		obs.LogRequest(map[string]any{"level": "warn", "msg": "user_cache_put_failed", "error": err.Error()})
	}
}

func (u *Users) Invalidate(ctx context.Context, username string) {
	if err := u.rdb.Del(ctx, userKeyPrefix+username).Err(); err != nil {
		obs.LogRequest(map[string]any{"level": "warn", "msg": "user_cache_invalidate_failed", "error": err.Error()})
	}
}
