package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yebrai/skillswap/internal/domain/user"
)

const (
	userCachePrefixByID    = "user:id:"
	userCachePrefixByEmail = "user:email:"
	defaultUserCacheTTL    = 1 * time.Hour
)

// cachedUser carries the password hash, which the public JSON form of
// user.User omits.
type cachedUser struct {
	*user.User
	PasswordHash string `json:"passwordHash"`
}

// RedisUserRepository is a read-through cache in front of another
// user.Repository. Redis failures are logged and fall back to the
// wrapped repository.
type RedisUserRepository struct {
	source   user.Repository
	client   *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewRedisUserRepository creates a new RedisUserRepository.
func NewRedisUserRepository(source user.Repository, client *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *RedisUserRepository {
	if cacheTTL <= 0 {
		cacheTTL = defaultUserCacheTTL
	}
	return &RedisUserRepository{
		source:   source,
		client:   client,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "user_cache"),
	}
}

func (r *RedisUserRepository) cacheKeyID(id string) string {
	return userCachePrefixByID + id
}

func (r *RedisUserRepository) cacheKeyEmail(email string) string {
	return userCachePrefixByEmail + email
}

// Create stores the user in the source repository and then caches it.
func (r *RedisUserRepository) Create(ctx context.Context, u *user.User) error {
	if err := r.source.Create(ctx, u); err != nil {
		return err
	}
	r.store(ctx, u)
	return nil
}

// FindByID tries Redis first; on a miss it reads the source and caches.
func (r *RedisUserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	if u, ok := r.load(ctx, r.cacheKeyID(id)); ok {
		return u, nil
	}
	u, err := r.source.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, u)
	return u, nil
}

// FindByEmail tries Redis first; on a miss it reads the source and caches.
func (r *RedisUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if u, ok := r.load(ctx, r.cacheKeyEmail(email)); ok {
		return u, nil
	}
	u, err := r.source.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	r.store(ctx, u)
	return u, nil
}

// Update writes through and invalidates both cache keys.
func (r *RedisUserRepository) Update(ctx context.Context, u *user.User) error {
	if err := r.source.Update(ctx, u); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.cacheKeyID(u.ID), r.cacheKeyEmail(u.Email)).Err(); err != nil {
		r.logger.Warn("cache invalidation failed", "user_id", u.ID, "error", err)
	}
	return nil
}

// List is not cached.
func (r *RedisUserRepository) List(ctx context.Context, filter user.ListFilter) ([]*user.User, error) {
	return r.source.List(ctx, filter)
}

func (r *RedisUserRepository) load(ctx context.Context, key string) (*user.User, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache read failed, falling back to db", "key", key, "error", err)
		}
		return nil, false
	}
	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil || cached.User == nil {
		r.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return nil, false
	}
	cached.User.PasswordHash = cached.PasswordHash
	cached.User.Normalize()
	return cached.User, true
}

func (r *RedisUserRepository) store(ctx context.Context, u *user.User) {
	data, err := json.Marshal(cachedUser{User: u, PasswordHash: u.PasswordHash})
	if err != nil {
		r.logger.Warn("marshal user for cache", "user_id", u.ID, "error", err)
		return
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.cacheKeyID(u.ID), data, r.cacheTTL)
	pipe.Set(ctx, r.cacheKeyEmail(u.Email), data, r.cacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("cache write failed", "user_id", u.ID, "error", err)
	}
}
