package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yebrai/skillswap/internal/domain/user"
	"github.com/yebrai/skillswap/internal/domain/user/mocks"
	"github.com/yebrai/skillswap/internal/logger"
)

func newCachedRepo(t *testing.T) (*RedisUserRepository, *mocks.MockRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	source := mocks.NewMockRepository(gomock.NewController(t))
	return NewRedisUserRepository(source, client, 0, logger.Discard()), source, mr
}

func TestRedisUserRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repo, source, mr := newCachedRepo(t)
	stored := &user.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "secret-hash"}

	// Only the first lookup reaches the source.
	source.EXPECT().FindByID(gomock.Any(), "u1").Return(stored, nil).Times(1)

	first, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", first.Name)
	assert.True(t, mr.Exists("user:id:u1"))
	assert.True(t, mr.Exists("user:email:ada@example.com"))
	assert.Equal(t, defaultUserCacheTTL, mr.TTL("user:id:u1"))

	second, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "secret-hash", second.PasswordHash, "hash survives the cache")

	byEmail, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
}

func TestRedisUserRepository_UpdateInvalidates(t *testing.T) {
	ctx := context.Background()
	repo, source, mr := newCachedRepo(t)
	u := &user.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}

	source.EXPECT().Create(gomock.Any(), u).Return(nil)
	require.NoError(t, repo.Create(ctx, u))
	require.True(t, mr.Exists("user:id:u1"))

	source.EXPECT().Update(gomock.Any(), u).Return(nil)
	require.NoError(t, repo.Update(ctx, u))
	assert.False(t, mr.Exists("user:id:u1"))
	assert.False(t, mr.Exists("user:email:ada@example.com"))
}

func TestRedisUserRepository_FallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	repo, source, mr := newCachedRepo(t)
	mr.Close()

	source.EXPECT().FindByID(gomock.Any(), "u1").Return(&user.User{ID: "u1"}, nil)
	got, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

func TestRedisUserRepository_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo, source, mr := newCachedRepo(t)

	source.EXPECT().FindByEmail(gomock.Any(), "who@example.com").Return(nil, user.ErrUserNotFound)
	_, err := repo.FindByEmail(ctx, "who@example.com")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.Empty(t, mr.Keys())
}
