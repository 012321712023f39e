package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/yebrai/skillswap/internal/config"
	"github.com/yebrai/skillswap/internal/domain/chat"
	"github.com/yebrai/skillswap/internal/domain/exchange"
	"github.com/yebrai/skillswap/internal/domain/notification"
	"github.com/yebrai/skillswap/internal/domain/user"
	"github.com/yebrai/skillswap/internal/logger"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, config.Database{Driver: DriverSQLite, DSN: ":memory:"}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(ctx, db, logger.Discard()))
	return db
}

func seedUser(t *testing.T, repo *UserRepository, id, name string, offered ...user.OfferedSkill) *user.User {
	t.Helper()
	u := &user.User{
		ID:            id,
		Name:          name,
		Email:         id + "@example.com",
		PasswordHash:  "hash-" + id,
		OfferedSkills: offered,
		CreatedAt:     t0,
		UpdatedAt:     t0,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Database{Driver: "mysql", DSN: "x"}, logger.Discard())
	assert.Error(t, err)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	rating := 4.5
	ada := seedUser(t, repo, "ada", "Ada", user.OfferedSkill{Category: "Programming", Title: "Go", ExperienceLevel: user.Expert})
	seedUser(t, repo, "bob", "bob", user.OfferedSkill{Category: "Music", Title: "Guitar", Description: "Acoustic", ExperienceLevel: user.Beginner})
	seedUser(t, repo, "cy", "Cy")

	t.Run("find by id round-trips skills", func(t *testing.T) {
		got, err := repo.FindByID(ctx, "ada")
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.Name)
		assert.Equal(t, "hash-ada", got.PasswordHash)
		assert.Equal(t, ada.OfferedSkills, got.OfferedSkills)
		assert.Equal(t, []user.RequiredSkill{}, got.RequiredSkills)
		assert.True(t, t0.Equal(got.CreatedAt))
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.Create(ctx, &user.User{ID: "ada2", Name: "Ada", Email: "ada@example.com", PasswordHash: "x", CreatedAt: t0, UpdatedAt: t0})
		assert.ErrorIs(t, err, user.ErrEmailTaken)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "nobody")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
		_, err = repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("update", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		got.Bio = "Gopher"
		got.Rating = &rating
		got.RequiredSkills = []user.RequiredSkill{{Category: "Music", Title: "Guitar"}}
		require.NoError(t, repo.Update(ctx, got))

		again, err := repo.FindByID(ctx, "ada")
		require.NoError(t, err)
		assert.Equal(t, "Gopher", again.Bio)
		require.NotNil(t, again.Rating)
		assert.InDelta(t, 4.5, *again.Rating, 0.0001)
		assert.Equal(t, "Guitar", again.RequiredSkills[0].Title)

		assert.ErrorIs(t, repo.Update(ctx, &user.User{ID: "nobody"}), user.ErrUserNotFound)
	})

	t.Run("list orders by name and excludes", func(t *testing.T) {
		got, err := repo.List(ctx, user.ListFilter{ExcludeID: "cy"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ada", got[0].ID)
		assert.Equal(t, "bob", got[1].ID)
	})

	t.Run("list honours limit", func(t *testing.T) {
		got, err := repo.List(ctx, user.ListFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ada", got[0].ID)
	})
}

func TestUserSearchOverStoredSkills(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	seedUser(t, repo, "caller", "Caller")
	seedUser(t, repo, "elodie", "Élodie")
	seedUser(t, repo, "rnb", "Sam", user.OfferedSkill{Category: "Music", Title: "R&B Vocals", ExperienceLevel: user.Expert})
	seedUser(t, repo, "tags", "Tess", user.OfferedSkill{Category: "Programming", Title: "HTML", Description: "<div> layouts"})
	svc := user.NewService(repo, logger.Discard())

	for _, tc := range []struct {
		query, category string
		want            []string
	}{
		{query: "élodie", want: []string{"elodie"}},
		{query: "ÉLODIE", want: []string{"elodie"}},
		{query: "r&b", want: []string{"rnb"}},
		{query: "<div>", want: []string{"tags"}},
		{query: "vocals", category: "music", want: []string{"rnb"}},
		{query: "", category: "Music", want: []string{"rnb"}},
		{query: "caller", want: []string{}},
	} {
		got, err := svc.Search(ctx, "caller", tc.query, tc.category)
		require.NoError(t, err, tc.query)
		ids := make([]string, 0, len(got))
		for _, u := range got {
			ids = append(ids, u.ID)
		}
		assert.Equal(t, tc.want, ids, "query %q category %q", tc.query, tc.category)
	}
}

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	seedUser(t, users, "ada", "Ada")
	seedUser(t, users, "bob", "Bob")
	seedUser(t, users, "cy", "Cy")
	repo := NewMessageRepository(db)

	msgs := []*chat.Message{
		{ID: "m1", SenderID: "ada", RecipientID: "bob", Content: "hi bob", CreatedAt: t0},
		{ID: "m2", SenderID: "bob", RecipientID: "ada", Content: "hi ada", CreatedAt: t0.Add(time.Minute)},
		{ID: "m3", SenderID: "bob", RecipientID: "ada", Content: "you there?", CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "m4", SenderID: "cy", RecipientID: "ada", Content: "hello", CreatedAt: t0.Add(3 * time.Minute)},
	}
	for _, m := range msgs {
		require.NoError(t, repo.Create(ctx, m))
	}

	between, err := repo.ListBetween(ctx, "ada", "bob")
	require.NoError(t, err)
	require.Len(t, between, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{between[0].ID, between[1].ID, between[2].ID})

	all, err := repo.ListForUser(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "m4", all[0].ID)

	n, err := repo.MarkRead(ctx, "ada", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.MarkRead(ctx, "ada", "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	between, err = repo.ListBetween(ctx, "bob", "ada")
	require.NoError(t, err)
	assert.False(t, between[0].Read, "ada's own message is untouched")
	assert.True(t, between[1].Read)
	assert.True(t, between[2].Read)
}

func TestExchangeRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	seedUser(t, users, "ada", "Ada")
	seedUser(t, users, "bob", "Bob")
	repo := NewExchangeRepository(db)

	e := &exchange.Exchange{
		ID:        "x1",
		Initiator: exchange.Party{UserID: "ada", Skill: "Cooking"},
		Recipient: exchange.Party{UserID: "bob", Skill: "Guitar"},
		Status:    exchange.StatusPending,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	require.NoError(t, repo.Create(ctx, e))

	got, err := repo.FindByID(ctx, "x1")
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Initiator.UserID)
	assert.Equal(t, "Guitar", got.Recipient.Skill)
	assert.Nil(t, got.StartDate)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, exchange.ErrNotFound)

	ok, err := repo.UpdateStatusIfPending(ctx, "x1", exchange.StatusActive, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatusIfPending(ctx, "x1", exchange.StatusRejected, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "terminal state cannot change")

	got, err = repo.FindByID(ctx, "x1")
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusActive, got.Status)
	require.NotNil(t, got.StartDate)
	assert.True(t, t0.Add(time.Hour).Equal(*got.StartDate))

	for _, id := range []string{"ada", "bob"} {
		list, err := repo.ListForUser(ctx, id)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedUser(t, NewUserRepository(db), "ada", "Ada")
	repo := NewNotificationRepository(db)

	for i, typ := range []notification.Type{notification.TypeMessage, notification.TypeExchangeRequest, notification.TypeExchangeUpdate} {
		require.NoError(t, repo.Create(ctx, &notification.Notification{
			ID:        string(rune('a' + i)),
			UserID:    "ada",
			Type:      typ,
			Message:   "note",
			Payload:   map[string]any{"n": i},
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}

	items, err := repo.ListRecent(ctx, "ada", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, float64(2), items[0].Payload["n"])

	unread, err := repo.CountUnread(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	require.NoError(t, repo.MarkRead(ctx, "ada", "a"))
	assert.ErrorIs(t, repo.MarkRead(ctx, "someone-else", "b"), notification.ErrNotFound)

	n, err := repo.MarkAllRead(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	unread, err = repo.CountUnread(ctx, "ada")
	require.NoError(t, err)
	assert.Zero(t, unread)
}
