package client_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/domain/user"
)

func TestSessionHolder_LoginPersistsAndNotifies(t *testing.T) {
	f := newFakeServer(t)
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-1", "user": ada()})
	})
	f.handle(http.MethodGet, "/api/auth/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ada())
	})

	store := &client.MemoryTokenStore{}
	s := client.NewSessionHolder(newAPI(t, f), store)
	var events []client.Event
	s.Subscribe(func(ev client.Event) { events = append(events, ev) })

	sess, err := s.Login(context.Background(), client.Credentials{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, "ada", sess.User.ID)
	assert.True(t, s.Authenticated())

	saved, _ := store.Load()
	assert.Equal(t, "tok-1", saved)
	require.Len(t, events, 1)
	assert.Equal(t, client.EventLogin, events[0].Kind)

	var me user.User
	require.NoError(t, s.Do(context.Background(), http.MethodGet, "/api/auth/user", nil, &me, nil))
	assert.Contains(t, f.authHeaders(), "Bearer tok-1")
}

func TestSessionHolder_LoginFailures(t *testing.T) {
	t.Run("server message is surfaced", func(t *testing.T) {
		f := newFakeServer(t)
		f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid credentials")
		})
		s := client.NewSessionHolder(newAPI(t, f), nil)

		_, err := s.Login(context.Background(), client.Credentials{Email: "ada@example.com", Password: "nope"})
		require.Error(t, err)
		assert.Equal(t, "Invalid credentials", err.Error())
		assert.ErrorIs(t, err, client.ErrUnauthorized)
		assert.False(t, s.Authenticated())
	})

	t.Run("server errors use the fallback", func(t *testing.T) {
		f := newFakeServer(t)
		f.handle(http.MethodPost, "/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
		})
		s := client.NewSessionHolder(newAPI(t, f), nil)

		_, err := s.Register(context.Background(), client.Profile{Name: "Ada", Email: "ada@example.com", Password: "secret123"})
		require.Error(t, err)
		assert.Equal(t, "Registration failed", err.Error())
	})

	t.Run("network errors leave the session untouched", func(t *testing.T) {
		f := newFakeServer(t)
		s := loggedIn(t, f, ada())
		f.Close()

		_, err := s.Login(context.Background(), client.Credentials{Email: "ada@example.com", Password: "secret123"})
		require.Error(t, err)
		assert.ErrorIs(t, err, client.ErrNetwork)
		assert.Equal(t, "Login failed", err.Error())
		assert.Equal(t, "tok-1", s.Token())
	})
}

func TestSessionHolder_ConcurrentUnauthorizedLogsOutOnce(t *testing.T) {
	f := newFakeServer(t)
	release := make(chan struct{})
	f.handle(http.MethodGet, "/api/users", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token")
	})

	store := &client.MemoryTokenStore{}
	s := client.NewSessionHolder(newAPI(t, f), store)
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-1", "user": ada()})
	})
	_, err := s.Login(context.Background(), client.Credentials{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	var logouts atomic.Int32
	s.Subscribe(func(ev client.Event) {
		if ev.Kind == client.EventLogout {
			assert.Equal(t, client.ReasonUnauthorized, ev.Reason)
			logouts.Add(1)
		}
	})

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Do(context.Background(), http.MethodGet, "/api/users", nil, nil, nil)
			assert.ErrorIs(t, err, client.ErrUnauthorized)
		}()
	}
	// Every request must be in flight before any of them fails.
	require.Eventually(t, func() bool { return f.count(http.MethodGet, "/api/users") == n }, timeout, tick)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), logouts.Load())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
	saved, _ := store.Load()
	assert.Empty(t, saved)

	// With no session, requests are refused locally.
	err = s.Do(context.Background(), http.MethodGet, "/api/users", nil, nil, nil)
	assert.ErrorIs(t, err, client.ErrNoSession)
	assert.Equal(t, n, f.count(http.MethodGet, "/api/users"))
}

func TestSessionHolder_StaleUnauthorizedDoesNotEndNewSession(t *testing.T) {
	f := newFakeServer(t)
	release := make(chan struct{})
	f.handle(http.MethodGet, "/api/users", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token")
	})
	s := loggedIn(t, f, ada())

	done := make(chan error)
	go func() { done <- s.Do(context.Background(), http.MethodGet, "/api/users", nil, nil, nil) }()
	require.Eventually(t, func() bool { return f.count(http.MethodGet, "/api/users") == 1 }, timeout, tick)

	// A fresh login happens while the old request is still pending.
	_, err := s.Login(context.Background(), client.Credentials{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	close(release)
	assert.ErrorIs(t, <-done, client.ErrUnauthorized)

	assert.True(t, s.Authenticated())
}

func TestSessionHolder_RestoreAndLogout(t *testing.T) {
	f := newFakeServer(t)
	f.handle(http.MethodGet, "/api/auth/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer saved" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token")
			return
		}
		writeJSON(w, http.StatusOK, ada())
	})

	store := client.FileTokenStore{Path: filepath.Join(t.TempDir(), "skillswap", "token")}
	s := client.NewSessionHolder(newAPI(t, f), store)

	_, err := s.Restore(context.Background())
	assert.ErrorIs(t, err, client.ErrNoSession)

	require.NoError(t, store.Save("saved"))
	sess, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", sess.User.ID)

	var reasons []client.LogoutReason
	s.Subscribe(func(ev client.Event) {
		if ev.Kind == client.EventLogout {
			reasons = append(reasons, ev.Reason)
		}
	})
	s.Logout()
	s.Logout()
	assert.Equal(t, []client.LogoutReason{client.ReasonUser}, reasons)
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, saved)

	require.NoError(t, store.Save("revoked"))
	_, err = s.Restore(context.Background())
	assert.ErrorIs(t, err, client.ErrNoSession)
	saved, _ = store.Load()
	assert.Empty(t, saved, "a rejected token is forgotten")
}

func TestSessionHolder_UpdateProfile(t *testing.T) {
	f := newFakeServer(t)
	s := loggedIn(t, f, ada())

	calls := 0
	f.handle(http.MethodPut, "/api/users/profile", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "name is required")
			return
		}
		u := ada()
		u.Bio = "Chef"
		writeJSON(w, http.StatusOK, u)
	})

	blank := ""
	_, err := s.UpdateProfile(context.Background(), client.ProfilePatch{Name: &blank})
	require.Error(t, err)
	assert.Equal(t, "name is required", err.Error())
	assert.Empty(t, s.User().Bio)

	bio := "Chef"
	u, err := s.UpdateProfile(context.Background(), client.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Chef", u.Bio)
	assert.Equal(t, "Chef", s.User().Bio)

	s.Logout()
	_, err = s.UpdateProfile(context.Background(), client.ProfilePatch{Bio: &bio})
	assert.True(t, errors.Is(err, client.ErrNoSession))
	assert.Equal(t, "Profile update failed", err.Error())
}
