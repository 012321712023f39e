package client_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/domain/user"
)

func reverse(users []*user.User) {
	for i, j := 0, len(users)-1; i < j; i, j = i+1, j-1 {
		users[i], users[j] = users[j], users[i]
	}
}

func TestSearch(t *testing.T) {
	f := newFakeServer(t)
	s := loggedIn(t, f, ada())

	var mu sync.Mutex
	var lastQuery, lastCategory string
	last := func() (string, string) {
		mu.Lock()
		defer mu.Unlock()
		return lastQuery, lastCategory
	}
	f.handle(http.MethodGet, "/api/users/search/skills", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		lastQuery, lastCategory = q.Get("query"), q.Get("category")
		mu.Unlock()
		if q.Get("query") == "nothing" {
			writeJSON(w, http.StatusOK, []*user.User{{ID: "ada", Name: "Ada"}})
			return
		}
		writeJSON(w, http.StatusOK, []*user.User{{ID: "bob", Name: "Bob"}, {ID: "ada", Name: "Ada"}, {ID: "cy", Name: "Cy"}})
	})

	t.Run("excludes the caller and shuffles", func(t *testing.T) {
		res, err := client.Search(context.Background(), s, " guitar ", "Music", reverse)
		require.NoError(t, err)
		require.Len(t, res.Users, 2)
		assert.Equal(t, "cy", res.Users[0].ID)
		assert.Equal(t, "bob", res.Users[1].ID)
		assert.False(t, res.Empty)
		query, category := last()
		assert.Equal(t, "guitar", query)
		assert.Equal(t, "Music", category)
	})

	t.Run("all categories", func(t *testing.T) {
		_, err := client.Search(context.Background(), s, "", "All", reverse)
		require.NoError(t, err)
		_, category := last()
		assert.Empty(t, category)
	})

	t.Run("only the caller matches", func(t *testing.T) {
		res, err := client.Search(context.Background(), s, "nothing", "", nil)
		require.NoError(t, err)
		assert.True(t, res.Empty)
		assert.Empty(t, res.Users)
		assert.Equal(t, client.NoResultsMessage, res.Message)
	})
}

func TestSearch_Failure(t *testing.T) {
	f := newFakeServer(t)
	s := loggedIn(t, f, ada())
	f.handle(http.MethodGet, "/api/users/search/skills", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "boom")
	})

	_, err := client.Search(context.Background(), s, "go", "", nil)
	require.Error(t, err)
	assert.Equal(t, "Failed to search users", err.Error())
}

type deliveries struct {
	mu  sync.Mutex
	got []client.SearchResult
}

func (d *deliveries) add(res client.SearchResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		d.got = append(d.got, res)
	}
}

func (d *deliveries) all() []client.SearchResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]client.SearchResult(nil), d.got...)
}

func TestSearcher_LastQueryWins(t *testing.T) {
	f := newFakeServer(t)
	s := loggedIn(t, f, ada())

	slowStarted := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	f.handle(http.MethodGet, "/api/users/search/skills", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "slow" {
			close(slowStarted)
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
			writeJSON(w, http.StatusOK, []*user.User{{ID: "stale"}})
			return
		}
		writeJSON(w, http.StatusOK, []*user.User{{ID: "fresh"}})
	})

	var d deliveries
	searcher := client.NewSearcher(s, d.add, client.WithDebounce(time.Millisecond), client.WithShuffler(reverse))
	t.Cleanup(searcher.Close)

	searcher.Query("slow", "")
	select {
	case <-slowStarted:
	case <-time.After(timeout):
		t.Fatal("slow search never reached the server")
	}
	searcher.Query("fast", "")

	require.Eventually(t, func() bool { return len(d.all()) == 1 }, timeout, tick)
	// Give a late stale response the chance to show up.
	time.Sleep(50 * time.Millisecond)

	got := d.all()
	require.Len(t, got, 1)
	require.Len(t, got[0].Users, 1)
	assert.Equal(t, "fresh", got[0].Users[0].ID)
}

func TestSearcher_Debounce(t *testing.T) {
	f := newFakeServer(t)
	s := loggedIn(t, f, ada())

	var mu sync.Mutex
	var queries []string
	f.handle(http.MethodGet, "/api/users/search/skills", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("query"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, []*user.User{{ID: "bob"}})
	})

	var d deliveries
	searcher := client.NewSearcher(s, d.add, client.WithDebounce(100*time.Millisecond))
	t.Cleanup(searcher.Close)

	for _, q := range []string{"g", "gu", "gui", "guit"} {
		searcher.Query(q, "")
	}

	require.Eventually(t, func() bool { return len(d.all()) == 1 }, timeout, tick)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"guit"}, queries)
}

func TestSearcher_CloseDropsPending(t *testing.T) {
	f := newFakeServer(t)
	s := loggedIn(t, f, ada())
	f.handle(http.MethodGet, "/api/users/search/skills", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []*user.User{{ID: "bob"}})
	})

	var d deliveries
	searcher := client.NewSearcher(s, d.add, client.WithDebounce(20*time.Millisecond))
	searcher.Query("go", "")
	searcher.Close()
	searcher.Query("go again", "")

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, d.all())
	assert.Zero(t, f.count(http.MethodGet, "/api/users/search/skills"))
}
