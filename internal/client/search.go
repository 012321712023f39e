package client

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yebrai/skillswap/internal/domain/user"
)

const (
	SearchDebounce   = 300 * time.Millisecond
	NoResultsMessage = "No users found matching your search criteria."

	searchFailureMessage = "Failed to search users"
)

// SearchResult is one delivered search response.
type SearchResult struct {
	Users   []*user.User
	Empty   bool
	Message string
}

// Shuffler reorders results in place.
type Shuffler func([]*user.User)

func randomShuffle(users []*user.User) {
	rand.Shuffle(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] })
}

// Search performs a single search request. An empty category or "All"
// searches every category. The caller never appears in the results.
func Search(ctx context.Context, session *SessionHolder, query, category string, shuffle Shuffler) (SearchResult, error) {
	q := url.Values{}
	if query = strings.TrimSpace(query); query != "" {
		q.Set("query", query)
	}
	if category = strings.TrimSpace(category); category != "" && !strings.EqualFold(category, "all") {
		q.Set("category", category)
	}

	var users []*user.User
	if err := session.Do(ctx, http.MethodGet, "/api/users/search/skills", nil, &users, q); err != nil {
		return SearchResult{}, fail(err, searchFailureMessage)
	}

	self := ""
	if me := session.User(); me != nil {
		self = me.ID
	}
	filtered := users[:0]
	for _, u := range users {
		if u.ID != self {
			filtered = append(filtered, u)
		}
	}
	if len(filtered) == 0 {
		return SearchResult{Users: []*user.User{}, Empty: true, Message: NoResultsMessage}, nil
	}
	if shuffle == nil {
		shuffle = randomShuffle
	}
	shuffle(filtered)
	return SearchResult{Users: filtered}, nil
}

// SearchOption configures a Searcher.
type SearchOption func(*Searcher)

// WithDebounce overrides SearchDebounce.
func WithDebounce(d time.Duration) SearchOption {
	return func(s *Searcher) { s.debounce = d }
}

// WithShuffler replaces the random result order.
func WithShuffler(fn Shuffler) SearchOption {
	return func(s *Searcher) { s.shuffle = fn }
}

// Searcher debounces interactive queries. Only the response to the last
// query is delivered: a new query cancels the request in flight and any
// response that arrives for an older query is dropped.
type Searcher struct {
	session  *SessionHolder
	deliver  func(SearchResult, error)
	debounce time.Duration
	shuffle  Shuffler

	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	closed     bool
}

// NewSearcher creates a Searcher that hands results to deliver. deliver
// runs on a background goroutine.
func NewSearcher(session *SessionHolder, deliver func(SearchResult, error), opts ...SearchOption) *Searcher {
	s := &Searcher{session: session, deliver: deliver, debounce: SearchDebounce, shuffle: randomShuffle}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query schedules a search once no other query arrives for the debounce
// interval.
func (s *Searcher) Query(query, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.supersede()
	gen := s.generation
	s.timer = time.AfterFunc(s.debounce, func() { s.run(gen, query, category) })
}

// Close drops any pending or in-flight search.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.supersede()
}

// supersede must be called with mu held.
func (s *Searcher) supersede() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Searcher) run(gen uint64, query, category string) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	res, err := Search(ctx, s.session, query, category, s.shuffle)

	s.mu.Lock()
	stale := gen != s.generation
	if !stale {
		s.cancel = nil
	}
	s.mu.Unlock()
	if stale {
		return
	}
	s.deliver(res, err)
}
