package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/yebrai/skillswap/internal/domain/user"
)

// EventKind classifies session transitions.
type EventKind int

const (
	// EventLogin fires after login, registration or a successful restore.
	EventLogin EventKind = iota
	// EventLogout fires once whenever an authenticated session ends.
	EventLogout
	// EventProfileUpdated fires after UpdateProfile succeeds.
	EventProfileUpdated
)

// LogoutReason says why a session ended.
type LogoutReason int

const (
	ReasonUser LogoutReason = iota
	ReasonUnauthorized
)

// Event is delivered to observers after the holder's state has changed.
type Event struct {
	Kind   EventKind
	Reason LogoutReason
	Token  string
	User   *user.User
}

// Observer receives session events. It is called synchronously, outside
// of the holder's lock, so it may call back into the holder.
type Observer func(Event)

// Session is an authenticated identity.
type Session struct {
	Token string
	User  *user.User
}

// Credentials log an existing member in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile registers a new member.
type Profile struct {
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	Password       string               `json:"password"`
	Bio            string               `json:"bio,omitempty"`
	Avatar         string               `json:"avatar,omitempty"`
	OfferedSkills  []user.OfferedSkill  `json:"offeredSkills,omitempty"`
	RequiredSkills []user.RequiredSkill `json:"requiredSkills,omitempty"`
}

// ProfilePatch changes only the non-nil fields.
type ProfilePatch struct {
	Name           *string               `json:"name,omitempty"`
	Bio            *string               `json:"bio,omitempty"`
	Avatar         *string               `json:"avatar,omitempty"`
	OfferedSkills  *[]user.OfferedSkill  `json:"offeredSkills,omitempty"`
	RequiredSkills *[]user.RequiredSkill `json:"requiredSkills,omitempty"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// SessionHolder is the single owner of the token and current user. Every
// request that needs authentication goes through Do, which attaches the
// token and tears the session down on the first 401 it causes.
type SessionHolder struct {
	api   *Client
	store TokenStore

	mu         sync.Mutex
	token      string
	user       *user.User
	generation uint64
	observers  map[int]Observer
	nextID     int
}

// NewSessionHolder creates an unauthenticated holder. A nil store keeps
// the token in memory only.
func NewSessionHolder(api *Client, store TokenStore) *SessionHolder {
	if store == nil {
		store = &MemoryTokenStore{}
	}
	return &SessionHolder{api: api, store: store, observers: make(map[int]Observer)}
}

// API is the transport the holder issues requests on.
func (s *SessionHolder) API() *Client { return s.api }

// Subscribe registers an observer and returns a function removing it.
func (s *SessionHolder) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Token returns the current access token, or "".
func (s *SessionHolder) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the current user, or nil.
func (s *SessionHolder) User() *user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *SessionHolder) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != "" && s.user != nil
}

// Login authenticates and persists the resulting token.
func (s *SessionHolder) Login(ctx context.Context, creds Credentials) (Session, error) {
	var resp authResponse
	if err := s.api.Do(ctx, http.MethodPost, "/api/auth/login", "", creds, &resp, nil); err != nil {
		return Session{}, fail(err, "Login failed")
	}
	return s.establish(resp, "Login failed")
}

// Register creates an account and logs it in.
func (s *SessionHolder) Register(ctx context.Context, p Profile) (Session, error) {
	var resp authResponse
	if err := s.api.Do(ctx, http.MethodPost, "/api/auth/register", "", p, &resp, nil); err != nil {
		return Session{}, fail(err, "Registration failed")
	}
	return s.establish(resp, "Registration failed")
}

// Restore resumes the session of a persisted token by loading its user.
func (s *SessionHolder) Restore(ctx context.Context) (Session, error) {
	token, err := s.store.Load()
	if err != nil {
		return Session{}, err
	}
	if token == "" {
		return Session{}, ErrNoSession
	}

	s.mu.Lock()
	s.token = token
	s.user = nil
	s.generation++
	s.mu.Unlock()

	var u user.User
	if err := s.Do(ctx, http.MethodGet, "/api/auth/user", nil, &u, nil); err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			// Keep the token for a later retry; only the user is unknown.
			return Session{}, err
		}
		return Session{}, ErrNoSession
	}

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return Session{}, ErrNoSession
	}
	s.user = &u
	observers := s.snapshotObservers()
	s.mu.Unlock()

	notify(observers, Event{Kind: EventLogin, Token: token, User: &u})
	return Session{Token: token, User: &u}, nil
}

func (s *SessionHolder) establish(resp authResponse, fallback string) (Session, error) {
	if resp.Token == "" || resp.User == nil {
		return Session{}, &Failure{Message: fallback, Err: errors.New("skillswap: response without token")}
	}
	if err := s.store.Save(resp.Token); err != nil {
		return Session{}, &Failure{Message: fallback, Err: err}
	}

	s.mu.Lock()
	s.token = resp.Token
	s.user = resp.User
	s.generation++
	observers := s.snapshotObservers()
	s.mu.Unlock()

	notify(observers, Event{Kind: EventLogin, Token: resp.Token, User: resp.User})
	return Session{Token: resp.Token, User: resp.User}, nil
}

// Logout ends the session at the user's request.
func (s *SessionHolder) Logout() {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	s.end(gen, ReasonUser)
}

// UpdateProfile applies patch to the current user.
func (s *SessionHolder) UpdateProfile(ctx context.Context, patch ProfilePatch) (*user.User, error) {
	var u user.User
	if err := s.Do(ctx, http.MethodPut, "/api/users/profile", patch, &u, nil); err != nil {
		return nil, fail(err, "Profile update failed")
	}

	s.mu.Lock()
	s.user = &u
	token := s.token
	observers := s.snapshotObservers()
	s.mu.Unlock()

	notify(observers, Event{Kind: EventProfileUpdated, Token: token, User: &u})
	return &u, nil
}

// Do issues an authenticated request with the current token. A 401
// ends the session that was current when the request was sent. Later
// 401s for the same session are ignored, so concurrent failures log out
// once.
func (s *SessionHolder) Do(ctx context.Context, method, path string, body, out any, query url.Values) error {
	s.mu.Lock()
	token, gen := s.token, s.generation
	s.mu.Unlock()
	if token == "" {
		return ErrNoSession
	}

	err := s.api.Do(ctx, method, path, token, body, out, query)
	if errors.Is(err, ErrUnauthorized) {
		s.end(gen, ReasonUnauthorized)
	}
	return err
}

// end clears the session if gen is still current.
func (s *SessionHolder) end(gen uint64, reason LogoutReason) {
	s.mu.Lock()
	if gen != s.generation || s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.user = nil
	s.generation++
	observers := s.snapshotObservers()
	s.mu.Unlock()

	if err := s.store.Delete(); err != nil {
		s.api.logger.Warn("delete persisted token", "error", err)
	}
	notify(observers, Event{Kind: EventLogout, Reason: reason})
}

// snapshotObservers must be called with mu held.
func (s *SessionHolder) snapshotObservers() []Observer {
	out := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		out = append(out, o)
	}
	return out
}

func notify(observers []Observer, ev Event) {
	for _, o := range observers {
		o(ev)
	}
}
