package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/domain/user"
	"github.com/yebrai/skillswap/internal/logger"
)

// fakeServer is a scripted SkillSwap API.
type fakeServer struct {
	*httptest.Server
	router *mux.Router

	mu   sync.Mutex
	hits map[string]int
	auth []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{router: mux.NewRouter(), hits: make(map[string]int)}
	f.Server = httptest.NewServer(f.router)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeServer) handle(method, path string, h http.HandlerFunc) {
	key := method + " " + path
	f.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[key]++
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		h(w, r)
	}).Methods(method)
}

func (f *fakeServer) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

func (f *fakeServer) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func ada() *user.User {
	return &user.User{
		ID:            "ada",
		Name:          "Ada",
		Email:         "ada@example.com",
		OfferedSkills: []user.OfferedSkill{{Category: "Food", Title: "Cooking", ExperienceLevel: user.Advanced}},
	}
}

func newAPI(t *testing.T, f *fakeServer) *client.Client {
	t.Helper()
	api, err := client.NewClient(client.ClientConfig{BaseURL: f.URL, Timeout: 2 * time.Second, Logger: logger.Discard()})
	require.NoError(t, err)
	return api
}

// loggedIn returns a holder authenticated as u with token "tok-1".
func loggedIn(t *testing.T, f *fakeServer, u *user.User) *client.SessionHolder {
	t.Helper()
	f.handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-1", "user": u})
	})
	s := client.NewSessionHolder(newAPI(t, f), nil)
	_, err := s.Login(t.Context(), client.Credentials{Email: u.Email, Password: "secret123"})
	require.NoError(t, err)
	return s
}
