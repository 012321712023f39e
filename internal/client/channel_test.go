package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/domain/chat"
	realtime "github.com/yebrai/skillswap/internal/websocket"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func msg(id, from, to string, offset time.Duration) *chat.Message {
	return &chat.Message{ID: id, SenderID: from, RecipientID: to, Content: id, CreatedAt: epoch.Add(offset)}
}

func ids(msgs []*chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

// realtimeServer accepts websocket connections on /ws and hands them to
// the test.
type realtimeServer struct {
	*fakeServer
	conns chan *websocket.Conn
	// gone receives once per connection when the server stops reading it.
	gone chan struct{}

	mu     sync.Mutex
	tokens []string
}

func newRealtimeServer(t *testing.T) *realtimeServer {
	rs := &realtimeServer{fakeServer: newFakeServer(t), conns: make(chan *websocket.Conn, 4), gone: make(chan struct{}, 4)}
	rs.handle(http.MethodGet, "/ws", func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.tokens = append(rs.tokens, r.URL.Query().Get("token"))
		rs.mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { rs.gone <- struct{}{} }()
		rs.conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	return rs
}

func (rs *realtimeServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-rs.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(timeout):
		t.Fatal("no realtime connection")
		return nil
	}
}

func push(t *testing.T, conn *websocket.Conn, m *chat.Message) {
	t.Helper()
	payload, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(realtime.Event{
		Type:      realtime.ReceiveMessageEvent,
		Room:      realtime.PersonalRoom("ada"),
		Payload:   payload,
		Timestamp: time.Now(),
	}))
}

func openChannel(t *testing.T, s *client.SessionHolder, opts ...client.ChannelOption) *client.Channel {
	t.Helper()
	ch := client.NewChannel(s, "bob", opts...)
	t.Cleanup(ch.Close)
	return ch
}

func TestChannel_HistoryAndLiveMessages(t *testing.T) {
	rs := newRealtimeServer(t)
	s := loggedIn(t, rs.fakeServer, ada())
	rs.handle(http.MethodGet, "/api/messages/{peerId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []*chat.Message{
			msg("m2", "bob", "ada", time.Minute),
			msg("m1", "ada", "bob", 0),
		})
	})

	var changes int
	var changesMu sync.Mutex
	ch := openChannel(t, s, client.WithOnChange(func([]*chat.Message) {
		changesMu.Lock()
		changes++
		changesMu.Unlock()
	}))
	require.NoError(t, ch.Open(context.Background()))
	assert.Equal(t, []string{"m1", "m2"}, ids(ch.Messages()))

	conn := rs.accept(t)
	require.Eventually(t, func() bool { return ch.State() == client.Connected }, timeout, tick)

	push(t, conn, msg("m-other", "cy", "ada", 2*time.Minute))
	push(t, conn, msg("m2", "bob", "ada", time.Minute))
	push(t, conn, msg("m3", "bob", "ada", 3*time.Minute))

	require.Eventually(t, func() bool { return len(ch.Messages()) == 3 }, timeout, tick)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(ch.Messages()))
	assert.Eventually(t, func() bool {
		changesMu.Lock()
		defer changesMu.Unlock()
		return changes == 2
	}, timeout, tick)

	rs.mu.Lock()
	assert.Equal(t, []string{"tok-1"}, rs.tokens)
	rs.mu.Unlock()
}

func TestChannel_Send(t *testing.T) {
	rs := newRealtimeServer(t)
	s := loggedIn(t, rs.fakeServer, ada())
	rs.handle(http.MethodGet, "/api/messages/{peerId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []*chat.Message{})
	})

	var fail atomic.Bool
	sent := make(chan map[string]string, 1)
	rs.handle(http.MethodPost, "/api/messages", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sent <- body
		writeJSON(w, http.StatusCreated, msg("m1", "ada", body["recipientId"], 0))
	})

	ch := openChannel(t, s)

	// Not open yet.
	ch.SetDraft("hello")
	_, err := ch.Send(context.Background())
	assert.ErrorIs(t, err, client.ErrNotConnected)

	require.NoError(t, ch.Open(context.Background()))
	conn := rs.accept(t)
	require.Eventually(t, func() bool { return ch.State() == client.Connected }, timeout, tick)

	ch.SetDraft("   ")
	_, err = ch.Send(context.Background())
	assert.ErrorIs(t, err, client.ErrEmptyMessage)
	assert.Zero(t, rs.count(http.MethodPost, "/api/messages"))

	fail.Store(true)
	ch.SetDraft(" hi bob ")
	_, err = ch.Send(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to send message. Please try again.", err.Error())
	assert.Equal(t, " hi bob ", ch.Draft())
	assert.Equal(t, "Failed to send message. Please try again.", ch.Error())
	assert.Empty(t, ch.Messages())

	ch.DismissError()
	assert.Empty(t, ch.Error())

	fail.Store(false)
	m, err := ch.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, map[string]string{"recipientId": "bob", "content": "hi bob"}, <-sent)
	assert.Empty(t, ch.Draft())

	// The realtime echo of our own message is not appended twice.
	push(t, conn, msg("m1", "ada", "bob", 0))
	push(t, conn, msg("m2", "bob", "ada", time.Second))
	require.Eventually(t, func() bool { return len(ch.Messages()) == 2 }, timeout, tick)
	assert.Equal(t, []string{"m1", "m2"}, ids(ch.Messages()))
}

func TestChannel_HistoryFailureStillConnects(t *testing.T) {
	rs := newRealtimeServer(t)
	s := loggedIn(t, rs.fakeServer, ada())
	rs.handle(http.MethodGet, "/api/messages/{peerId}", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	})

	ch := openChannel(t, s)
	err := ch.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to load messages", err.Error())

	rs.accept(t)
	require.Eventually(t, func() bool { return ch.State() == client.Connected }, timeout, tick)
	assert.Equal(t, "Failed to load messages", ch.Error())
}

func TestChannel_ReconnectBudget(t *testing.T) {
	f := newFakeServer(t)
	s := loggedIn(t, f, ada())
	f.handle(http.MethodGet, "/api/messages/{peerId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []*chat.Message{})
	})
	f.handle(http.MethodGet, "/ws", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	var mu sync.Mutex
	var states []client.State
	var messages []string
	ch := openChannel(t, s,
		client.WithReconnect(2, 10*time.Millisecond),
		client.WithOnState(func(st client.State, text string) {
			mu.Lock()
			states = append(states, st)
			messages = append(messages, text)
			mu.Unlock()
		}),
	)
	require.NoError(t, ch.Open(context.Background()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ch.Err() != nil && len(states) > 0 && states[len(states)-1] == client.Disconnected
	}, timeout, tick)
	assert.ErrorIs(t, ch.Err(), client.ErrReconnectExhausted)
	assert.Equal(t, client.Disconnected, ch.State())
	assert.Equal(t, "Connection lost. Reopen the conversation to try again.", ch.Error())
	// One initial dial plus two retries.
	assert.Equal(t, 3, f.count(http.MethodGet, "/ws"))

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, states, client.Connected)
	assert.Contains(t, messages, "Connection error. Trying to reconnect...", "retries announce themselves")
	assert.Equal(t, "Connection lost. Reopen the conversation to try again.", messages[len(messages)-1])
}

func TestChannel_ReconnectsAfterDrop(t *testing.T) {
	rs := newRealtimeServer(t)
	s := loggedIn(t, rs.fakeServer, ada())
	rs.handle(http.MethodGet, "/api/messages/{peerId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []*chat.Message{})
	})

	ch := openChannel(t, s, client.WithReconnect(3, 10*time.Millisecond))
	require.NoError(t, ch.Open(context.Background()))

	first := rs.accept(t)
	require.Eventually(t, func() bool { return ch.State() == client.Connected }, timeout, tick)
	first.Close()

	second := rs.accept(t)
	require.Eventually(t, func() bool { return ch.State() == client.Connected && ch.Error() == "" }, timeout, tick)
	push(t, second, msg("m1", "bob", "ada", 0))
	require.Eventually(t, func() bool { return len(ch.Messages()) == 1 }, timeout, tick)
	assert.NoError(t, ch.Err())
}

func TestChannel_ClosesOnLogout(t *testing.T) {
	rs := newRealtimeServer(t)
	s := loggedIn(t, rs.fakeServer, ada())
	rs.handle(http.MethodGet, "/api/messages/{peerId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []*chat.Message{})
	})

	ch := openChannel(t, s)
	require.NoError(t, ch.Open(context.Background()))
	rs.accept(t)
	require.Eventually(t, func() bool { return ch.State() == client.Connected }, timeout, tick)

	s.Logout()

	require.Eventually(t, func() bool { return ch.State() == client.Disconnected }, timeout, tick)
	select {
	case <-rs.gone:
	case <-time.After(timeout):
		t.Fatal("realtime connection still open after logout")
	}

	assert.ErrorIs(t, ch.Open(context.Background()), client.ErrNoSession)
	ch.Close()
}

func TestChannel_OpenWithoutSession(t *testing.T) {
	f := newFakeServer(t)
	ch := client.NewChannel(client.NewSessionHolder(newAPI(t, f), nil), "bob")
	assert.ErrorIs(t, ch.Open(context.Background()), client.ErrNoSession)
	ch.Close()
}
