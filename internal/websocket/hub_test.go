package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yebrai/skillswap/internal/cache"
	"github.com/yebrai/skillswap/internal/domain/chat"
	"github.com/yebrai/skillswap/internal/logger"
)

type testEnv struct {
	hub   *Hub
	store *cache.RedisClient
	url   string
}

// tokens are user ids, except "bad".
func fakeAuth(token string) (string, error) {
	if token == "bad" {
		return "", errors.New("invalid token")
	}
	return token, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	store := cache.NewRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	hub := NewHub(store, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(ServeWS(hub, fakeAuth))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		store.Close()
	})
	return &testEnv{hub: hub, store: store, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func (e *testEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url+"?token="+userID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return e.hub.RoomSize(PersonalRoom(userID)) > 0 },
		2*time.Second, 10*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, ev Event) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ev))
}

func receive(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_RoomBroadcast(t *testing.T) {
	env := newTestEnv(t)
	ada := env.dial(t, "ada")
	bob := env.dial(t, "bob")

	send(t, ada, Event{Type: JoinRoomEvent, Room: "lobby"})
	send(t, bob, Event{Type: JoinRoomEvent, Room: "lobby"})
	require.Eventually(t, func() bool { return env.hub.RoomSize("lobby") == 2 }, 2*time.Second, 10*time.Millisecond)

	send(t, ada, Event{Type: SendMessageEvent, Room: "lobby", Payload: json.RawMessage(`{"text":"hi"}`), From: "spoofed"})

	for _, conn := range []*websocket.Conn{ada, bob} {
		ev := receive(t, conn)
		assert.Equal(t, ReceiveMessageEvent, ev.Type)
		assert.Equal(t, "lobby", ev.Room)
		assert.Equal(t, "ada", ev.From, "sender is server-authoritative")
		assert.JSONEq(t, `{"text":"hi"}`, string(ev.Payload))
	}

	stats, err := env.store.RoomStats(context.Background(), "lobby")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MessageCount)
	assert.Equal(t, int64(2), stats.ActiveUsers)

	recent, err := env.store.RecentEvents(context.Background(), "lobby", 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestHub_RejectsBadEvents(t *testing.T) {
	env := newTestEnv(t)
	ada := env.dial(t, "ada")

	send(t, ada, Event{Type: JoinRoomEvent, Room: PersonalRoom("bob")})
	assert.Equal(t, "cannot join another user's room", receive(t, ada).Message)

	send(t, ada, Event{Type: SendMessageEvent, Room: "lobby", Payload: json.RawMessage(`{}`)})
	assert.Equal(t, "join the room before sending to it", receive(t, ada).Message)

	send(t, ada, Event{Type: "dance"})
	ev := receive(t, ada)
	assert.Equal(t, ErrorEvent, ev.Type)
	assert.Equal(t, "Unknown event type: dance", ev.Message)

	require.NoError(t, ada.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "Invalid message format", receive(t, ada).Message)

	send(t, ada, Event{Type: LeaveRoomEvent, Room: PersonalRoom("ada")})
	assert.Equal(t, "cannot leave your personal room", receive(t, ada).Message)
}

func TestHub_PublishMessageReachesBothParticipants(t *testing.T) {
	env := newTestEnv(t)
	ada := env.dial(t, "ada")
	bob := env.dial(t, "bob")
	cy := env.dial(t, "cy")

	msg := &chat.Message{ID: "m1", SenderID: "ada", RecipientID: "bob", Content: "hello", CreatedAt: time.Now().UTC()}
	env.hub.PublishMessage(context.Background(), msg)

	for user, conn := range map[string]*websocket.Conn{"ada": ada, "bob": bob} {
		ev := receive(t, conn)
		assert.Equal(t, ReceiveMessageEvent, ev.Type)
		assert.Equal(t, PersonalRoom(user), ev.Room)

		var got chat.Message
		require.NoError(t, json.Unmarshal(ev.Payload, &got))
		assert.Equal(t, "m1", got.ID)
		assert.Equal(t, "hello", got.Content)
	}

	// cy is not a participant and sees nothing.
	require.NoError(t, cy.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := cy.ReadMessage()
	assert.Error(t, err)
}

func TestHub_Presence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ada := env.dial(t, "ada")
	online, err := env.store.IsOnline(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, online)
	assert.Equal(t, 1, env.hub.ClientCount())

	require.NoError(t, ada.Close())
	require.Eventually(t, func() bool {
		online, err := env.store.IsOnline(ctx, "ada")
		return err == nil && !online
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, env.hub.ClientCount())
}

func TestServeWS_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	for _, url := range []string{env.url, env.url + "?token=bad"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestServeWS_BearerHeader(t *testing.T) {
	env := newTestEnv(t)
	header := http.Header{"Authorization": []string{"Bearer ada"}}

	conn, _, err := websocket.DefaultDialer.Dial(env.url, header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.RoomSize(PersonalRoom("ada")) == 1 },
		2*time.Second, 10*time.Millisecond)
}
