package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yebrai/skillswap/internal/domain/chat"
)

const storeTimeout = 2 * time.Second

// Store persists presence and room activity. cache.RedisClient implements it.
type Store interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	JoinRoom(ctx context.Context, room, userID string) error
	LeaveRoom(ctx context.Context, room, userID string) error
	AddRecentEvent(ctx context.Context, room, eventJSON string) error
	IncrementMessageCounter(ctx context.Context, room string) (int64, error)
}

// Hub maintains the set of active clients and the rooms they joined, and
// fans events out to room members. All map mutations happen on the Run
// goroutine; mu only makes the read-side helpers safe.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	route      chan inbound
	publish    chan *Event
	done       chan struct{}
	store      Store
	logger     *slog.Logger
	mu         sync.RWMutex
}

// NewHub creates a hub. Run must be started before clients register.
func NewHub(store Store, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		route:      make(chan inbound, 256),
		publish:    make(chan *Event, 256),
		done:       make(chan struct{}),
		store:      store,
		logger:     logger.With("component", "hub"),
	}
}

// Run processes registrations, client events and published events until
// ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("hub started")
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case in := <-h.route:
			h.handleInbound(in)
		case ev := <-h.publish:
			h.deliver(ev)
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				h.handleUnregister(c)
			}
			h.logger.Info("hub stopped")
			return
		}
	}
}

// Register hands a new connection to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

// Unregister removes a connection. Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues a server-originated event for delivery to ev.Room.
func (h *Hub) Publish(ev *Event) {
	select {
	case h.publish <- ev:
	case <-h.done:
	}
}

// PublishMessage delivers a stored message to the personal rooms of both
// participants as a receive_message event.
func (h *Hub) PublishMessage(ctx context.Context, m *chat.Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		h.logger.Error("marshal message for publish", "message_id", m.ID, "error", err)
		return
	}
	now := time.Now().UTC()
	for _, userID := range []string{m.SenderID, m.RecipientID} {
		h.Publish(&Event{
			Type:      ReceiveMessageEvent,
			Room:      PersonalRoom(userID),
			Payload:   payload,
			From:      m.SenderID,
			Timestamp: now,
		})
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	ctx, cancel := h.storeCtx()
	defer cancel()
	if err := h.store.MarkOnline(ctx, c.userID); err != nil {
		h.logger.Warn("mark online failed", "user_id", c.userID, "error", err)
	}
	h.join(c, PersonalRoom(c.userID))
	h.logger.Debug("client registered", "user_id", c.userID)
}

func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	registered := h.clients[c]
	if registered {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if !registered {
		return
	}

	for room := range c.rooms {
		h.leave(c, room)
	}
	close(c.send)

	ctx, cancel := h.storeCtx()
	defer cancel()
	if err := h.store.MarkOffline(ctx, c.userID); err != nil {
		h.logger.Warn("mark offline failed", "user_id", c.userID, "error", err)
	}
	h.logger.Debug("client unregistered", "user_id", c.userID)
}

func (h *Hub) handleInbound(in inbound) {
	c := in.client
	if !h.isRegistered(c) {
		return
	}
	ev := in.event
	if ev == nil {
		c.trySend(errorEvent("Invalid message format"))
		return
	}
	room := strings.TrimSpace(ev.Room)

	switch ev.Type {
	case JoinRoomEvent:
		if room == "" {
			c.trySend(errorEvent("room is required"))
			return
		}
		if strings.HasPrefix(room, PersonalRoomPrefix) && room != PersonalRoom(c.userID) {
			c.trySend(errorEvent("cannot join another user's room"))
			return
		}
		h.join(c, room)

	case LeaveRoomEvent:
		if room == PersonalRoom(c.userID) {
			c.trySend(errorEvent("cannot leave your personal room"))
			return
		}
		h.leave(c, room)

	case SendMessageEvent:
		if room == "" || len(ev.Payload) == 0 {
			c.trySend(errorEvent("room and payload are required"))
			return
		}
		if !c.rooms[room] {
			c.trySend(errorEvent("join the room before sending to it"))
			return
		}
		h.deliver(&Event{
			Type:      ReceiveMessageEvent,
			Room:      room,
			Payload:   ev.Payload,
			From:      c.userID,
			Timestamp: ev.Timestamp,
		})

	default:
		c.trySend(errorEvent(fmt.Sprintf("Unknown event type: %s", ev.Type)))
	}
}

func (h *Hub) isRegistered(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[c]
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
	h.mu.Unlock()
	c.rooms[room] = true

	ctx, cancel := h.storeCtx()
	defer cancel()
	if err := h.store.JoinRoom(ctx, room, c.userID); err != nil {
		h.logger.Warn("record room join failed", "room", room, "error", err)
	}
}

func (h *Hub) leave(c *Client, room string) {
	if !c.rooms[room] {
		return
	}
	delete(c.rooms, room)

	h.mu.Lock()
	members := h.rooms[room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	stillPresent := false
	for other := range members {
		if other.userID == c.userID {
			stillPresent = true
			break
		}
	}
	h.mu.Unlock()

	if stillPresent {
		return
	}
	ctx, cancel := h.storeCtx()
	defer cancel()
	if err := h.store.LeaveRoom(ctx, room, c.userID); err != nil {
		h.logger.Warn("record room leave failed", "room", room, "error", err)
	}
}

// deliver records ev in the room history and queues it for every member.
// Members whose buffer is full are dropped.
func (h *Hub) deliver(ev *Event) {
	if data, err := json.Marshal(ev); err == nil {
		ctx, cancel := h.storeCtx()
		if err := h.store.AddRecentEvent(ctx, ev.Room, string(data)); err != nil {
			h.logger.Warn("record recent event failed", "room", ev.Room, "error", err)
		}
		if _, err := h.store.IncrementMessageCounter(ctx, ev.Room); err != nil {
			h.logger.Warn("increment room counter failed", "room", ev.Room, "error", err)
		}
		cancel()
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[ev.Room]))
	for c := range h.rooms[ev.Room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, c := range members {
		if !c.trySend(ev) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.logger.Warn("dropping slow client", "user_id", c.userID, "room", ev.Room)
		h.handleUnregister(c)
	}
}
