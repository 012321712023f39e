package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// pingPeriod is the period for sending pings to peer. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize is the maximum message size allowed from a peer.
	maxMessageSize = 4096
	// sendBufferSize bounds the outbound queue of one connection.
	sendBufferSize = 256
)

// Client is one authenticated WebSocket connection. A user may hold
// several at once. rooms is owned by the hub goroutine.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan *Event
	userID string
	rooms  map[string]bool
	logger *slog.Logger
}

// NewClient creates a client for userID. The hub joins it to the user's
// personal room on registration.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *Event, sendBufferSize),
		userID: userID,
		rooms:  make(map[string]bool),
		logger: hub.logger.With("user_id", userID),
	}
}

// inbound pairs an event with the connection that sent it. event is nil
// when the frame could not be decoded.
type inbound struct {
	client *Client
	event  *Event
}

// ReadPump pumps events from the connection to the hub. It runs in its own
// goroutine and is the only reader of the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.logger.Debug("read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			return
		}

		msg := inbound{client: c}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.logger.Debug("invalid event json", "error", err)
		} else {
			// Server-authoritative fields.
			ev.From = c.userID
			ev.Timestamp = time.Now().UTC()
			msg.event = &ev
		}

		select {
		case c.hub.route <- msg:
		case <-c.hub.done:
			return
		}
	}
}

// WritePump pumps events from the send channel to the connection and
// keeps it alive with pings. It is the only writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Debug("write pump stopped")
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues ev without blocking and reports whether it was queued.
// Must only be called from the hub goroutine, which also owns closing send.
func (c *Client) trySend(ev *Event) bool {
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}
