package websocket

import (
	"encoding/json"
	"time"
)

// EventType names a realtime event.
type EventType string

const (
	// JoinRoomEvent subscribes the connection to a room.
	// Direction: Client to Server (C2S).
	JoinRoomEvent EventType = "join_room"

	// LeaveRoomEvent drops the subscription to a room.
	// Direction: Client to Server (C2S).
	LeaveRoomEvent EventType = "leave_room"

	// SendMessageEvent relays a payload to every member of a room.
	// Direction: Client to Server (C2S).
	SendMessageEvent EventType = "send_message"

	// ReceiveMessageEvent carries a relayed or persisted message.
	// Direction: Server to Client (S2C).
	ReceiveMessageEvent EventType = "receive_message"

	// ErrorEvent reports a rejected client event.
	// Direction: Server to Client (S2C).
	ErrorEvent EventType = "error"
)

// PersonalRoomPrefix prefixes the room every connection joins for its own
// user. Only that user may join it.
const PersonalRoomPrefix = "user:"

// PersonalRoom returns the personal room of userID.
func PersonalRoom(userID string) string {
	return PersonalRoomPrefix + userID
}

// Event is the envelope for everything sent over a connection.
type Event struct {
	Type EventType `json:"type"`
	// Room is the target of join/leave/send and the origin of receive.
	Room string `json:"room,omitempty"`
	// Payload is opaque to the hub. For messages published by the REST send
	// path it is the stored message.
	Payload json.RawMessage `json:"payload,omitempty"`
	// From is the authenticated sender, set by the server.
	From string `json:"from,omitempty"`
	// Message is the human-readable text of an ErrorEvent.
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func errorEvent(text string) *Event {
	return &Event{Type: ErrorEvent, Message: text, Timestamp: time.Now().UTC()}
}
