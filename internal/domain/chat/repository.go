package chat

import "context"

// Repository defines the interface for interacting with message storage.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	// ListBetween returns the messages exchanged by a and b, oldest first.
	ListBetween(ctx context.Context, a, b string) ([]*Message, error)
	// ListForUser returns every message userID sent or received, newest first.
	ListForUser(ctx context.Context, userID string) ([]*Message, error)
	// MarkRead flags every unread message from senderID to recipientID as
	// read and returns how many rows changed.
	MarkRead(ctx context.Context, recipientID, senderID string) (int, error)
}
