package chat

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/yebrai/skillswap/internal/domain/user"
)

// Message is a direct message between two members. Messages are immutable
// once stored except for the read flag.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m" json:"-"`

	ID          string        `bun:"id,pk" json:"id"`
	SenderID    string        `bun:"sender_id,notnull" json:"senderId"`
	RecipientID string        `bun:"recipient_id,notnull" json:"recipientId"`
	Sender      *user.Summary `bun:"-" json:"sender,omitempty"`
	Recipient   *user.Summary `bun:"-" json:"recipient,omitempty"`
	Content     string        `bun:"content,notnull" json:"content"`
	Read        bool          `bun:"is_read,notnull,default:false" json:"read"`
	CreatedAt   time.Time     `bun:"created_at,notnull" json:"createdAt"`
}

// Involves reports whether id is the sender or the recipient of m.
func (m *Message) Involves(id string) bool {
	return m.SenderID == id || m.RecipientID == id
}

// PeerOf returns the other participant from the point of view of id.
func (m *Message) PeerOf(id string) string {
	if m.SenderID == id {
		return m.RecipientID
	}
	return m.SenderID
}

// LastMessage is the preview shown for a conversation.
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is derived on every fetch by grouping a member's messages
// by peer. It is never stored.
type Conversation struct {
	ID          string        `json:"id"`
	User        *user.Summary `json:"user"`
	LastMessage LastMessage   `json:"lastMessage"`
	UnreadCount int           `json:"unreadCount"`
}
