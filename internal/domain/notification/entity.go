package notification

import (
	"time"

	"github.com/uptrace/bun"
)

// Type classifies a notification.
type Type string

const (
	TypeExchangeRequest Type = "exchange_request"
	TypeExchangeUpdate  Type = "exchange_update"
	TypeMessage         Type = "message"
)

// Notification is a short event addressed to one member.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:n" json:"-"`

	ID        string         `bun:"id,pk" json:"id"`
	UserID    string         `bun:"user_id,notnull" json:"userId"`
	Type      Type           `bun:"type,notnull" json:"type"`
	Message   string         `bun:"message,notnull" json:"message"`
	Payload   map[string]any `bun:"payload" json:"payload,omitempty"`
	Read      bool           `bun:"is_read,notnull,default:false" json:"read"`
	CreatedAt time.Time      `bun:"created_at,notnull" json:"createdAt"`
}

// Feed is the latest notifications for a member and the number still unread.
type Feed struct {
	Items  []*Notification `json:"notifications"`
	Unread int             `json:"unreadCount"`
}
