package exchange

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/yebrai/skillswap/internal/domain/user"
)

// Status is the lifecycle state of an exchange.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusActive || s == StatusRejected
}

// CanTransition reports whether s may move to next. Only pending moves,
// and only to active or rejected.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next.Terminal()
}

// Party is one side of an exchange: who, and which skill they bring.
type Party struct {
	UserID string        `bun:"user_id,notnull" json:"userId"`
	User   *user.Summary `bun:"-" json:"user,omitempty"`
	Skill  string        `bun:"skill,notnull" json:"skill"`
}

// Exchange is a proposal to trade one skill for another. The initiator
// teaches Initiator.Skill and learns Recipient.Skill.
type Exchange struct {
	bun.BaseModel `bun:"table:exchanges,alias:e" json:"-"`

	ID        string     `bun:"id,pk" json:"id"`
	Initiator Party      `bun:"embed:initiator_" json:"initiator"`
	Recipient Party      `bun:"embed:recipient_" json:"recipient"`
	Status    Status     `bun:"status,notnull" json:"status"`
	StartDate *time.Time `bun:"start_date" json:"startDate,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

// PartnerOf returns the party opposite to userID.
func (e *Exchange) PartnerOf(userID string) Party {
	if e.Initiator.UserID == userID {
		return e.Recipient
	}
	return e.Initiator
}
