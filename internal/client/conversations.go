package client

import (
	"context"
	"net/http"

	"github.com/yebrai/skillswap/internal/domain/chat"
)

const (
	NoConversationsMessage      = "No conversations yet"
	conversationsFailureMessage = "Failed to load conversations. Please try again later."
)

// ConversationList is one fetch of the caller's conversations, most
// recent activity first.
type ConversationList struct {
	Items []*chat.Conversation
	// Empty is set when the caller has no conversations at all.
	Empty bool
}

// Conversations fetches the derived conversation list.
type Conversations struct {
	session *SessionHolder
}

func NewConversations(session *SessionHolder) *Conversations {
	return &Conversations{session: session}
}

// List fetches the conversation list. Without a session it returns
// ErrNoSession and makes no request.
func (c *Conversations) List(ctx context.Context) (ConversationList, error) {
	if !c.session.Authenticated() {
		return ConversationList{}, ErrNoSession
	}
	var items []*chat.Conversation
	if err := c.session.Do(ctx, http.MethodGet, "/api/messages/conversations", nil, &items, nil); err != nil {
		return ConversationList{}, &Failure{Message: conversationsFailureMessage, Err: err}
	}
	if len(items) == 0 {
		return ConversationList{Items: []*chat.Conversation{}, Empty: true}, nil
	}
	return ConversationList{Items: items}, nil
}
