package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yebrai/skillswap/internal/domain/notification"
	"github.com/yebrai/skillswap/internal/domain/user"
)

const maxContentLength = 2000

// UserDirectory resolves members for the summaries embedded in messages.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Publisher fans a stored message out to connected clients.
type Publisher interface {
	PublishMessage(ctx context.Context, m *Message)
}

// Notifier records a notification for a member.
type Notifier interface {
	Create(ctx context.Context, userID string, typ notification.Type, text string, payload map[string]any) (*notification.Notification, error)
}

// Service provides business logic operations related to direct messages.
type Service struct {
	repo      Repository
	users     UserDirectory
	publisher Publisher
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a chat service. publisher and notifier may be nil.
func NewService(repo Repository, users UserDirectory, publisher Publisher, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		users:     users,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With("component", "chat_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send stores a message from senderID to recipientID, publishes it to both
// participants and notifies the recipient.
func (s *Service) Send(ctx context.Context, senderID, recipientID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, ErrContentTooLong
	}
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, ErrRecipientRequired
	}
	if recipientID == senderID {
		return nil, ErrSelfMessage
	}

	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("find sender: %w", err)
	}

	msg := &Message{
		ID:          uuid.NewString(),
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Content:     content,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	msg.Sender = sender.Summary()
	msg.Recipient = recipient.Summary()

	if s.publisher != nil {
		s.publisher.PublishMessage(ctx, msg)
	}
	if s.notifier != nil {
		text := fmt.Sprintf("New message from %s", sender.Name)
		payload := map[string]any{"messageId": msg.ID, "senderId": sender.ID}
		if _, err := s.notifier.Create(ctx, recipient.ID, notification.TypeMessage, text, payload); err != nil {
			s.logger.Warn("message notification failed", "message_id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// History returns the conversation between callerID and peerID, oldest
// first, and marks the peer's messages to the caller as read.
func (s *Service) History(ctx context.Context, callerID, peerID string) ([]*Message, error) {
	peer, err := s.users.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("find caller: %w", err)
	}

	msgs, err := s.repo.ListBetween(ctx, callerID, peerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	if _, err := s.repo.MarkRead(ctx, callerID, peerID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	callerSummary, peerSummary := caller.Summary(), peer.Summary()
	for _, m := range msgs {
		if m.SenderID == callerID {
			m.Sender, m.Recipient = callerSummary, peerSummary
		} else {
			m.Sender, m.Recipient = peerSummary, callerSummary
			m.Read = true
		}
	}
	return msgs, nil
}

// Conversations groups callerID's messages by peer, most recent activity
// first. Peers that no longer exist are skipped.
func (s *Service) Conversations(ctx context.Context, callerID string) ([]*Conversation, error) {
	msgs, err := s.repo.ListForUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	byPeer := make(map[string]*Conversation)
	order := make([]string, 0)
	for _, m := range msgs {
		peerID := m.PeerOf(callerID)
		conv, ok := byPeer[peerID]
		if !ok {
			// msgs is newest first so the first hit is the latest message.
			conv = &Conversation{
				ID:          peerID,
				LastMessage: LastMessage{Content: m.Content, CreatedAt: m.CreatedAt},
			}
			byPeer[peerID] = conv
			order = append(order, peerID)
		}
		if m.RecipientID == callerID && !m.Read {
			conv.UnreadCount++
		}
	}

	convs := make([]*Conversation, 0, len(order))
	for _, peerID := range order {
		peer, err := s.users.GetByID(ctx, peerID)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				s.logger.Debug("skipping conversation with missing peer", "peer_id", peerID)
				continue
			}
			return nil, fmt.Errorf("find peer: %w", err)
		}
		conv := byPeer[peerID]
		conv.User = peer.Summary()
		convs = append(convs, conv)
	}
	return convs, nil
}
