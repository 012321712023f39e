package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yebrai/skillswap/internal/apperror"
)

// FeedLimit is how many notifications a feed carries.
const FeedLimit = 20

var (
	ErrNotFound    = apperror.NotFound("notification not found")
	ErrInvalidType = apperror.InvalidArg("unknown notification type")
)

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With("component", "notification_service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Create(ctx context.Context, userID string, typ Type, text string, payload map[string]any) (*Notification, error) {
	switch typ {
	case TypeExchangeRequest, TypeExchangeUpdate, TypeMessage:
	default:
		return nil, ErrInvalidType
	}
	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Message:   strings.TrimSpace(text),
		Payload:   payload,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.logger.Debug("notification created", "user_id", userID, "type", typ)
	return n, nil
}

// Feed returns the latest notifications together with the unread count.
func (s *Service) Feed(ctx context.Context, userID string) (*Feed, error) {
	items, err := s.repo.ListRecent(ctx, userID, FeedLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	if items == nil {
		items = []*Notification{}
	}
	return &Feed{Items: items, Unread: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}
