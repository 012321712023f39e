package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yebrai/skillswap/internal/domain/notification"
	"github.com/yebrai/skillswap/internal/domain/user"
)

// UserDirectory resolves the members taking part in an exchange.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Notifier records a notification for a member.
type Notifier interface {
	Create(ctx context.Context, userID string, typ notification.Type, text string, payload map[string]any) (*notification.Notification, error)
}

// RequestInput is a proposal from the caller to the provider. An empty
// RequesterSkill means the caller's first offered skill.
type RequestInput struct {
	ProviderID     string
	ProviderSkill  string
	RequesterSkill string
}

type Service struct {
	repo     Repository
	users    UserDirectory
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an exchange service. notifier may be nil.
func NewService(repo Repository, users UserDirectory, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   logger.With("component", "exchange_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request creates a pending exchange between requesterID and the provider.
func (s *Service) Request(ctx context.Context, requesterID string, in RequestInput) (*Exchange, error) {
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return nil, ErrProviderRequired
	}
	if providerID == requesterID {
		return nil, ErrSelfExchange
	}

	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("find requester: %w", err)
	}
	provider, err := s.users.GetByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("find provider: %w", err)
	}

	if len(requester.OfferedSkills) == 0 {
		return nil, ErrNoOfferedSkills
	}
	requesterSkill := strings.TrimSpace(in.RequesterSkill)
	if requesterSkill == "" {
		requesterSkill = requester.OfferedSkills[0].Title
	}
	if !requester.OffersSkill(requesterSkill) {
		return nil, ErrSkillNotOffered
	}
	providerSkill := strings.TrimSpace(in.ProviderSkill)
	if !provider.OffersSkill(providerSkill) {
		return nil, ErrProviderSkillAbsent
	}

	now := s.now()
	e := &Exchange{
		ID:        uuid.NewString(),
		Initiator: Party{UserID: requester.ID, User: requester.Summary(), Skill: requesterSkill},
		Recipient: Party{UserID: provider.ID, User: provider.Summary(), Skill: providerSkill},
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create exchange: %w", err)
	}
	s.logger.Info("exchange requested", "exchange_id", e.ID, "initiator", requester.ID, "recipient", provider.ID)

	s.notify(ctx, provider.ID, notification.TypeExchangeRequest,
		fmt.Sprintf("%s wants to exchange %s for your %s", requester.Name, requesterSkill, providerSkill), e)
	return e, nil
}

// Respond moves a pending exchange to active or rejected. Only the
// recipient may respond and only once.
func (s *Service) Respond(ctx context.Context, callerID, exchangeID string, next Status) (*Exchange, error) {
	if !next.Terminal() {
		return nil, ErrInvalidStatus
	}
	e, err := s.repo.FindByID(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if e.Recipient.UserID != callerID {
		return nil, ErrNotRecipient
	}
	if !e.Status.CanTransition(next) {
		return nil, ErrNotPending
	}

	now := s.now()
	ok, err := s.repo.UpdateStatusIfPending(ctx, e.ID, next, now)
	if err != nil {
		return nil, fmt.Errorf("update exchange: %w", err)
	}
	if !ok {
		// Lost a race with a concurrent response.
		return nil, ErrNotPending
	}
	e.Status = next
	e.UpdatedAt = now
	if next == StatusActive {
		e.StartDate = &now
	}
	if err := s.attachUsers(ctx, e); err != nil {
		return nil, err
	}

	verb := "accepted"
	if next == StatusRejected {
		verb = "declined"
	}
	s.notify(ctx, e.Initiator.UserID, notification.TypeExchangeUpdate,
		fmt.Sprintf("%s %s your exchange request for %s", e.Recipient.User.Name, verb, e.Recipient.Skill), e)
	return e, nil
}

// ListForUser returns every exchange userID takes part in, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Exchange, error) {
	list, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	for _, e := range list {
		if err := s.attachUsers(ctx, e); err != nil {
			return nil, err
		}
	}
	if list == nil {
		list = []*Exchange{}
	}
	return list, nil
}

func (s *Service) attachUsers(ctx context.Context, e *Exchange) error {
	for _, p := range []*Party{&e.Initiator, &e.Recipient} {
		if p.User != nil {
			continue
		}
		u, err := s.users.GetByID(ctx, p.UserID)
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			p.User = &user.Summary{ID: p.UserID}
		case err != nil:
			return fmt.Errorf("find party: %w", err)
		default:
			p.User = u.Summary()
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, userID string, typ notification.Type, text string, e *Exchange) {
	if s.notifier == nil {
		return
	}
	payload := map[string]any{"exchangeId": e.ID, "status": string(e.Status)}
	if _, err := s.notifier.Create(ctx, userID, typ, text, payload); err != nil {
		s.logger.Warn("exchange notification failed", "exchange_id", e.ID, "error", err)
	}
}
