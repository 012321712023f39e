package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// RegisterInput is everything a new member supplies at sign-up.
type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	Avatar         string
	Bio            string
	OfferedSkills  []OfferedSkill
	RequiredSkills []RequiredSkill
}

// ProfilePatch carries only the fields being changed. Nil means untouched.
type ProfilePatch struct {
	Name           *string
	Bio            *string
	Avatar         *string
	OfferedSkills  []OfferedSkill
	RequiredSkills []RequiredSkill
	// ReplaceOffered and ReplaceRequired distinguish "set to empty" from
	// "not supplied" for the skill lists.
	ReplaceOffered  bool
	ReplaceRequired bool
}

// Service implements account, profile, search and skill operations.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	hashCost int
	now      func() time.Time
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		logger:   logger.With("component", "user_service"),
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account. Emails are compared case-insensitively.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	offered, err := validateOffered(in.OfferedSkills)
	if err != nil {
		return nil, err
	}
	required, err := validateRequired(in.RequiredSkills)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := &User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		PasswordHash:   string(hash),
		Avatar:         strings.TrimSpace(in.Avatar),
		Bio:            strings.TrimSpace(in.Bio),
		OfferedSkills:  offered,
		RequiredSkills: required,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords yield the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile applies patch to the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		u.Name = name
	}
	if patch.Bio != nil {
		u.Bio = strings.TrimSpace(*patch.Bio)
	}
	if patch.Avatar != nil {
		u.Avatar = strings.TrimSpace(*patch.Avatar)
	}
	if patch.ReplaceOffered {
		offered, err := validateOffered(patch.OfferedSkills)
		if err != nil {
			return nil, err
		}
		u.OfferedSkills = offered
	}
	if patch.ReplaceRequired {
		required, err := validateRequired(patch.RequiredSkills)
		if err != nil {
			return nil, err
		}
		u.RequiredSkills = required
	}

	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// ListOthers returns every member except callerID, ordered by name.
func (s *Service) ListOthers(ctx context.Context, callerID string) ([]*User, error) {
	users, err := s.repo.List(ctx, ListFilter{ExcludeID: callerID})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
	return users, nil
}

// Search finds members other than callerID whose name or offered skills
// mention query, optionally restricted to members offering a skill in
// category. Both comparisons ignore case. An empty query matches everyone.
func (s *Service) Search(ctx context.Context, callerID, query, category string) ([]*User, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "all" {
		category = ""
	}

	candidates, err := s.repo.List(ctx, ListFilter{ExcludeID: callerID})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	matches := make([]*User, 0, len(candidates))
	for _, u := range candidates {
		if category != "" && !offersCategory(u, category) {
			continue
		}
		if query != "" && !mentions(u, query) {
			continue
		}
		matches = append(matches, u)
	}
	return matches, nil
}

func offersCategory(u *User, category string) bool {
	for _, sk := range u.OfferedSkills {
		if strings.ToLower(sk.Category) == category {
			return true
		}
	}
	return false
}

func mentions(u *User, query string) bool {
	if strings.Contains(strings.ToLower(u.Name), query) {
		return true
	}
	for _, sk := range u.OfferedSkills {
		if strings.Contains(strings.ToLower(sk.Title), query) ||
			strings.Contains(strings.ToLower(sk.Description), query) ||
			strings.Contains(strings.ToLower(sk.Category), query) {
			return true
		}
	}
	return false
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func validateOffered(skills []OfferedSkill) ([]OfferedSkill, error) {
	out := make([]OfferedSkill, 0, len(skills))
	for _, sk := range skills {
		cleaned, err := cleanOffered(sk)
		if err != nil {
			return nil, err
		}
		out = append(out, cleaned)
	}
	return out, nil
}

func cleanOffered(sk OfferedSkill) (OfferedSkill, error) {
	sk.Category = strings.TrimSpace(sk.Category)
	sk.Title = strings.TrimSpace(sk.Title)
	sk.Description = strings.TrimSpace(sk.Description)
	if sk.Category == "" || sk.Title == "" {
		return OfferedSkill{}, ErrSkillFieldsRequired
	}
	if sk.ExperienceLevel == "" {
		sk.ExperienceLevel = Intermediate
	}
	if !sk.ExperienceLevel.Valid() {
		return OfferedSkill{}, ErrInvalidLevel
	}
	return sk, nil
}

func validateRequired(skills []RequiredSkill) ([]RequiredSkill, error) {
	out := make([]RequiredSkill, 0, len(skills))
	for _, sk := range skills {
		sk.Category = strings.TrimSpace(sk.Category)
		sk.Title = strings.TrimSpace(sk.Title)
		sk.Description = strings.TrimSpace(sk.Description)
		if sk.Category == "" || sk.Title == "" {
			return nil, ErrSkillFieldsRequired
		}
		out = append(out, sk)
	}
	return out, nil
}
