package user

import (
	"context"
	"fmt"
	"strings"
)

// ListSkills returns every offered skill across all members, optionally
// restricted to one category (case-insensitive).
func (s *Service) ListSkills(ctx context.Context, category string) ([]SkillListing, error) {
	users, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	category = strings.ToLower(strings.TrimSpace(category))

	listings := make([]SkillListing, 0)
	for _, u := range users {
		for _, sk := range u.OfferedSkills {
			if category != "" && strings.ToLower(sk.Category) != category {
				continue
			}
			listings = append(listings, SkillListing{OfferedSkill: sk, Owner: u.Summary()})
		}
	}
	return listings, nil
}

// AddOfferedSkill appends sk to the user's offered skills. Titles are
// unique per user.
func (s *Service) AddOfferedSkill(ctx context.Context, userID string, sk OfferedSkill) (*SkillListing, error) {
	cleaned, err := cleanOffered(sk)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if indexOfSkill(u.OfferedSkills, cleaned.Title) >= 0 {
		return nil, ErrDuplicateSkill
	}

	u.OfferedSkills = append(u.OfferedSkills, cleaned)
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("add skill: %w", err)
	}
	return &SkillListing{OfferedSkill: cleaned, Owner: u.Summary()}, nil
}

// ReplaceOfferedSkill overwrites the user's offered skill titled title,
// keeping its position in the list.
func (s *Service) ReplaceOfferedSkill(ctx context.Context, userID, title string, sk OfferedSkill) (*SkillListing, error) {
	cleaned, err := cleanOffered(sk)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOfSkill(u.OfferedSkills, title)
	if idx < 0 {
		return nil, ErrSkillNotFound
	}
	if other := indexOfSkill(u.OfferedSkills, cleaned.Title); other >= 0 && other != idx {
		return nil, ErrDuplicateSkill
	}

	u.OfferedSkills[idx] = cleaned
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("replace skill: %w", err)
	}
	return &SkillListing{OfferedSkill: cleaned, Owner: u.Summary()}, nil
}

// OffersSkill reports whether u offers a skill titled title.
func (u *User) OffersSkill(title string) bool {
	return indexOfSkill(u.OfferedSkills, title) >= 0
}

func indexOfSkill(skills []OfferedSkill, title string) int {
	title = strings.ToLower(strings.TrimSpace(title))
	for i, sk := range skills {
		if strings.ToLower(sk.Title) == title {
			return i
		}
	}
	return -1
}
