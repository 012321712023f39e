package user

import (
	"time"

	"github.com/uptrace/bun"
)

// ExperienceLevel grades an offered skill.
type ExperienceLevel string

const (
	Beginner     ExperienceLevel = "Beginner"
	Intermediate ExperienceLevel = "Intermediate"
	Advanced     ExperienceLevel = "Advanced"
	Expert       ExperienceLevel = "Expert"
)

// Valid reports whether l is one of the known levels.
func (l ExperienceLevel) Valid() bool {
	switch l {
	case Beginner, Intermediate, Advanced, Expert:
		return true
	}
	return false
}

// OfferedSkill is a skill a user can teach.
type OfferedSkill struct {
	Category        string          `json:"category"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
}

// RequiredSkill is a skill a user wants to learn.
type RequiredSkill struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// User represents a SkillSwap member. Skill lists are ordered; the first
// offered skill is the one proposed when the user requests an exchange.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-"`

	ID             string          `bun:"id,pk" json:"id"`
	Name           string          `bun:"name,notnull" json:"name"`
	Email          string          `bun:"email,notnull,unique" json:"email"`
	PasswordHash   string          `bun:"password_hash,notnull" json:"-"`
	Avatar         string          `bun:"avatar" json:"avatar,omitempty"`
	Bio            string          `bun:"bio" json:"bio"`
	OfferedSkills  []OfferedSkill  `bun:"offered_skills" json:"offeredSkills"`
	RequiredSkills []RequiredSkill `bun:"required_skills" json:"requiredSkills"`
	Rating         *float64        `bun:"rating" json:"rating,omitempty"`
	CreatedAt      time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt      time.Time       `bun:"updated_at,notnull" json:"updatedAt"`
}

// Normalize replaces nil skill lists with empty ones so they encode as [].
func (u *User) Normalize() {
	if u.OfferedSkills == nil {
		u.OfferedSkills = []OfferedSkill{}
	}
	if u.RequiredSkills == nil {
		u.RequiredSkills = []RequiredSkill{}
	}
}

// Summary is the public identity embedded in messages, conversations and
// exchanges.
type Summary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

func (u *User) Summary() *Summary {
	return &Summary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

// SkillListing is an offered skill together with the user offering it.
type SkillListing struct {
	OfferedSkill
	Owner *Summary `json:"user"`
}
