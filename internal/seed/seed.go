// Package seed loads demo accounts from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yebrai/skillswap/internal/domain/user"
)

// Registrar creates accounts. user.Service implements it.
type Registrar interface {
	Register(ctx context.Context, in user.RegisterInput) (*user.User, error)
}

type File struct {
	Users []User `yaml:"users"`
}

type User struct {
	Name           string          `yaml:"name"`
	Email          string          `yaml:"email"`
	Password       string          `yaml:"password"`
	Bio            string          `yaml:"bio"`
	Avatar         string          `yaml:"avatar"`
	OfferedSkills  []OfferedSkill  `yaml:"offeredSkills"`
	RequiredSkills []RequiredSkill `yaml:"requiredSkills"`
}

type OfferedSkill struct {
	Category        string `yaml:"category"`
	Title           string `yaml:"title"`
	Description     string `yaml:"description"`
	ExperienceLevel string `yaml:"experienceLevel"`
}

type RequiredSkill struct {
	Category    string `yaml:"category"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Result counts what a run did.
type Result struct {
	Created int
	Skipped int
}

// Parse decodes a seed document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &f, nil
}

// LoadFile parses the seed file at path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Apply registers every user in f. Existing emails are skipped; any other
// error stops the run.
func Apply(ctx context.Context, users Registrar, f *File, logger *slog.Logger) (Result, error) {
	logger = logger.With("component", "seed")
	var res Result
	for _, u := range f.Users {
		_, err := users.Register(ctx, u.input())
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, user.ErrEmailTaken):
			res.Skipped++
			logger.Debug("seed user exists", "email", u.Email)
		default:
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}
	logger.Info("seed applied", "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

func (u User) input() user.RegisterInput {
	in := user.RegisterInput{
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
		Avatar:   u.Avatar,
		Bio:      u.Bio,
	}
	for _, sk := range u.OfferedSkills {
		in.OfferedSkills = append(in.OfferedSkills, user.OfferedSkill{
			Category:        sk.Category,
			Title:           sk.Title,
			Description:     sk.Description,
			ExperienceLevel: user.ExperienceLevel(sk.ExperienceLevel),
		})
	}
	for _, sk := range u.RequiredSkills {
		in.RequiredSkills = append(in.RequiredSkills, user.RequiredSkill{
			Category:    sk.Category,
			Title:       sk.Title,
			Description: sk.Description,
		})
	}
	return in
}
