package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/domain/user"
)

func loginCmd(e *env) *cobra.Command {
	var creds client.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.holder()
			if err != nil {
				return err
			}
			sess, err := s.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			e.printf("Logged in as %s <%s>\n", sess.User.Name, sess.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd(e *env) *cobra.Command {
	var (
		p       client.Profile
		offered []string
		wanted  []string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Long: `Create an account and log in.

Offered skills are given as category/title/level, wanted skills as
category/title:
  skillswap register --name Ada --email ada@example.com --password secret123 \
    --offer Food/Cooking/Advanced --want Music/Guitar`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if p.OfferedSkills, err = parseOffered(offered); err != nil {
				return err
			}
			if p.RequiredSkills, err = parseRequired(wanted); err != nil {
				return err
			}
			s, err := e.holder()
			if err != nil {
				return err
			}
			sess, err := s.Register(cmd.Context(), p)
			if err != nil {
				return err
			}
			e.printf("Welcome, %s. You are logged in.\n", sess.User.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "display name")
	cmd.Flags().StringVar(&p.Email, "email", "", "account email")
	cmd.Flags().StringVar(&p.Password, "password", "", "password, at least 6 characters")
	cmd.Flags().StringVar(&p.Bio, "bio", "", "short bio")
	cmd.Flags().StringArrayVar(&offered, "offer", nil, "skill you teach as category/title/level (repeatable)")
	cmd.Flags().StringArrayVar(&wanted, "want", nil, "skill you want to learn as category/title (repeatable)")
	for _, name := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.holder()
			if err != nil {
				return err
			}
			// A token the server no longer accepts is removed by Restore itself.
			if _, err := s.Restore(cmd.Context()); err == nil {
				s.Logout()
			}
			if err := (client.FileTokenStore{Path: e.tokenFile}).Delete(); err != nil {
				return err
			}
			e.printf("Logged out\n")
			return nil
		},
	}
}

func whoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			printProfile(e, s.User())
			return nil
		},
	}
}

func profileCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}

	var (
		name, bio, avatar string
		offered, wanted   []string
	)
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the given flags are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch client.ProfilePatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("bio") {
				patch.Bio = &bio
			}
			if flags.Changed("avatar") {
				patch.Avatar = &avatar
			}
			if flags.Changed("offer") {
				skills, err := parseOffered(offered)
				if err != nil {
					return err
				}
				patch.OfferedSkills = &skills
			}
			if flags.Changed("want") {
				skills, err := parseRequired(wanted)
				if err != nil {
					return err
				}
				patch.RequiredSkills = &skills
			}

			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			u, err := s.UpdateProfile(cmd.Context(), patch)
			if err != nil {
				return err
			}
			printProfile(e, u)
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "display name")
	update.Flags().StringVar(&bio, "bio", "", "short bio")
	update.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	update.Flags().StringArrayVar(&offered, "offer", nil, "replace offered skills, category/title/level (repeatable)")
	update.Flags().StringArrayVar(&wanted, "want", nil, "replace wanted skills, category/title (repeatable)")

	cmd.AddCommand(update)
	return cmd
}

func printProfile(e *env, u *user.User) {
	e.printf("%s <%s>\n", u.Name, u.Email)
	if u.Bio != "" {
		e.printf("%s\n", u.Bio)
	}
	for _, sk := range u.OfferedSkills {
		e.printf("  offers %s (%s, %s)\n", sk.Title, sk.Category, sk.ExperienceLevel)
	}
	for _, sk := range u.RequiredSkills {
		e.printf("  wants  %s (%s)\n", sk.Title, sk.Category)
	}
}

func parseOffered(values []string) ([]user.OfferedSkill, error) {
	out := make([]user.OfferedSkill, 0, len(values))
	for _, raw := range values {
		parts := strings.Split(raw, "/")
		if len(parts) != 3 {
			return nil, fmt.Errorf("offered skill %q: want category/title/level", raw)
		}
		out = append(out, user.OfferedSkill{
			Category:        strings.TrimSpace(parts[0]),
			Title:           strings.TrimSpace(parts[1]),
			ExperienceLevel: user.ExperienceLevel(strings.TrimSpace(parts[2])),
		})
	}
	return out, nil
}

func parseRequired(values []string) ([]user.RequiredSkill, error) {
	out := make([]user.RequiredSkill, 0, len(values))
	for _, raw := range values {
		category, title, ok := strings.Cut(raw, "/")
		if !ok {
			return nil, fmt.Errorf("wanted skill %q: want category/title", raw)
		}
		out = append(out, user.RequiredSkill{Category: strings.TrimSpace(category), Title: strings.TrimSpace(title)})
	}
	return out, nil
}
