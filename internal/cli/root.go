package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/config"
	"github.com/yebrai/skillswap/internal/logger"
)

const defaultServer = "http://localhost:5000"

var errNotLoggedIn = errors.New("not logged in, run `skillswap login` first")

// env carries the global flags and the terminal streams shared by every
// command.
type env struct {
	in  io.Reader
	out *syncWriter
	err io.Writer

	server    string
	tokenFile string
	debug     bool

	logger *slog.Logger
}

// syncWriter serializes writes from the channel hooks and the prompt.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

// NewRootCommand builds the skillswap command tree.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	e := &env{in: in, out: &syncWriter{w: out}, err: errOut}

	root := &cobra.Command{
		Use:   "skillswap",
		Short: "Trade skills with other SkillSwap members",
		Long: `skillswap is a terminal client for a SkillSwap server.

Examples:
  skillswap login --email ada@example.com --password secret123
  skillswap users search guitar --category Music
  skillswap exchange request <userId> Guitar
  skillswap chat <userId>`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if e.debug {
				level = "debug"
			}
			e.logger = logger.NewWithWriter(config.LoggerMode{Level: level}, errOut).With("component", "client")
			if e.tokenFile == "" {
				path, err := client.DefaultTokenPath()
				if err != nil {
					return fmt.Errorf("locate token file: %w", err)
				}
				e.tokenFile = path
			}
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	serverDefault := os.Getenv("SKILLSWAP_SERVER")
	if serverDefault == "" {
		serverDefault = defaultServer
	}
	root.PersistentFlags().StringVar(&e.server, "server", serverDefault, "SkillSwap server URL (env SKILLSWAP_SERVER)")
	root.PersistentFlags().StringVar(&e.tokenFile, "token-file", "", "where the session token is kept (default $XDG_CONFIG_HOME/skillswap/token)")
	root.PersistentFlags().BoolVar(&e.debug, "debug", false, "log requests to stderr")

	root.AddCommand(
		loginCmd(e),
		registerCmd(e),
		logoutCmd(e),
		whoamiCmd(e),
		profileCmd(e),
		usersCmd(e),
		conversationsCmd(e),
		chatCmd(e),
		exchangeCmd(e),
		notificationsCmd(e),
	)
	return root
}

// holder returns an unauthenticated session backed by the token file.
func (e *env) holder() (*client.SessionHolder, error) {
	api, err := client.NewClient(client.ClientConfig{BaseURL: e.server, Logger: e.logger})
	if err != nil {
		return nil, err
	}
	return client.NewSessionHolder(api, client.FileTokenStore{Path: e.tokenFile}), nil
}

// session resumes the persisted session.
func (e *env) session(ctx context.Context) (*client.SessionHolder, error) {
	s, err := e.holder()
	if err != nil {
		return nil, err
	}
	if _, err := s.Restore(ctx); err != nil {
		if errors.Is(err, client.ErrNoSession) {
			return nil, errNotLoggedIn
		}
		return nil, err
	}
	return s, nil
}
