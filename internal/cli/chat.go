package cli

import (
	"bufio"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/domain/chat"
)

func chatCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <userId>",
		Short: "Open a live conversation; each input line is sent, EOF quits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.session(cmd.Context())
			if err != nil {
				return err
			}
			return runChat(cmd, e, s, args[0])
		},
	}
}

// transcript prints each message of the channel exactly once.
type transcript struct {
	e    *env
	self string

	mu      sync.Mutex
	printed map[string]bool
}

func (t *transcript) show(msgs []*chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range msgs {
		if t.printed[m.ID] {
			continue
		}
		t.printed[m.ID] = true
		who := "them"
		if m.SenderID == t.self {
			who = "you"
		}
		t.e.printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.TimeOnly), who, m.Content)
	}
}

const connectWait = 10 * time.Second

func runChat(cmd *cobra.Command, e *env, s *client.SessionHolder, peerID string) error {
	t := &transcript{e: e, self: s.User().ID, printed: make(map[string]bool)}
	connected := make(chan struct{})
	var once sync.Once
	ch := client.NewChannel(s, peerID,
		client.WithOnChange(t.show),
		client.WithOnState(func(st client.State, msg string) {
			if st == client.Connected {
				once.Do(func() { close(connected) })
			}
			if msg != "" {
				e.printf("-- %s: %s\n", st, msg)
				return
			}
			e.printf("-- %s\n", st)
		}),
	)
	defer ch.Close()

	if err := ch.Open(cmd.Context()); err != nil {
		// A failed history load is shown; the live view keeps going.
		var failure *client.Failure
		if !errors.As(err, &failure) {
			return err
		}
		e.printf("!! %s\n", failure.Message)
	}

	select {
	case <-connected:
	case <-cmd.Context().Done():
		return nil
	case <-time.After(connectWait):
		e.printf("!! still not connected, messages cannot be sent until the connection is back\n")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(e.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			ch.SetDraft(line)
			if _, err := ch.Send(cmd.Context()); err != nil {
				e.printf("!! %s\n", err)
				if errors.Is(ch.Err(), client.ErrReconnectExhausted) {
					return ch.Err()
				}
				continue
			}
			ch.DismissError()
		}
	}
}
