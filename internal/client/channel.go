package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yebrai/skillswap/internal/domain/chat"
	realtime "github.com/yebrai/skillswap/internal/websocket"
)

// State is the connection state of a Channel.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second

	connectionErrorMessage = "Connection error. Trying to reconnect..."
	connectionLostMessage  = "Connection lost. Reopen the conversation to try again."
	historyFailureMessage  = "Failed to load messages"
	sendFailureMessage     = "Failed to send message. Please try again."
)

var (
	ErrEmptyMessage       = errors.New("skillswap: message is empty")
	ErrSendInFlight       = errors.New("skillswap: a message is already being sent")
	ErrNotConnected       = errors.New("skillswap: channel is not connected")
	ErrReconnectExhausted = errors.New("skillswap: reconnect attempts exhausted")
	ErrChannelClosed      = errors.New("skillswap: channel closed")
)

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithReconnect overrides the reconnect budget and the delay between attempts.
func WithReconnect(attempts int, delay time.Duration) ChannelOption {
	return func(c *Channel) {
		c.maxAttempts = attempts
		c.retryDelay = delay
	}
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) ChannelOption {
	return func(c *Channel) { c.dialer = d }
}

// WithOnChange registers a hook called with a copy of the message
// sequence after every change to it. The hook must not call Close.
func WithOnChange(fn func([]*chat.Message)) ChannelOption {
	return func(c *Channel) { c.onChange = fn }
}

// WithOnState registers a hook called after every state transition. The
// hook must not call Close.
func WithOnState(fn func(State, string)) ChannelOption {
	return func(c *Channel) { c.onState = fn }
}

// Channel is the live view of one conversation: its history, realtime
// updates and an outgoing draft.
//
// States move Disconnected → Connecting → Connected. A transport failure
// returns to Connecting and retries up to the reconnect budget, which is
// restored on every successful connect. Once the budget is spent the
// channel stays Disconnected, Err reports ErrReconnectExhausted and Error
// no longer promises a retry.
type Channel struct {
	session     *SessionHolder
	peerID      string
	dialer      *websocket.Dialer
	maxAttempts int
	retryDelay  time.Duration
	onChange    func([]*chat.Message)
	onState     func(State, string)

	mu       sync.Mutex
	state    State
	messages []*chat.Message
	seen     map[string]bool
	draft    string
	sending  bool
	errMsg   string
	err      error
	conn     *websocket.Conn
	token    string
	opened   bool
	closed   bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	unsub    func()
}

// NewChannel creates a closed channel to peerID. Call Open to start it.
func NewChannel(session *SessionHolder, peerID string, opts ...ChannelOption) *Channel {
	c := &Channel{
		session:     session,
		peerID:      peerID,
		dialer:      websocket.DefaultDialer,
		maxAttempts: DefaultReconnectAttempts,
		retryDelay:  DefaultReconnectDelay,
		seen:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open loads the history and starts the realtime subscription. A history
// failure is reported through Error and does not prevent connecting.
func (c *Channel) Open(ctx context.Context) error {
	token := c.session.Token()
	if token == "" {
		return ErrNoSession
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.opened {
		c.mu.Unlock()
		return nil
	}
	c.opened = true
	c.token = token
	c.mu.Unlock()

	unsub := c.session.Subscribe(func(ev Event) {
		if ev.Kind == EventLogout || (ev.Kind == EventLogin && ev.Token != token) {
			go c.Close()
		}
	})
	c.mu.Lock()
	c.unsub = unsub
	c.mu.Unlock()

	historyErr := c.loadHistory(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.loopDone = make(chan struct{})
	c.mu.Unlock()

	go c.run(loopCtx)
	return historyErr
}

func (c *Channel) loadHistory(ctx context.Context) error {
	var history []*chat.Message
	path := "/api/messages/" + url.PathEscape(c.peerID)
	if err := c.session.Do(ctx, http.MethodGet, path, nil, &history, nil); err != nil {
		failure := fail(err, historyFailureMessage)
		c.mu.Lock()
		c.errMsg = failure.Error()
		c.mu.Unlock()
		return failure
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})

	c.mu.Lock()
	// Anything that arrived live before history finished stays after it.
	live := c.messages
	c.messages = make([]*chat.Message, 0, len(history)+len(live))
	c.seen = make(map[string]bool, len(history)+len(live))
	for _, m := range append(history, live...) {
		if !c.seen[m.ID] {
			c.seen[m.ID] = true
			c.messages = append(c.messages, m)
		}
	}
	snapshot := c.snapshot()
	c.mu.Unlock()

	c.changed(snapshot)
	return nil
}

// run owns the websocket connection until ctx is cancelled.
func (c *Channel) run(ctx context.Context) {
	defer close(c.loopDone)

	attempts := 0
	for {
		c.setState(Connecting, c.currentErrMsg())
		conn, _, err := c.dialer.DialContext(ctx, c.session.API().RealtimeURL(c.token), nil)
		if err == nil {
			attempts = 0
			if !c.attach(conn) {
				conn.Close()
				return
			}
			c.setState(Connected, c.currentErrMsg())
			c.readLoop(conn)
			c.detach()
		}
		if ctx.Err() != nil {
			return
		}

		if attempts >= c.maxAttempts {
			c.mu.Lock()
			c.err = ErrReconnectExhausted
			c.mu.Unlock()
			c.setState(Disconnected, connectionLostMessage)
			return
		}
		attempts++
		c.setState(Disconnected, connectionErrorMessage)
		c.setState(Connecting, connectionErrorMessage)

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Channel) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	c.err = nil
	if c.errMsg == connectionErrorMessage {
		c.errMsg = ""
	}
	return true
}

func (c *Channel) detach() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		if ev.Type != realtime.ReceiveMessageEvent || len(ev.Payload) == 0 {
			continue
		}
		var m chat.Message
		if err := json.Unmarshal(ev.Payload, &m); err != nil || m.ID == "" {
			continue
		}
		if m.SenderID != c.peerID && m.RecipientID != c.peerID {
			continue
		}
		c.append(&m)
	}
}

// append adds m unless a message with the same id is already present.
func (c *Channel) append(m *chat.Message) {
	c.mu.Lock()
	if c.seen[m.ID] {
		c.mu.Unlock()
		return
	}
	c.seen[m.ID] = true
	c.messages = append(c.messages, m)
	snapshot := c.snapshot()
	c.mu.Unlock()

	c.changed(snapshot)
}

// SetDraft replaces the outgoing draft.
func (c *Channel) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

func (c *Channel) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Send posts the draft. Empty drafts, concurrent sends and sends while
// not connected are rejected without a request. On failure the draft is
// kept.
func (c *Channel) Send(ctx context.Context) (*chat.Message, error) {
	c.mu.Lock()
	content := strings.TrimSpace(c.draft)
	switch {
	case content == "":
		c.mu.Unlock()
		return nil, ErrEmptyMessage
	case c.sending:
		c.mu.Unlock()
		return nil, ErrSendInFlight
	case c.state != Connected:
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.sending = true
	c.mu.Unlock()

	var m chat.Message
	body := map[string]string{"recipientId": c.peerID, "content": content}
	err := c.session.Do(ctx, http.MethodPost, "/api/messages", body, &m, nil)

	c.mu.Lock()
	c.sending = false
	if err != nil {
		c.errMsg = sendFailureMessage
		c.mu.Unlock()
		return nil, &Failure{Message: sendFailureMessage, Err: err}
	}
	c.draft = ""
	c.mu.Unlock()

	c.append(&m)
	return &m, nil
}

// Messages returns a copy of the current sequence.
func (c *Channel) Messages() []*chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Error is the message currently shown to the user, or "".
func (c *Channel) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Err is ErrReconnectExhausted once the channel gave up, nil otherwise.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// DismissError clears the displayed error.
func (c *Channel) DismissError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
}

// Close tears the subscription down. It is safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel, done, conn, unsub := c.cancel, c.loopDone, c.conn, c.unsub
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		// Unblocks ReadJSON.
		conn.Close()
	}
	if done != nil {
		<-done
	}
	c.setState(Disconnected, c.currentErrMsg())
}

func (c *Channel) currentErrMsg() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Channel) setState(s State, msg string) {
	c.mu.Lock()
	c.state = s
	c.errMsg = msg
	hook := c.onState
	c.mu.Unlock()
	if hook != nil {
		hook(s, msg)
	}
}

// snapshot must be called with mu held.
func (c *Channel) snapshot() []*chat.Message {
	out := make([]*chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Channel) changed(snapshot []*chat.Message) {
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}
