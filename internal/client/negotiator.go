package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/yebrai/skillswap/internal/domain/exchange"
)

// Decision is a recipient's answer to a pending exchange.
type Decision int

const (
	Accept Decision = iota
	Reject
)

// Status is the exchange status a decision moves to.
func (d Decision) Status() exchange.Status {
	if d == Accept {
		return exchange.StatusActive
	}
	return exchange.StatusRejected
}

var (
	// ErrNotPending is returned, without a request, when answering an
	// exchange whose known status is not pending.
	ErrNotPending = errors.New("skillswap: exchange is not pending")
	// ErrUnknownExchange is returned for ids the negotiator has not seen.
	// Call Refresh first.
	ErrUnknownExchange = errors.New("skillswap: unknown exchange")
	// ErrNotRecipient is returned, without a request, when the caller
	// tries to answer an exchange it proposed.
	ErrNotRecipient    = errors.New("skillswap: only the recipient can answer an exchange")
	ErrNoOfferedSkills = errors.New("skillswap: no offered skills")
)

const (
	loginToExchangeMessage = "Please log in to send an exchange request."
	noSkillsMessage        = "You need to add skills to your profile before requesting an exchange."
	requestFailedMessage   = "Failed to send exchange request"
	respondFailedMessage   = "Failed to update exchange"
)

// Negotiator holds the caller's exchanges and drives their lifecycle.
//
// Responses are applied optimistically: the local status flips before the
// request is sent and is not rolled back if it fails. Refresh reconciles.
type Negotiator struct {
	session *SessionHolder

	mu        sync.Mutex
	exchanges map[string]*exchange.Exchange
	order     []string
}

func NewNegotiator(session *SessionHolder) *Negotiator {
	return &Negotiator{session: session, exchanges: make(map[string]*exchange.Exchange)}
}

// RequestExchange proposes the caller's first offered skill in return for
// providerSkill.
func (n *Negotiator) RequestExchange(ctx context.Context, providerID, providerSkill string) (*exchange.Exchange, error) {
	me := n.session.User()
	if me == nil {
		return nil, &Failure{Message: loginToExchangeMessage, Err: ErrNoSession}
	}
	if len(me.OfferedSkills) == 0 {
		return nil, &Failure{Message: noSkillsMessage, Err: ErrNoOfferedSkills}
	}

	body := map[string]string{
		"providerId":     providerID,
		"providerSkill":  providerSkill,
		"requesterSkill": me.OfferedSkills[0].Title,
	}
	var ex exchange.Exchange
	if err := n.session.Do(ctx, http.MethodPost, "/api/exchanges", body, &ex, nil); err != nil {
		return nil, fail(err, requestFailedMessage)
	}

	n.mu.Lock()
	n.store(&ex, true)
	n.mu.Unlock()
	return copyExchange(&ex), nil
}

// RespondToExchange accepts or rejects a pending exchange addressed to
// the caller.
func (n *Negotiator) RespondToExchange(ctx context.Context, exchangeID string, d Decision) (*exchange.Exchange, error) {
	next := d.Status()
	me := n.session.User()
	if me == nil {
		return nil, ErrNoSession
	}

	n.mu.Lock()
	ex, ok := n.exchanges[exchangeID]
	if !ok {
		n.mu.Unlock()
		return nil, ErrUnknownExchange
	}
	if !ex.Status.CanTransition(next) {
		n.mu.Unlock()
		return nil, ErrNotPending
	}
	if ex.Recipient.UserID != me.ID {
		n.mu.Unlock()
		return nil, ErrNotRecipient
	}
	ex.Status = next
	n.mu.Unlock()

	var updated exchange.Exchange
	path := "/api/exchanges/" + url.PathEscape(exchangeID)
	if err := n.session.Do(ctx, http.MethodPut, path, map[string]exchange.Status{"status": next}, &updated, nil); err != nil {
		return nil, fail(err, respondFailedMessage)
	}

	n.mu.Lock()
	n.store(&updated, false)
	n.mu.Unlock()
	return copyExchange(&updated), nil
}

// Refresh replaces the local state with the server's.
func (n *Negotiator) Refresh(ctx context.Context) ([]*exchange.Exchange, error) {
	var list []*exchange.Exchange
	if err := n.session.Do(ctx, http.MethodGet, "/api/exchanges/my-requests", nil, &list, nil); err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.exchanges = make(map[string]*exchange.Exchange, len(list))
	n.order = n.order[:0]
	for _, ex := range list {
		n.store(ex, false)
	}
	n.mu.Unlock()
	return n.Exchanges(), nil
}

// Exchanges returns copies of the known exchanges, newest first.
func (n *Negotiator) Exchanges() []*exchange.Exchange {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*exchange.Exchange, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, copyExchange(n.exchanges[id]))
	}
	return out
}

// Get returns a copy of one known exchange.
func (n *Negotiator) Get(id string) (*exchange.Exchange, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ex, ok := n.exchanges[id]
	if !ok {
		return nil, false
	}
	return copyExchange(ex), true
}

// store must be called with mu held. New ids go first when prepend is set
// and last otherwise.
func (n *Negotiator) store(ex *exchange.Exchange, prepend bool) {
	if _, known := n.exchanges[ex.ID]; !known {
		if prepend {
			n.order = append([]string{ex.ID}, n.order...)
		} else {
			n.order = append(n.order, ex.ID)
		}
	}
	n.exchanges[ex.ID] = copyExchange(ex)
}

func copyExchange(ex *exchange.Exchange) *exchange.Exchange {
	c := *ex
	return &c
}
