package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/yebrai/skillswap/internal/domain/notification"
)

// Notifications reads and acknowledges the caller's notification feed.
type Notifications struct {
	session *SessionHolder
}

func NewNotifications(session *SessionHolder) *Notifications {
	return &Notifications{session: session}
}

// Feed returns the latest notifications and the unread count.
func (n *Notifications) Feed(ctx context.Context) (*notification.Feed, error) {
	var feed notification.Feed
	if err := n.session.Do(ctx, http.MethodGet, "/api/notifications", nil, &feed, nil); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (n *Notifications) MarkRead(ctx context.Context, id string) error {
	return n.session.Do(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil, nil)
}

func (n *Notifications) MarkAllRead(ctx context.Context) error {
	return n.session.Do(ctx, http.MethodPut, "/api/notifications/read", nil, nil, nil)
}
