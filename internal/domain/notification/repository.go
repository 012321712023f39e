package notification

import "context"

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListRecent returns up to limit notifications for userID, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	// MarkRead returns ErrNotFound when id does not belong to userID.
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}
