package exchange

import (
	"context"
	"time"
)

// Repository defines the interface for interacting with exchange storage.
type Repository interface {
	Create(ctx context.Context, e *Exchange) error
	FindByID(ctx context.Context, id string) (*Exchange, error)
	// ListForUser returns exchanges where userID is either party, newest first.
	ListForUser(ctx context.Context, userID string) ([]*Exchange, error)
	// UpdateStatusIfPending moves the exchange to next only if it is still
	// pending, in a single conditional statement. It reports whether a row
	// changed.
	UpdateStatusIfPending(ctx context.Context, id string, next Status, at time.Time) (bool, error)
}
