package user

import "context"

// ListFilter narrows Repository.List. Text matching is left to the
// service, which compares decoded skills with Unicode case folding.
type ListFilter struct {
	ExcludeID string
	Limit     int
}

// Repository defines the interface for interacting with user storage.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, filter ListFilter) ([]*User, error)
}
