package persistence

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/yebrai/skillswap/internal/domain/user"
)

// UserRepository stores users in SQL through bun.
type UserRepository struct {
	db bun.IDB
}

func NewUserRepository(db bun.IDB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	u.Normalize()
	if _, err := r.db.NewInsert().Model(u).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return errors.Wrap(err, "userRepo.Create.Exec")
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	u := new(user.User)
	if err := r.db.NewSelect().Model(u).Where("u.id = ?", id).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, user.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "userRepo.FindByID.Scan")
	}
	u.Normalize()
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	u := new(user.User)
	if err := r.db.NewSelect().Model(u).Where("u.email = ?", email).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, user.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "userRepo.FindByEmail.Scan")
	}
	u.Normalize()
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	u.Normalize()
	res, err := r.db.NewUpdate().Model(u).
		Column("name", "avatar", "bio", "offered_skills", "required_skills", "rating", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "userRepo.Update.Exec")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// List returns users ordered by name.
func (r *UserRepository) List(ctx context.Context, filter user.ListFilter) ([]*user.User, error) {
	users := make([]*user.User, 0)
	q := r.db.NewSelect().Model(&users).OrderExpr("LOWER(u.name) ASC, u.id ASC")
	if filter.ExcludeID != "" {
		q = q.Where("u.id <> ?", filter.ExcludeID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "userRepo.List.Scan")
	}
	for _, u := range users {
		u.Normalize()
	}
	return users, nil
}
