package persistence

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/yebrai/skillswap/internal/domain/exchange"
)

type ExchangeRepository struct {
	db bun.IDB
}

func NewExchangeRepository(db bun.IDB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func (r *ExchangeRepository) Create(ctx context.Context, e *exchange.Exchange) error {
	if _, err := r.db.NewInsert().Model(e).Exec(ctx); err != nil {
		return errors.Wrap(err, "exchangeRepo.Create.Exec")
	}
	return nil
}

func (r *ExchangeRepository) FindByID(ctx context.Context, id string) (*exchange.Exchange, error) {
	e := new(exchange.Exchange)
	if err := r.db.NewSelect().Model(e).Where("e.id = ?", id).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, exchange.ErrNotFound
		}
		return nil, errors.Wrap(err, "exchangeRepo.FindByID.Scan")
	}
	return e, nil
}

func (r *ExchangeRepository) ListForUser(ctx context.Context, userID string) ([]*exchange.Exchange, error) {
	list := make([]*exchange.Exchange, 0)
	err := r.db.NewSelect().Model(&list).
		Where("e.initiator_user_id = ? OR e.recipient_user_id = ?", userID, userID).
		OrderExpr("e.created_at DESC, e.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "exchangeRepo.ListForUser.Scan")
	}
	return list, nil
}

// UpdateStatusIfPending guards the transition in the WHERE clause, so two
// concurrent responses cannot both succeed.
func (r *ExchangeRepository) UpdateStatusIfPending(ctx context.Context, id string, next exchange.Status, at time.Time) (bool, error) {
	q := r.db.NewUpdate().Model((*exchange.Exchange)(nil)).
		Set("status = ?", next).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", exchange.StatusPending)
	if next == exchange.StatusActive {
		q = q.Set("start_date = ?", at)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, "exchangeRepo.UpdateStatusIfPending.Exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "exchangeRepo.UpdateStatusIfPending.RowsAffected")
	}
	return n == 1, nil
}
