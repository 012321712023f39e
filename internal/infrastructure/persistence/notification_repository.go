package persistence

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/yebrai/skillswap/internal/domain/notification"
)

type NotificationRepository struct {
	db bun.IDB
}

func NewNotificationRepository(db bun.IDB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	if _, err := r.db.NewInsert().Model(n).Exec(ctx); err != nil {
		return errors.Wrap(err, "notificationRepo.Create.Exec")
	}
	return nil
}

func (r *NotificationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	items := make([]*notification.Notification, 0)
	q := r.db.NewSelect().Model(&items).
		Where("n.user_id = ?", userID).
		OrderExpr("n.created_at DESC, n.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "notificationRepo.ListRecent.Scan")
	}
	return items, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := r.db.NewSelect().Model((*notification.Notification)(nil)).
		Where("n.user_id = ?", userID).
		Where("n.is_read = ?", false).
		Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "notificationRepo.CountUnread.Count")
	}
	return n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	res, err := r.db.NewUpdate().Model((*notification.Notification)(nil)).
		Set("is_read = ?", true).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "notificationRepo.MarkRead.Exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "notificationRepo.MarkRead.RowsAffected")
	}
	if n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := r.db.NewUpdate().Model((*notification.Notification)(nil)).
		Set("is_read = ?", true).
		Where("user_id = ?", userID).
		Where("is_read = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "notificationRepo.MarkAllRead.Exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "notificationRepo.MarkAllRead.RowsAffected")
	}
	return int(n), nil
}
