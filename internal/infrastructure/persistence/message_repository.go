package persistence

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/yebrai/skillswap/internal/domain/chat"
)

type MessageRepository struct {
	db bun.IDB
}

func NewMessageRepository(db bun.IDB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *chat.Message) error {
	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return errors.Wrap(err, "messageRepo.Create.Exec")
	}
	return nil
}

func (r *MessageRepository) ListBetween(ctx context.Context, a, b string) ([]*chat.Message, error) {
	msgs := make([]*chat.Message, 0)
	err := r.db.NewSelect().Model(&msgs).
		Where("(m.sender_id = ? AND m.recipient_id = ?) OR (m.sender_id = ? AND m.recipient_id = ?)", a, b, b, a).
		OrderExpr("m.created_at ASC, m.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.ListBetween.Scan")
	}
	return msgs, nil
}

func (r *MessageRepository) ListForUser(ctx context.Context, userID string) ([]*chat.Message, error) {
	msgs := make([]*chat.Message, 0)
	err := r.db.NewSelect().Model(&msgs).
		Where("m.sender_id = ? OR m.recipient_id = ?", userID, userID).
		OrderExpr("m.created_at DESC, m.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "messageRepo.ListForUser.Scan")
	}
	return msgs, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, recipientID, senderID string) (int, error) {
	res, err := r.db.NewUpdate().Model((*chat.Message)(nil)).
		Set("is_read = ?", true).
		Where("recipient_id = ?", recipientID).
		Where("sender_id = ?", senderID).
		Where("is_read = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "messageRepo.MarkRead.Exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "messageRepo.MarkRead.RowsAffected")
	}
	return int(n), nil
}
