package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"teamline/internal/domain"
)

type ReadCursorRepo struct {
	db *sql.DB
}

func NewReadCursorRepo(db *sql.DB) *ReadCursorRepo {
	return &ReadCursorRepo{db: db}
}

var _ domain.ReadCursorRepository = (*ReadCursorRepo)(nil)

func (r *ReadCursorRepo) Get(ctx context.Context, channelID, userID int64) (*domain.ReadCursor, error) {
	c := &domain.ReadCursor{}
	err := r.db.QueryRowContext(ctx, `
		SELECT channel_id, user_id, last_read_message_id, last_read_at
		FROM read_cursors
		WHERE channel_id = $1 AND user_id = $2
	`, channelID, userID).Scan(&c.ChannelID, &c.UserID, &c.LastReadMessageID, &c.LastReadAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get read cursor: %w", err)
	}
	return c, nil
}

func (r *ReadCursorRepo) Advance(ctx context.Context, channelID, userID, messageID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO read_cursors (channel_id, user_id, last_read_message_id, last_read_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id, user_id) DO UPDATE SET
			last_read_message_id = EXCLUDED.last_read_message_id,
			last_read_at = EXCLUDED.last_read_at
		WHERE EXCLUDED.last_read_message_id > read_cursors.last_read_message_id
	`, channelID, userID, messageID, at.UTC())
	if err != nil {
		return fmt.Errorf("advance read cursor: %w", err)
	}
	return nil
}

func (r *ReadCursorRepo) CountUnread(ctx context.Context, channelID, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		WHERE m.channel_id = $1
		  AND m.author_id <> $2
		  AND NOT m.is_deleted
		  AND m.id > COALESCE(
			(SELECT last_read_message_id FROM read_cursors WHERE channel_id = $1 AND user_id = $2),
			0)
	`, channelID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
