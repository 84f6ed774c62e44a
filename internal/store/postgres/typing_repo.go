package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"teamline/internal/domain"
)

type TypingRepo struct {
	db *sql.DB
}

func NewTypingRepo(db *sql.DB) *TypingRepo {
	return &TypingRepo{db: db}
}

var _ domain.TypingRepository = (*TypingRepo)(nil)

func (r *TypingRepo) Set(ctx context.Context, channelID, userID int64, isTyping bool, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO typing_statuses (channel_id, user_id, is_typing, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id, user_id) DO UPDATE SET
			is_typing = EXCLUDED.is_typing,
			updated_at = EXCLUDED.updated_at
	`, channelID, userID, isTyping, at.UTC())
	if err != nil {
		return fmt.Errorf("upsert typing status: %w", err)
	}
	return nil
}

func (r *TypingRepo) ListActive(ctx context.Context, channelID int64, since time.Time) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM typing_statuses
		WHERE channel_id = $1 AND is_typing AND updated_at > $2
	`, channelID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list typing: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan typing user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
