package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"teamline/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, channel_id, author_id, content, type, attachment_id, parent_id, created_at, edited_at, is_deleted`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	// The server assigns the timestamp; the autoincrement id breaks ties
	// between messages created within the same clock tick.
	m.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (channel_id, author_id, content, type, attachment_id, parent_id, created_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`,
		m.ChannelID,
		m.AuthorID,
		m.Content,
		m.Type,
		m.AttachmentID,
		m.ParentID,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = ?
	`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListRecent(ctx context.Context, channelID int64, limit int) ([]*domain.Message, error) {
	// Inner query picks the newest window, outer restores ascending order.
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+`
			FROM messages
			WHERE channel_id = ? AND parent_id IS NULL
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	return collectMessages(rows)
}

func (r *MessageRepo) ListThread(ctx context.Context, parentID int64) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE parent_id = ?
		ORDER BY created_at ASC, id ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	return collectMessages(rows)
}

func (r *MessageRepo) CountThreadReplies(ctx context.Context, parentID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE parent_id = ?
	`, parentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count thread replies: %w", err)
	}
	return count, nil
}

func (r *MessageRepo) Update(ctx context.Context, m *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET content = ?, edited_at = ?, is_deleted = ? WHERE id = ?
	`, m.Content, m.EditedAt, m.IsDeleted, m.ID)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

func (r *MessageRepo) Delete(ctx context.Context, id int64) error {
	// Replies go with their parent; threads are one level deep so a
	// single pass covers everything.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ? OR parent_id = ?`, id, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	err := row.Scan(
		&m.ID,
		&m.ChannelID,
		&m.AuthorID,
		&m.Content,
		&m.Type,
		&m.AttachmentID,
		&m.ParentID,
		&m.CreatedAt,
		&m.EditedAt,
		&m.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func collectMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	var res []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
