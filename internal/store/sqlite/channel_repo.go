package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"teamline/internal/domain"
)

type ChannelRepo struct {
	db *sql.DB
}

func NewChannelRepo(db *sql.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

var _ domain.ChannelRepository = (*ChannelRepo)(nil)

func (r *ChannelRepo) Create(ctx context.Context, c *domain.Channel) error {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO channels (project_id, name, created_at) VALUES (?, ?, ?)
	`, c.ProjectID, c.Name, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *ChannelRepo) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	c := &domain.Channel{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, created_at FROM channels WHERE id = ?
	`, id).Scan(&c.ID, &c.ProjectID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return c, nil
}

func (r *ChannelRepo) ListForProjects(ctx context.Context, projectIDs []int64) ([]*domain.Channel, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, project_id, name, created_at
		FROM channels
		WHERE project_id IN (?` + strings.Repeat(",?", len(projectIDs)-1) + `)
		ORDER BY created_at ASC, id ASC
	`
	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var res []*domain.Channel
	for rows.Next() {
		c := &domain.Channel{}
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ChannelRepo) Rename(ctx context.Context, id int64, name string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE channels SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("rename channel: %w", err)
	}
	return nil
}

func (r *ChannelRepo) Delete(ctx context.Context, id int64) error {
	// Messages cascade via the foreign key; typing rows and cursors are
	// harmless leftovers keyed by a dead channel id.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}
