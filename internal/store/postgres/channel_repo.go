package postgres

import (
	"context"
	"database/sql"
	"fmt"
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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO channels (project_id, name, created_at) VALUES ($1, $2, $3) RETURNING id
	`, c.ProjectID, c.Name, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (r *ChannelRepo) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	c := &domain.Channel{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, created_at FROM channels WHERE id = $1
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
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, name, created_at
		FROM channels
		WHERE project_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`, projectIDs)
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
	if _, err := r.db.ExecContext(ctx, `UPDATE channels SET name = $1 WHERE id = $2`, name, id); err != nil {
		return fmt.Errorf("rename channel: %w", err)
	}
	return nil
}

func (r *ChannelRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}
