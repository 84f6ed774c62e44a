package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"teamline/internal/domain"
)

type AttachmentRepo struct {
	db *sql.DB
}

func NewAttachmentRepo(db *sql.DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

var _ domain.AttachmentRepository = (*AttachmentRepo)(nil)

func (r *AttachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	a.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attachments (storage_key, url, filename, mime_type, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.StorageKey, a.URL, a.Filename, a.MimeType, a.SizeBytes, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	return nil
}

func (r *AttachmentRepo) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	a := &domain.Attachment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, storage_key, url, filename, mime_type, size_bytes, created_at
		FROM attachments WHERE id = ?
	`, id).Scan(&a.ID, &a.StorageKey, &a.URL, &a.Filename, &a.MimeType, &a.SizeBytes, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

func (r *AttachmentRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
