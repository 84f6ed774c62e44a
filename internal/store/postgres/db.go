package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"teamline/internal/domain"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", domain.ErrStoreUnavailable)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the messaging schema on
// PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id           BIGINT       PRIMARY KEY,
			username     VARCHAR(50)  UNIQUE NOT NULL,
			display_name VARCHAR(100) NOT NULL,
			avatar_url   TEXT,
			created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS project_members (
			project_id BIGINT      NOT NULL,
			user_id    BIGINT      NOT NULL,
			joined_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (project_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS channels (
			id         BIGSERIAL    PRIMARY KEY,
			project_id BIGINT       NOT NULL,
			name       VARCHAR(100) NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS attachments (
			id          BIGSERIAL   PRIMARY KEY,
			storage_key TEXT        NOT NULL,
			url         TEXT        NOT NULL,
			filename    TEXT        NOT NULL,
			mime_type   TEXT        NOT NULL,
			size_bytes  BIGINT      NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id            BIGSERIAL   PRIMARY KEY,
			channel_id    BIGINT      NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
			author_id     BIGINT      NOT NULL REFERENCES users(id),
			content       TEXT,
			type          TEXT        NOT NULL DEFAULT 'text',
			attachment_id BIGINT      REFERENCES attachments(id),
			parent_id     BIGINT      REFERENCES messages(id),
			created_at    TIMESTAMPTZ NOT NULL,
			edited_at     TIMESTAMPTZ,
			is_deleted    BOOLEAN     NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS typing_statuses (
			channel_id BIGINT      NOT NULL,
			user_id    BIGINT      NOT NULL,
			is_typing  BOOLEAN     NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (channel_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS read_cursors (
			channel_id           BIGINT      NOT NULL,
			user_id              BIGINT      NOT NULL,
			last_read_message_id BIGINT      NOT NULL,
			last_read_at         TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (channel_id, user_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_channels_project ON channels(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_project_members_user ON project_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chan_created ON messages(channel_id, created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_typing_channel ON typing_statuses(channel_id, updated_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
