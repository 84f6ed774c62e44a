package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"teamline/internal/domain"
)

// Open opens a SQLite database with the given DSN. Both options ride the
// DSN because they are per-connection state: foreign_keys so the cascade
// constraints hold on every pooled connection, and the driver's "sqlite"
// time format so DATETIME comparisons in SQL order the same way the
// values do.
func Open(dsn string) (*sql.DB, error) {
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_time_format=sqlite&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", domain.ErrStoreUnavailable)
	}
	return db, nil
}

// Migrate applies the messaging schema as an idempotent set of CREATE
// TABLE / CREATE INDEX statements.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// User directory, mirrored from the identity provider
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			display_name VARCHAR(100) NOT NULL,
			avatar_url TEXT DEFAULT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Project membership, maintained by the surrounding application
		`CREATE TABLE IF NOT EXISTS project_members (
			project_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (project_id, user_id)
		);`,
		// Channels, one per project
		`CREATE TABLE IF NOT EXISTS channels (
			id INTEGER PRIMARY KEY,
			project_id INTEGER NOT NULL,
			name VARCHAR(100) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Attachment metadata, owned by exactly one message
		`CREATE TABLE IF NOT EXISTS attachments (
			id INTEGER PRIMARY KEY,
			storage_key TEXT NOT NULL,
			url TEXT NOT NULL,
			filename TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Messages; parent_id marks a one-level thread reply
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			channel_id INTEGER NOT NULL,
			author_id INTEGER NOT NULL,
			content TEXT DEFAULT NULL,
			type TEXT NOT NULL DEFAULT 'text',
			attachment_id INTEGER DEFAULT NULL,
			parent_id INTEGER DEFAULT NULL,
			created_at DATETIME NOT NULL,
			edited_at DATETIME DEFAULT NULL,
			is_deleted BOOLEAN DEFAULT 0,
			FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
			FOREIGN KEY (author_id) REFERENCES users(id),
			FOREIGN KEY (attachment_id) REFERENCES attachments(id),
			FOREIGN KEY (parent_id) REFERENCES messages(id)
		);`,
		// Ephemeral typing rows, expired by TTL at read time
		`CREATE TABLE IF NOT EXISTS typing_statuses (
			channel_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			is_typing BOOLEAN NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (channel_id, user_id)
		);`,
		// Per-(channel,user) read watermarks
		`CREATE TABLE IF NOT EXISTS read_cursors (
			channel_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			last_read_message_id INTEGER NOT NULL,
			last_read_at DATETIME NOT NULL,
			PRIMARY KEY (channel_id, user_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_channels_project ON channels(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_project_members_user ON project_members(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chan_created ON messages(channel_id, created_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_typing_channel ON typing_statuses(channel_id, updated_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
