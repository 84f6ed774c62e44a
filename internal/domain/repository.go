package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for the user directory.
type UserRepository interface {
	Upsert(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*User, error)
}

// ChannelRepository defines persistence operations for channels.
type ChannelRepository interface {
	Create(ctx context.Context, c *Channel) error
	GetByID(ctx context.Context, id int64) (*Channel, error)
	ListForProjects(ctx context.Context, projectIDs []int64) ([]*Channel, error)
	Rename(ctx context.Context, id int64, name string) error
	// Delete removes the channel and cascades to its messages.
	Delete(ctx context.Context, id int64) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	// ListRecent returns the most recent limit top-level messages of a
	// channel in ascending (created_at, id) order.
	ListRecent(ctx context.Context, channelID int64, limit int) ([]*Message, error)
	ListThread(ctx context.Context, parentID int64) ([]*Message, error)
	CountThreadReplies(ctx context.Context, parentID int64) (int, error)
	Update(ctx context.Context, m *Message) error
	Delete(ctx context.Context, id int64) error
}

// TypingRepository defines persistence for ephemeral typing rows. Rows are
// upserted, never deleted; readers filter by freshness.
type TypingRepository interface {
	Set(ctx context.Context, channelID, userID int64, isTyping bool, at time.Time) error
	// ListActive returns user IDs with a fresh is_typing row in the
	// channel, i.e. updated_at strictly after the since bound.
	ListActive(ctx context.Context, channelID int64, since time.Time) ([]int64, error)
}

// ReadCursorRepository defines persistence for per-(channel,user) read
// watermarks.
type ReadCursorRepository interface {
	Get(ctx context.Context, channelID, userID int64) (*ReadCursor, error)
	// Advance moves the cursor to messageID only if it is ahead of the
	// stored one; older values are a no-op.
	Advance(ctx context.Context, channelID, userID, messageID int64, at time.Time) error
	// CountUnread counts messages in the channel newer than the user's
	// cursor and authored by someone else. No cursor means everything
	// authored by others is unread.
	CountUnread(ctx context.Context, channelID, userID int64) (int, error)
}

// AttachmentRepository defines persistence for attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, a *Attachment) error
	GetByID(ctx context.Context, id int64) (*Attachment, error)
	Delete(ctx context.Context, id int64) error
}

// MembershipDirectory resolves project membership. Backed by the
// surrounding application's project tables; this subsystem only reads it
// to gate channel access.
type MembershipDirectory interface {
	IsMember(ctx context.Context, projectID, userID int64) (bool, error)
	ListProjectIDs(ctx context.Context, userID int64) ([]int64, error)
}
