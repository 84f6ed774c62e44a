package domain

import "time"

// MessageType classifies what a message carries.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// User mirrors the identity provider's view of an account. Authentication
// itself happens outside this service; rows here exist so messages and
// typing indicators can be rendered with names and avatars.
type User struct {
	ID          int64     `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Channel is a named conversation scope, one per project.
type Channel struct {
	ID        int64     `db:"id" json:"id"`
	ProjectID int64     `db:"project_id" json:"project_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Message is a single unit of communication in a channel. ParentID is nil
// for top-level messages; a non-nil ParentID must reference a top-level
// message (threads are exactly one level deep).
type Message struct {
	ID           int64       `db:"id" json:"id"`
	ChannelID    int64       `db:"channel_id" json:"channel_id"`
	AuthorID     int64       `db:"author_id" json:"author_id"`
	Content      *string     `db:"content" json:"content,omitempty"`
	Type         MessageType `db:"type" json:"type"`
	AttachmentID *int64      `db:"attachment_id" json:"attachment_id,omitempty"`
	ParentID     *int64      `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	EditedAt     *time.Time  `db:"edited_at" json:"edited_at,omitempty"`
	IsDeleted    bool        `db:"is_deleted" json:"is_deleted"`
}

// TopLevel reports whether the message belongs in the main channel
// timeline rather than under a thread parent.
func (m *Message) TopLevel() bool {
	return m.ParentID == nil
}

// TypingStatus is the ephemeral per-(channel,user) typing row. A row older
// than the configured TTL is stale and must be ignored regardless of the
// stored flag; staleness is evaluated at read time, never swept.
type TypingStatus struct {
	ChannelID int64     `db:"channel_id" json:"channel_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	IsTyping  bool      `db:"is_typing" json:"is_typing"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReadCursor marks the last message a user has seen in a channel. It only
// ever moves forward.
type ReadCursor struct {
	ChannelID         int64     `db:"channel_id" json:"channel_id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	LastReadMessageID int64     `db:"last_read_message_id" json:"last_read_message_id"`
	LastReadAt        time.Time `db:"last_read_at" json:"last_read_at"`
}

// Attachment is binary-object metadata owned by exactly one message.
type Attachment struct {
	ID         int64     `db:"id" json:"id"`
	StorageKey string    `db:"storage_key" json:"-"`
	URL        string    `db:"url" json:"url"`
	Filename   string    `db:"filename" json:"filename"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// IsImage reports whether the attachment should render inline.
func (a *Attachment) IsImage() bool {
	return len(a.MimeType) >= 6 && a.MimeType[:6] == "image/"
}
