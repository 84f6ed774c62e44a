package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"teamline/internal/domain"
	"teamline/internal/metrics"
)

// Broadcaster pushes store changes to channel subscribers. Implemented by
// the ws hub; services stay unaware of the transport.
type Broadcaster interface {
	MessageCreated(m *domain.Message)
	MessageUpdated(m *domain.Message)
	MessageDeleted(channelID, messageID int64)
	Typing(channelID int64, user *domain.User, isTyping bool)
}

// AttachmentCleaner removes an attachment's row and stored bytes.
// Implemented by AttachmentService; cleanup after a message delete is
// best-effort and never blocks the delete itself.
type AttachmentCleaner interface {
	Delete(ctx context.Context, id int64) error
}

// MessageService implements the durable ordered message log: the initial
// channel window, appends with thread validation, author-guarded edits
// and deletes, and thread reads.
type MessageService struct {
	channels    domain.ChannelRepository
	messages    domain.MessageRepository
	attachments domain.AttachmentRepository
	members     domain.MembershipDirectory
	broadcaster Broadcaster
	cleaner     AttachmentCleaner
	appendSeq   keyedMutex
	log         zerolog.Logger
}

// keyedMutex hands out one mutex per channel id. Append holds it across
// the insert and the broadcast so subscribers see new messages in the
// same (created_at, id) order the store assigned them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (k *keyedMutex) forKey(id int64) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[int64]*sync.Mutex)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	return l
}

func NewMessageService(
	channels domain.ChannelRepository,
	messages domain.MessageRepository,
	attachments domain.AttachmentRepository,
	members domain.MembershipDirectory,
	broadcaster Broadcaster,
	cleaner AttachmentCleaner,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{
		channels:    channels,
		messages:    messages,
		attachments: attachments,
		members:     members,
		broadcaster: broadcaster,
		cleaner:     cleaner,
		log:         log.With().Str("component", "messages").Logger(),
	}
}

// ListRecent returns the most recent limit top-level messages of a
// channel in ascending (created_at, id) order.
func (s *MessageService) ListRecent(ctx context.Context, channelID int64, limit int) ([]*domain.Message, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %d: %w", channelID, domain.ErrNotFound)
	}
	msgs, err := s.messages.ListRecent(ctx, channelID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	return msgs, nil
}

type AppendInput struct {
	ChannelID    int64
	AuthorID     int64
	Content      string
	AttachmentID *int64
	ParentID     *int64
}

// Append validates and persists a new message, then broadcasts the
// insert to the channel's subscribers.
func (s *MessageService) Append(ctx context.Context, in AppendInput) (*domain.Message, error) {
	ch, err := s.channels.GetByID(ctx, in.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %d: %w", in.ChannelID, domain.ErrNotFound)
	}

	ok, err := s.members.IsMember(ctx, ch.ProjectID, in.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("user %d is not a member of project %d: %w", in.AuthorID, ch.ProjectID, domain.ErrForbidden)
	}

	content := strings.TrimSpace(in.Content)
	if content == "" && in.AttachmentID == nil {
		return nil, domain.ErrInvalidMessage
	}
	if len([]rune(content)) > 5000 {
		return nil, fmt.Errorf("content exceeds 5000 characters: %w", domain.ErrInvalidMessage)
	}

	msgType := domain.MessageTypeText
	if in.AttachmentID != nil {
		att, err := s.attachments.GetByID(ctx, *in.AttachmentID)
		if err != nil {
			return nil, fmt.Errorf("get attachment: %w", err)
		}
		if att == nil {
			return nil, fmt.Errorf("attachment %d: %w", *in.AttachmentID, domain.ErrInvalidMessage)
		}
		if att.IsImage() {
			msgType = domain.MessageTypeImage
		} else {
			msgType = domain.MessageTypeFile
		}
	}

	if in.ParentID != nil {
		parent, err := s.messages.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, fmt.Errorf("get parent: %w", err)
		}
		// Threads are exactly one level deep: the parent must exist, live
		// in the same channel, and itself be top-level.
		if parent == nil || parent.ChannelID != in.ChannelID || !parent.TopLevel() {
			return nil, domain.ErrInvalidThread
		}
	}

	msg := &domain.Message{
		ChannelID:    in.ChannelID,
		AuthorID:     in.AuthorID,
		Type:         msgType,
		AttachmentID: in.AttachmentID,
		ParentID:     in.ParentID,
	}
	if content != "" {
		msg.Content = &content
	}

	lock := s.appendSeq.forKey(in.ChannelID)
	lock.Lock()
	defer lock.Unlock()
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	metrics.MessagesPosted.WithLabelValues(string(msg.Type)).Inc()
	s.broadcaster.MessageCreated(msg)
	return msg, nil
}

// Edit replaces the content of the caller's own message and broadcasts
// an update event. Concurrent edits by the author are last-writer-wins.
func (s *MessageService) Edit(ctx context.Context, messageID, authorID int64, newContent string) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil || msg.IsDeleted {
		return nil, fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
	}
	if msg.AuthorID != authorID {
		return nil, fmt.Errorf("message %d belongs to another author: %w", messageID, domain.ErrForbidden)
	}

	content := strings.TrimSpace(newContent)
	if content == "" && msg.AttachmentID == nil {
		return nil, domain.ErrInvalidMessage
	}
	if len([]rune(content)) > 5000 {
		return nil, fmt.Errorf("content exceeds 5000 characters: %w", domain.ErrInvalidMessage)
	}

	now := time.Now().UTC()
	// Empty content on an attachment-only message stays nil, the same
	// shape Append produces.
	msg.Content = nil
	if content != "" {
		msg.Content = &content
	}
	msg.EditedAt = &now
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	s.broadcaster.MessageUpdated(msg)
	return msg, nil
}

// Delete removes the caller's own message. Deleting an already-deleted
// message is a no-op. Attachment cleanup happens in the background and
// never fails the delete.
func (s *MessageService) Delete(ctx context.Context, messageID, authorID int64) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil
	}
	if msg.AuthorID != authorID {
		return fmt.Errorf("message %d belongs to another author: %w", messageID, domain.ErrForbidden)
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return err
	}
	metrics.MessagesDeleted.Inc()

	if msg.AttachmentID != nil && s.cleaner != nil {
		attID := *msg.AttachmentID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.cleaner.Delete(ctx, attID); err != nil {
				s.log.Warn().Err(err).Int64("attachment_id", attID).Msg("attachment cleanup failed")
			}
		}()
	}

	s.broadcaster.MessageDeleted(msg.ChannelID, messageID)
	return nil
}

// ListThread returns all replies to a top-level message in ascending
// creation order.
func (s *MessageService) ListThread(ctx context.Context, parentID int64) ([]*domain.Message, error) {
	parent, err := s.messages.GetByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	if parent == nil {
		return nil, fmt.Errorf("message %d: %w", parentID, domain.ErrNotFound)
	}
	msgs, err := s.messages.ListThread(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	return msgs, nil
}

// CountThreadReplies counts replies live; no cached counters.
func (s *MessageService) CountThreadReplies(ctx context.Context, parentID int64) (int, error) {
	return s.messages.CountThreadReplies(ctx, parentID)
}
