package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"teamline/internal/domain"
)

// UnreadService maintains per-(channel,user) read watermarks and derives
// unread counts from them.
type UnreadService struct {
	cursors  domain.ReadCursorRepository
	messages domain.MessageRepository
	log      zerolog.Logger
	now      func() time.Time
}

func NewUnreadService(
	cursors domain.ReadCursorRepository,
	messages domain.MessageRepository,
	log zerolog.Logger,
) *UnreadService {
	return &UnreadService{
		cursors:  cursors,
		messages: messages,
		log:      log.With().Str("component", "unread").Logger(),
		now:      time.Now,
	}
}

// MarkRead advances the user's cursor to messageID. Older ids are a
// no-op; the cursor never moves backwards.
func (s *UnreadService) MarkRead(ctx context.Context, channelID, userID, messageID int64) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}
	if msg == nil || msg.ChannelID != channelID {
		return fmt.Errorf("message %d in channel %d: %w", messageID, channelID, domain.ErrNotFound)
	}
	return s.cursors.Advance(ctx, channelID, userID, messageID, s.now().UTC())
}

// UnreadCounts returns, per channel, how many messages authored by others
// arrived after the user's cursor. Channels with no messages or no cursor
// activity count from zero; per-channel failures are logged and reported
// as zero since badge refreshes are best-effort.
func (s *UnreadService) UnreadCounts(ctx context.Context, userID int64, channelIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(channelIDs))
	for _, chID := range channelIDs {
		n, err := s.cursors.CountUnread(ctx, chID, userID)
		if err != nil {
			s.log.Warn().Err(err).Int64("channel_id", chID).Int64("user_id", userID).Msg("unread count failed")
			counts[chID] = 0
			continue
		}
		counts[chID] = n
	}
	return counts, nil
}
