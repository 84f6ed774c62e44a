package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"teamline/internal/domain"
	"teamline/internal/metrics"
)

// TypingService tracks short-lived typing presence. Writes are
// best-effort: a failed store write is logged and swallowed, never
// surfaced, because a missing typing indicator must not block sending.
type TypingService struct {
	typing      domain.TypingRepository
	users       domain.UserRepository
	broadcaster Broadcaster
	ttl         time.Duration
	log         zerolog.Logger
	now         func() time.Time
}

func NewTypingService(
	typing domain.TypingRepository,
	users domain.UserRepository,
	broadcaster Broadcaster,
	ttl time.Duration,
	log zerolog.Logger,
) *TypingService {
	return &TypingService{
		typing:      typing,
		users:       users,
		broadcaster: broadcaster,
		ttl:         ttl,
		log:         log.With().Str("component", "typing").Logger(),
		now:         time.Now,
	}
}

// SetTyping upserts the (channel,user) typing row and broadcasts the
// change. Callers reach this through a Debouncer, so at most one write
// lands per debounce window.
func (s *TypingService) SetTyping(ctx context.Context, channelID, userID int64, isTyping bool) {
	if err := s.typing.Set(ctx, channelID, userID, isTyping, s.now().UTC()); err != nil {
		s.log.Warn().Err(err).Int64("channel_id", channelID).Int64("user_id", userID).Msg("typing write failed")
		return
	}
	metrics.TypingWrites.Inc()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		user = &domain.User{ID: userID}
	}
	s.broadcaster.Typing(channelID, user, isTyping)
}

// ListTypingUsers returns everyone with a fresh typing row in the
// channel, excluding the caller. Staleness is evaluated here, at read
// time; rows are never swept.
func (s *TypingService) ListTypingUsers(ctx context.Context, channelID, excludeUserID int64) ([]*domain.User, error) {
	since := s.now().UTC().Add(-s.ttl)
	ids, err := s.typing.ListActive(ctx, channelID, since)
	if err != nil {
		return nil, err
	}

	filtered := ids[:0]
	for _, id := range ids {
		if id != excludeUserID {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return []*domain.User{}, nil
	}

	users, err := s.users.GetByIDs(ctx, filtered)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// TTL exposes the staleness bound so transports can hint clients.
func (s *TypingService) TTL() time.Duration {
	return s.ttl
}
