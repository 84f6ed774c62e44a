package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"teamline/internal/domain"
)

// ChannelService manages channel lifecycle and the annotated channel
// list. Channels are created alongside projects by the surrounding
// application; rename is the only mutation, and deletion cascades to
// messages.
type ChannelService struct {
	channels domain.ChannelRepository
	members  domain.MembershipDirectory
	unread   *UnreadService
	log      zerolog.Logger
}

func NewChannelService(
	channels domain.ChannelRepository,
	members domain.MembershipDirectory,
	unread *UnreadService,
	log zerolog.Logger,
) *ChannelService {
	return &ChannelService{
		channels: channels,
		members:  members,
		unread:   unread,
		log:      log.With().Str("component", "channels").Logger(),
	}
}

// ChannelSummary is a channel annotated with the caller's unread count,
// the badge source for the channel list.
type ChannelSummary struct {
	*domain.Channel
	UnreadCount int `json:"unread_count"`
}

func (s *ChannelService) Create(ctx context.Context, projectID int64, name string, creatorID int64) (*domain.Channel, error) {
	ok, err := s.members.IsMember(ctx, projectID, creatorID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("user %d is not a member of project %d: %w", creatorID, projectID, domain.ErrForbidden)
	}

	ch := &domain.Channel{ProjectID: projectID, Name: name}
	if err := s.channels.Create(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// Get returns the channel after verifying the caller may see it.
func (s *ChannelService) Get(ctx context.Context, channelID, userID int64) (*domain.Channel, error) {
	return s.requireMember(ctx, channelID, userID)
}

func (s *ChannelService) Rename(ctx context.Context, channelID int64, name string, userID int64) (*domain.Channel, error) {
	ch, err := s.requireMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.channels.Rename(ctx, channelID, name); err != nil {
		return nil, err
	}
	ch.Name = name
	return ch, nil
}

func (s *ChannelService) Delete(ctx context.Context, channelID, userID int64) error {
	if _, err := s.requireMember(ctx, channelID, userID); err != nil {
		return err
	}
	return s.channels.Delete(ctx, channelID)
}

// ListForUser returns the channels of every project the user belongs to,
// each annotated with its unread count.
func (s *ChannelService) ListForUser(ctx context.Context, userID int64) ([]*ChannelSummary, error) {
	projectIDs, err := s.members.ListProjectIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	channels, err := s.channels.ListForProjects(ctx, projectIDs)
	if err != nil {
		return nil, err
	}

	channelIDs := make([]int64, len(channels))
	for i, ch := range channels {
		channelIDs[i] = ch.ID
	}
	counts, err := s.unread.UnreadCounts(ctx, userID, channelIDs)
	if err != nil {
		return nil, err
	}

	res := make([]*ChannelSummary, len(channels))
	for i, ch := range channels {
		res[i] = &ChannelSummary{Channel: ch, UnreadCount: counts[ch.ID]}
	}
	return res, nil
}

func (s *ChannelService) requireMember(ctx context.Context, channelID, userID int64) (*domain.Channel, error) {
	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %d: %w", channelID, domain.ErrNotFound)
	}
	ok, err := s.members.IsMember(ctx, ch.ProjectID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("user %d is not a member of project %d: %w", userID, ch.ProjectID, domain.ErrForbidden)
	}
	return ch, nil
}
