// Package presenter holds pure display transforms over message
// sequences. Nothing here touches storage or the network.
package presenter

import (
	"time"

	"teamline/internal/domain"
)

// GroupedMessage decorates a message with its display flags. ShowAvatar
// and ShowTimestamp are true only for the first message of a group.
type GroupedMessage struct {
	*domain.Message
	ShowAvatar    bool `json:"show_avatar"`
	ShowTimestamp bool `json:"show_timestamp"`
}

// MessageGroup is a run of consecutive messages from one author within
// one minute. Anchor is the group's timestamp truncated to the minute.
type MessageGroup struct {
	AuthorID int64            `json:"author_id"`
	Anchor   time.Time        `json:"anchor"`
	Messages []GroupedMessage `json:"messages"`
}

// Group splits a chronologically sorted sequence of top-level messages
// into display groups. A new group starts whenever the author changes or
// the minute-truncated timestamp changes. Deterministic in its input and
// side-effect free.
func Group(msgs []*domain.Message) []MessageGroup {
	var groups []MessageGroup
	for _, m := range msgs {
		anchor := m.CreatedAt.Truncate(time.Minute)
		n := len(groups)
		if n == 0 || groups[n-1].AuthorID != m.AuthorID || !groups[n-1].Anchor.Equal(anchor) {
			groups = append(groups, MessageGroup{
				AuthorID: m.AuthorID,
				Anchor:   anchor,
				Messages: []GroupedMessage{{Message: m, ShowAvatar: true, ShowTimestamp: true}},
			})
			continue
		}
		groups[n-1].Messages = append(groups[n-1].Messages, GroupedMessage{Message: m})
	}
	return groups
}
