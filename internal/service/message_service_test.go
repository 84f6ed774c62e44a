package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"teamline/internal/domain"
	"teamline/internal/service"
)

type messageFixture struct {
	channels    *MockChannelRepo
	messages    *MockMessageRepo
	attachments *MockAttachmentRepo
	members     *MockMembershipDirectory
	broadcast   *recordingBroadcaster
	svc         *service.MessageService
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		channels:    new(MockChannelRepo),
		messages:    new(MockMessageRepo),
		attachments: new(MockAttachmentRepo),
		members:     new(MockMembershipDirectory),
		broadcast:   &recordingBroadcaster{},
	}
	f.svc = service.NewMessageService(f.channels, f.messages, f.attachments, f.members, f.broadcast, nil, zerolog.Nop())
	return f
}

func (f *messageFixture) givenChannel(id, projectID int64) {
	f.channels.On("GetByID", mock.Anything, id).Return(&domain.Channel{ID: id, ProjectID: projectID, Name: "general"}, nil)
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestMessageServiceAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(7)).Return(true, nil)
		f.messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.ChannelID == 1 && m.AuthorID == 7 && *m.Content == "hi" && m.Type == domain.MessageTypeText
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Message).ID = 42
		}).Return(nil)

		msg, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 7, Content: "  hi  "})
		assert.NoError(t, err)
		assert.Equal(t, int64(42), msg.ID)
		assert.Equal(t, "hi", *msg.Content)
		assert.Len(t, f.broadcast.created, 1)
	})

	t.Run("EmptyContentWithoutAttachment", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(7)).Return(true, nil)

		_, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 7, Content: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
		assert.Empty(t, f.broadcast.created)
	})

	t.Run("ContentTooLong", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(7)).Return(true, nil)

		_, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 7, Content: strings.Repeat("a", 5001)})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("NonMember", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(9)).Return(false, nil)

		_, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 9, Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("UnknownChannel", func(t *testing.T) {
		f := newMessageFixture()
		f.channels.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

		_, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 99, AuthorID: 7, Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ImageAttachmentSetsType", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(7)).Return(true, nil)
		f.attachments.On("GetByID", mock.Anything, int64(5)).Return(&domain.Attachment{ID: 5, MimeType: "image/png"}, nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)

		msg, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 7, AttachmentID: int64Ptr(5)})
		assert.NoError(t, err)
		assert.Equal(t, domain.MessageTypeImage, msg.Type)
		assert.Nil(t, msg.Content)
	})

	t.Run("ReplyToReplyRejected", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(7)).Return(true, nil)
		f.messages.On("GetByID", mock.Anything, int64(3)).Return(&domain.Message{ID: 3, ChannelID: 1, ParentID: int64Ptr(1)}, nil)

		_, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 7, Content: "hi", ParentID: int64Ptr(3)})
		assert.ErrorIs(t, err, domain.ErrInvalidThread)
	})

	t.Run("ParentInOtherChannelRejected", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(7)).Return(true, nil)
		f.messages.On("GetByID", mock.Anything, int64(3)).Return(&domain.Message{ID: 3, ChannelID: 2}, nil)

		_, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 7, Content: "hi", ParentID: int64Ptr(3)})
		assert.ErrorIs(t, err, domain.ErrInvalidThread)
	})

	t.Run("ConcurrentAppendsBroadcastInStoreOrder", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(7)).Return(true, nil)
		var nextID int64
		f.messages.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			nextID++
			args.Get(1).(*domain.Message).ID = nextID
		}).Return(nil)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 7, Content: "hi"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// Subscribers must see appends in the order the store assigned
		// their ids, never interleaved.
		require.Len(t, f.broadcast.created, 20)
		for i, m := range f.broadcast.created {
			assert.Equal(t, int64(i+1), m.ID)
		}
	})

	t.Run("MissingParentRejected", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.members.On("IsMember", mock.Anything, int64(10), int64(7)).Return(true, nil)
		f.messages.On("GetByID", mock.Anything, int64(3)).Return(nil, nil)

		_, err := f.svc.Append(ctx, service.AppendInput{ChannelID: 1, AuthorID: 7, Content: "hi", ParentID: int64Ptr(3)})
		assert.ErrorIs(t, err, domain.ErrInvalidThread)
	})
}

func TestMessageServiceEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(42)).Return(&domain.Message{ID: 42, ChannelID: 1, AuthorID: 7, Content: strPtr("old")}, nil)
		f.messages.On("Update", mock.Anything, mock.Anything).Return(nil)

		msg, err := f.svc.Edit(ctx, 42, 7, "new text")
		assert.NoError(t, err)
		assert.Equal(t, "new text", *msg.Content)
		assert.NotNil(t, msg.EditedAt)
		assert.Len(t, f.broadcast.updated, 1)
	})

	t.Run("ClearingCaptionLeavesContentNil", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(42)).Return(&domain.Message{
			ID: 42, ChannelID: 1, AuthorID: 7,
			Content: strPtr("caption"), AttachmentID: int64Ptr(5), Type: domain.MessageTypeFile,
		}, nil)
		f.messages.On("Update", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Content == nil
		})).Return(nil)

		msg, err := f.svc.Edit(ctx, 42, 7, "   ")
		assert.NoError(t, err)
		assert.Nil(t, msg.Content)
		f.messages.AssertExpectations(t)
	})

	t.Run("NotAuthor", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(42)).Return(&domain.Message{ID: 42, ChannelID: 1, AuthorID: 7}, nil)

		_, err := f.svc.Edit(ctx, 42, 9, "new text")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, f.broadcast.updated)
	})

	t.Run("Missing", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(42)).Return(nil, nil)

		_, err := f.svc.Edit(ctx, 42, 7, "new text")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMessageServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(42)).Return(&domain.Message{ID: 42, ChannelID: 1, AuthorID: 7}, nil)
		f.messages.On("Delete", mock.Anything, int64(42)).Return(nil)

		err := f.svc.Delete(ctx, 42, 7)
		assert.NoError(t, err)
		assert.Equal(t, []int64{42}, f.broadcast.deleted)
	})

	t.Run("AlreadyGoneIsNoOp", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(42)).Return(nil, nil)

		err := f.svc.Delete(ctx, 42, 7)
		assert.NoError(t, err)
		f.messages.AssertNotCalled(t, "Delete", mock.Anything, int64(42))
		assert.Empty(t, f.broadcast.deleted)
	})

	t.Run("NotAuthor", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(42)).Return(&domain.Message{ID: 42, ChannelID: 1, AuthorID: 7}, nil)

		err := f.svc.Delete(ctx, 42, 9)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestMessageServiceListRecent(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyChannelReturnsEmptySlice", func(t *testing.T) {
		f := newMessageFixture()
		f.givenChannel(1, 10)
		f.messages.On("ListRecent", mock.Anything, int64(1), 50).Return(nil, nil)

		msgs, err := f.svc.ListRecent(ctx, 1, 50)
		assert.NoError(t, err)
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)
	})

	t.Run("UnknownChannel", func(t *testing.T) {
		f := newMessageFixture()
		f.channels.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

		_, err := f.svc.ListRecent(ctx, 99, 50)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMessageServiceThreads(t *testing.T) {
	ctx := context.Background()

	t.Run("ListThread", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(1)).Return(&domain.Message{ID: 1, ChannelID: 1}, nil)
		f.messages.On("ListThread", mock.Anything, int64(1)).Return([]*domain.Message{
			{ID: 2, ChannelID: 1, ParentID: int64Ptr(1)},
			{ID: 3, ChannelID: 1, ParentID: int64Ptr(1)},
		}, nil)

		replies, err := f.svc.ListThread(ctx, 1)
		assert.NoError(t, err)
		assert.Len(t, replies, 2)
	})

	t.Run("MissingParent", func(t *testing.T) {
		f := newMessageFixture()
		f.messages.On("GetByID", mock.Anything, int64(1)).Return(nil, nil)

		_, err := f.svc.ListThread(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
