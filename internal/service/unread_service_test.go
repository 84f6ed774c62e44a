package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"teamline/internal/domain"
	"teamline/internal/service"
)

func TestUnreadServiceMarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("AdvancesCursor", func(t *testing.T) {
		cursors := new(MockCursorRepo)
		messages := new(MockMessageRepo)
		svc := service.NewUnreadService(cursors, messages, zerolog.Nop())

		messages.On("GetByID", mock.Anything, int64(42)).Return(&domain.Message{ID: 42, ChannelID: 1}, nil)
		cursors.On("Advance", mock.Anything, int64(1), int64(7), int64(42), mock.Anything).Return(nil)

		err := svc.MarkRead(ctx, 1, 7, 42)
		assert.NoError(t, err)
		cursors.AssertExpectations(t)
	})

	t.Run("MessageInOtherChannel", func(t *testing.T) {
		cursors := new(MockCursorRepo)
		messages := new(MockMessageRepo)
		svc := service.NewUnreadService(cursors, messages, zerolog.Nop())

		messages.On("GetByID", mock.Anything, int64(42)).Return(&domain.Message{ID: 42, ChannelID: 2}, nil)

		err := svc.MarkRead(ctx, 1, 7, 42)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		cursors.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingMessage", func(t *testing.T) {
		cursors := new(MockCursorRepo)
		messages := new(MockMessageRepo)
		svc := service.NewUnreadService(cursors, messages, zerolog.Nop())

		messages.On("GetByID", mock.Anything, int64(42)).Return(nil, nil)

		err := svc.MarkRead(ctx, 1, 7, 42)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestUnreadServiceUnreadCounts(t *testing.T) {
	ctx := context.Background()

	t.Run("PerChannelCounts", func(t *testing.T) {
		cursors := new(MockCursorRepo)
		messages := new(MockMessageRepo)
		svc := service.NewUnreadService(cursors, messages, zerolog.Nop())

		cursors.On("CountUnread", mock.Anything, int64(1), int64(7)).Return(5, nil)
		cursors.On("CountUnread", mock.Anything, int64(2), int64(7)).Return(0, nil)

		counts, err := svc.UnreadCounts(ctx, 7, []int64{1, 2})
		assert.NoError(t, err)
		assert.Equal(t, map[int64]int{1: 5, 2: 0}, counts)
	})

	t.Run("FailedChannelReportsZero", func(t *testing.T) {
		cursors := new(MockCursorRepo)
		messages := new(MockMessageRepo)
		svc := service.NewUnreadService(cursors, messages, zerolog.Nop())

		cursors.On("CountUnread", mock.Anything, int64(1), int64(7)).Return(3, nil)
		cursors.On("CountUnread", mock.Anything, int64(2), int64(7)).Return(0, errors.New("store down"))

		counts, err := svc.UnreadCounts(ctx, 7, []int64{1, 2})
		assert.NoError(t, err)
		assert.Equal(t, map[int64]int{1: 3, 2: 0}, counts)
	})
}
