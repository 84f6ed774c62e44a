package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"teamline/internal/domain"
	"teamline/internal/service"
)

func TestTypingServiceSetTyping(t *testing.T) {
	ctx := context.Background()

	t.Run("WriteAndBroadcast", func(t *testing.T) {
		typingRepo := new(MockTypingRepo)
		users := new(MockUserRepo)
		b := &recordingBroadcaster{}
		svc := service.NewTypingService(typingRepo, users, b, 6*time.Second, zerolog.Nop())

		typingRepo.On("Set", mock.Anything, int64(1), int64(7), true, mock.Anything).Return(nil)
		users.On("GetByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, Username: "ann"}, nil)

		svc.SetTyping(ctx, 1, 7, true)
		assert.Equal(t, []bool{true}, b.typing)
		assert.Equal(t, []int64{7}, b.typingBy)
	})

	t.Run("StoreFailureIsSwallowed", func(t *testing.T) {
		typingRepo := new(MockTypingRepo)
		users := new(MockUserRepo)
		b := &recordingBroadcaster{}
		svc := service.NewTypingService(typingRepo, users, b, 6*time.Second, zerolog.Nop())

		typingRepo.On("Set", mock.Anything, int64(1), int64(7), true, mock.Anything).Return(errors.New("store down"))

		// Must not panic or broadcast; a missing indicator is acceptable.
		svc.SetTyping(ctx, 1, 7, true)
		assert.Empty(t, b.typing)
	})

	t.Run("UserLookupFailureFallsBackToBareID", func(t *testing.T) {
		typingRepo := new(MockTypingRepo)
		users := new(MockUserRepo)
		b := &recordingBroadcaster{}
		svc := service.NewTypingService(typingRepo, users, b, 6*time.Second, zerolog.Nop())

		typingRepo.On("Set", mock.Anything, int64(1), int64(7), false, mock.Anything).Return(nil)
		users.On("GetByID", mock.Anything, int64(7)).Return(nil, errors.New("store down"))

		svc.SetTyping(ctx, 1, 7, false)
		assert.Equal(t, []int64{7}, b.typingBy)
		assert.Equal(t, []bool{false}, b.typing)
	})
}

func TestTypingServiceListTypingUsers(t *testing.T) {
	ctx := context.Background()
	ttl := 6 * time.Second

	t.Run("ExcludesCaller", func(t *testing.T) {
		typingRepo := new(MockTypingRepo)
		users := new(MockUserRepo)
		svc := service.NewTypingService(typingRepo, users, &recordingBroadcaster{}, ttl, zerolog.Nop())

		typingRepo.On("ListActive", mock.Anything, int64(1), mock.Anything).Return([]int64{7, 8}, nil)
		users.On("GetByIDs", mock.Anything, []int64{8}).Return([]*domain.User{{ID: 8, Username: "bob"}}, nil)

		res, err := svc.ListTypingUsers(ctx, 1, 7)
		assert.NoError(t, err)
		assert.Len(t, res, 1)
		assert.Equal(t, int64(8), res[0].ID)
	})

	t.Run("OnlyCallerTypingReturnsEmpty", func(t *testing.T) {
		typingRepo := new(MockTypingRepo)
		users := new(MockUserRepo)
		svc := service.NewTypingService(typingRepo, users, &recordingBroadcaster{}, ttl, zerolog.Nop())

		typingRepo.On("ListActive", mock.Anything, int64(1), mock.Anything).Return([]int64{7}, nil)

		res, err := svc.ListTypingUsers(ctx, 1, 7)
		assert.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)
		users.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
	})

	t.Run("StalenessBoundIsTTLBehindNow", func(t *testing.T) {
		typingRepo := new(MockTypingRepo)
		users := new(MockUserRepo)
		svc := service.NewTypingService(typingRepo, users, &recordingBroadcaster{}, ttl, zerolog.Nop())

		typingRepo.On("ListActive", mock.Anything, int64(1), mock.MatchedBy(func(since time.Time) bool {
			diff := time.Until(since) + ttl
			return diff > -time.Second && diff < time.Second
		})).Return([]int64{}, nil)

		_, err := svc.ListTypingUsers(ctx, 1, 7)
		assert.NoError(t, err)
		typingRepo.AssertExpectations(t)
	})
}
