package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"teamline/internal/domain"
)

// Mocks shared by the service tests.

type MockChannelRepo struct {
	mock.Mock
}

func (m *MockChannelRepo) Create(ctx context.Context, c *domain.Channel) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChannelRepo) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Channel), args.Error(1)
}

func (m *MockChannelRepo) ListForProjects(ctx context.Context, projectIDs []int64) ([]*domain.Channel, error) {
	args := m.Called(ctx, projectIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Channel), args.Error(1)
}

func (m *MockChannelRepo) Rename(ctx context.Context, id int64, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockChannelRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListRecent(ctx context.Context, channelID int64, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, channelID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListThread(ctx context.Context, parentID int64) ([]*domain.Message, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) CountThreadReplies(ctx context.Context, parentID int64) (int, error) {
	args := m.Called(ctx, parentID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepo) Update(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAttachmentRepo struct {
	mock.Mock
}

func (m *MockAttachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAttachmentRepo) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMembershipDirectory struct {
	mock.Mock
}

func (m *MockMembershipDirectory) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipDirectory) ListProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Upsert(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByIDs(ctx context.Context, ids []int64) ([]*domain.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

type MockTypingRepo struct {
	mock.Mock
}

func (m *MockTypingRepo) Set(ctx context.Context, channelID, userID int64, isTyping bool, at time.Time) error {
	args := m.Called(ctx, channelID, userID, isTyping, at)
	return args.Error(0)
}

func (m *MockTypingRepo) ListActive(ctx context.Context, channelID int64, since time.Time) ([]int64, error) {
	args := m.Called(ctx, channelID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockCursorRepo struct {
	mock.Mock
}

func (m *MockCursorRepo) Get(ctx context.Context, channelID, userID int64) (*domain.ReadCursor, error) {
	args := m.Called(ctx, channelID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReadCursor), args.Error(1)
}

func (m *MockCursorRepo) Advance(ctx context.Context, channelID, userID, messageID int64, at time.Time) error {
	args := m.Called(ctx, channelID, userID, messageID, at)
	return args.Error(0)
}

func (m *MockCursorRepo) CountUnread(ctx context.Context, channelID, userID int64) (int, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Int(0), args.Error(1)
}

// recordingBroadcaster captures broadcast calls so tests can assert on
// them without a real hub.
type recordingBroadcaster struct {
	mu       sync.Mutex
	created  []*domain.Message
	updated  []*domain.Message
	deleted  []int64
	typing   []bool
	typingBy []int64
}

func (b *recordingBroadcaster) MessageCreated(m *domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, m)
}

func (b *recordingBroadcaster) MessageUpdated(m *domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updated = append(b.updated, m)
}

func (b *recordingBroadcaster) MessageDeleted(channelID, messageID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, messageID)
}

func (b *recordingBroadcaster) Typing(channelID int64, user *domain.User, isTyping bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typing = append(b.typing, isTyping)
	b.typingBy = append(b.typingBy, user.ID)
}
