package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waveradio/realtime-api/internal/domain"
)

// --- mocks ---

type mockMessageRepo struct{ mock.Mock }

func (m *mockMessageRepo) Put(ctx context.Context, msg *domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}
func (m *mockMessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID)
	if msgs, _ := args.Get(0).([]domain.Message); msgs != nil {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockConversationRepo struct{ mock.Mock }

func (m *mockConversationRepo) Get(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if c, _ := args.Get(0).(*domain.Conversation); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConversationRepo) GetOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if c, _ := args.Get(0).(*domain.Conversation); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConversationRepo) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	return m.Called(ctx, conversationID, at).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishMessage(ctx context.Context, msg *domain.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type stubActors struct{}

func (stubActors) Resolve(ctx context.Context, userID string) domain.ActorIdentity {
	return domain.ActorIdentity{UserID: userID, DisplayName: "user-" + userID}
}

// --- helpers ---

func newTestService(mr *mockMessageRepo, cr *mockConversationRepo, pub *mockPublisher) Service {
	return NewService(mr, cr, pub, stubActors{}, nil, 0)
}

func conv(id, a, b string) *domain.Conversation {
	return &domain.Conversation{
		ConversationID: id,
		Participant1ID: a,
		Participant2ID: b,
	}
}

// --- Send ---

func TestSend_MissingRecipient_NoIO(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	_, err := newTestService(mr, cr, pub).Send(context.Background(), "u1", domain.SendMessageRequest{
		Content: "hi",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	mr.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything)
}

func TestSend_EmptyContent_NoIO(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	_, err := newTestService(mr, cr, pub).Send(context.Background(), "u1", domain.SendMessageRequest{
		RecipientID: "u2",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	mr.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSend_SelfRecipient_Rejected(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	_, err := newTestService(mr, cr, pub).Send(context.Background(), "u1", domain.SendMessageRequest{
		RecipientID: "u1",
		Content:     "hi",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSend_PersistsAndPublishesEcho(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	cr.On("Get", mock.Anything, "c1").Return(conv("c1", "u1", "u2"), nil)
	mr.On("Put", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	pub.On("PublishMessage", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	cr.On("TouchLastMessage", mock.Anything, "c1", mock.Anything).Return(nil)

	m, err := newTestService(mr, cr, pub).Send(context.Background(), "u1", domain.SendMessageRequest{
		ConversationID: "c1",
		RecipientID:    "u2",
		Content:        "hi",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, m.MessageID)
	assert.Equal(t, "u1", m.SenderID)
	assert.Equal(t, "u2", m.RecipientID)
	assert.Equal(t, "user-u1", m.Sender.DisplayName)
	pub.AssertCalled(t, "PublishMessage", mock.Anything, mock.Anything)
	cr.AssertCalled(t, "TouchLastMessage", mock.Anything, "c1", m.CreatedAt)
}

func TestSend_NoConversationID_CreatedLazily(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	cr.On("GetOrCreate", mock.Anything, "u1", "u2").Return(conv("c-new", "u1", "u2"), nil)
	mr.On("Put", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishMessage", mock.Anything, mock.Anything).Return(nil)
	cr.On("TouchLastMessage", mock.Anything, "c-new", mock.Anything).Return(nil)

	m, err := newTestService(mr, cr, pub).Send(context.Background(), "u1", domain.SendMessageRequest{
		RecipientID: "u2",
		Content:     "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, "c-new", m.ConversationID)
}

func TestSend_PersistFailure_NoBroadcast(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	cr.On("Get", mock.Anything, "c1").Return(conv("c1", "u1", "u2"), nil)
	mr.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	_, err := newTestService(mr, cr, pub).Send(context.Background(), "u1", domain.SendMessageRequest{
		ConversationID: "c1",
		RecipientID:    "u2",
		Content:        "hi",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSend))
	pub.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything)
	cr.AssertNotCalled(t, "TouchLastMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_TouchFailure_SendStillSucceeds(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	cr.On("Get", mock.Anything, "c1").Return(conv("c1", "u1", "u2"), nil)
	mr.On("Put", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishMessage", mock.Anything, mock.Anything).Return(nil)
	cr.On("TouchLastMessage", mock.Anything, "c1", mock.Anything).Return(errors.New("throttled"))

	m, err := newTestService(mr, cr, pub).Send(context.Background(), "u1", domain.SendMessageRequest{
		ConversationID: "c1",
		RecipientID:    "u2",
		Content:        "hi",
	})

	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestSend_RecipientNotParticipant_Rejected(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	cr.On("Get", mock.Anything, "c1").Return(conv("c1", "u1", "u2"), nil)

	_, err := newTestService(mr, cr, pub).Send(context.Background(), "u1", domain.SendMessageRequest{
		ConversationID: "c1",
		RecipientID:    "u3",
		Content:        "hi",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

// --- History ---

func TestHistory_NonParticipant_Forbidden(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	cr.On("Get", mock.Anything, "c1").Return(conv("c1", "u1", "u2"), nil)

	_, err := newTestService(mr, cr, pub).History(context.Background(), "c1", "intruder")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	mr.AssertNotCalled(t, "ListByConversation", mock.Anything, mock.Anything)
}

func TestHistory_QueryFailure_WrappedAsFetchError(t *testing.T) {
	mr, cr, pub := &mockMessageRepo{}, &mockConversationRepo{}, &mockPublisher{}

	cr.On("Get", mock.Anything, "c1").Return(conv("c1", "u1", "u2"), nil)
	mr.On("ListByConversation", mock.Anything, "c1").Return(nil, errors.New("timeout"))

	_, err := newTestService(mr, cr, pub).History(context.Background(), "c1", "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFetch))
}
