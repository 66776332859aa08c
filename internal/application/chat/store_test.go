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

type mockService struct{ mock.Mock }

func (m *mockService) Conversation(ctx context.Context, conversationID, viewerID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, viewerID)
	if c, _ := args.Get(0).(*domain.Conversation); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockService) History(ctx context.Context, conversationID, viewerID string) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, viewerID)
	if msgs, _ := args.Get(0).([]domain.Message); msgs != nil {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockService) Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.Message, error) {
	args := m.Called(ctx, senderID, req)
	if msg, _ := args.Get(0).(*domain.Message); msg != nil {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func msg(id, convID string, at time.Time) domain.Message {
	return domain.Message{
		MessageID:      id,
		ConversationID: convID,
		SenderID:       "u2",
		RecipientID:    "u1",
		Content:        "m-" + id,
		CreatedAt:      at,
	}
}

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMerge_Idempotent(t *testing.T) {
	store := NewStore(&mockService{}, "u1")
	store.SetActive("c1")

	m := msg("m1", "c1", t0)
	store.Merge(m)
	store.Merge(m)

	require.Len(t, store.Messages(), 1)
}

func TestMerge_InsertsInTimestampOrder(t *testing.T) {
	store := NewStore(&mockService{}, "u1")
	store.SetActive("c1")

	// Arrival order deliberately scrambled.
	store.Merge(msg("m3", "c1", t0.Add(3*time.Second)))
	store.Merge(msg("m1", "c1", t0.Add(1*time.Second)))
	store.Merge(msg("m2", "c1", t0.Add(2*time.Second)))

	got := store.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].MessageID)
	assert.Equal(t, "m2", got[1].MessageID)
	assert.Equal(t, "m3", got[2].MessageID)
}

func TestMerge_OtherConversation_Dropped(t *testing.T) {
	store := NewStore(&mockService{}, "u1")
	store.SetActive("c1")

	store.Merge(msg("m1", "c2", t0))

	assert.Empty(t, store.Messages())
}

// Send on an empty conversation applies the confirmed record, and the push
// echo of the same id leaves the list length at 1.
func TestSend_ThenEcho_SingleOccurrence(t *testing.T) {
	svc := &mockService{}
	store := NewStore(svc, "u1")
	store.SetActive("c1")

	confirmed := msg("m1", "c1", t0)
	confirmed.SenderID = "u1"
	confirmed.RecipientID = "u2"
	confirmed.Content = "hi"
	svc.On("Send", mock.Anything, "u1", mock.Anything).Return(&confirmed, nil)

	m, err := store.Send(context.Background(), domain.SendMessageRequest{RecipientID: "u2", Content: "hi"})
	require.NoError(t, err)

	got := store.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Content)
	assert.Equal(t, "u1", got[0].SenderID)

	store.Merge(*m) // push echo

	require.Len(t, store.Messages(), 1)
}

func TestSend_UsesActiveConversationByDefault(t *testing.T) {
	svc := &mockService{}
	store := NewStore(svc, "u1")
	store.SetActive("c1")

	confirmed := msg("m1", "c1", t0)
	svc.On("Send", mock.Anything, "u1", domain.SendMessageRequest{
		ConversationID: "c1", RecipientID: "u2", Content: "hi",
	}).Return(&confirmed, nil)

	_, err := store.Send(context.Background(), domain.SendMessageRequest{RecipientID: "u2", Content: "hi"})
	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestSend_Failure_LocalStateUntouched(t *testing.T) {
	svc := &mockService{}
	store := NewStore(svc, "u1")
	store.SetActive("c1")
	store.Merge(msg("m1", "c1", t0))

	svc.On("Send", mock.Anything, "u1", mock.Anything).Return(nil, domain.ErrSend)

	_, err := store.Send(context.Background(), domain.SendMessageRequest{RecipientID: "u2", Content: "hi"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSend))
	assert.Len(t, store.Messages(), 1)
	assert.False(t, store.Sending())
}

// Push delivers id=5 before a pending fetch resolves with [id=3, id=5]: the
// final list is [3, 5] with no duplicate.
func TestFetch_MergesWithEarlierPush(t *testing.T) {
	svc := &mockService{}
	store := NewStore(svc, "u1")
	store.SetActive("c1")

	m3 := msg("3", "c1", t0.Add(1*time.Second))
	m5 := msg("5", "c1", t0.Add(2*time.Second))

	store.Merge(m5) // push lands first

	svc.On("History", mock.Anything, "c1", "u1").Return([]domain.Message{m3, m5}, nil)
	require.NoError(t, store.Fetch(context.Background()))

	got := store.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].MessageID)
	assert.Equal(t, "5", got[1].MessageID)
}

func TestFetch_StaleResult_Discarded(t *testing.T) {
	svc := &mockService{}
	store := NewStore(svc, "u1")
	store.SetActive("c1")

	fetchEntered := make(chan struct{})
	proceed := make(chan struct{})
	svc.On("History", mock.Anything, "c1", "u1").
		Run(func(mock.Arguments) {
			close(fetchEntered)
			<-proceed
		}).
		Return([]domain.Message{msg("old", "c1", t0)}, nil)

	done := make(chan error, 1)
	go func() { done <- store.Fetch(context.Background()) }()

	<-fetchEntered
	store.SetActive("c2") // user switched away mid-flight
	close(proceed)
	require.NoError(t, <-done)

	assert.Empty(t, store.Messages())
	assert.Equal(t, "c2", store.ActiveConversation())
}

// A fetch that fails after the user switched away is stale like any other
// result; its error belongs to the abandoned conversation and is dropped.
func TestFetch_StaleFailure_Discarded(t *testing.T) {
	svc := &mockService{}
	store := NewStore(svc, "u1")
	store.SetActive("c1")

	fetchEntered := make(chan struct{})
	proceed := make(chan struct{})
	svc.On("History", mock.Anything, "c1", "u1").
		Run(func(mock.Arguments) {
			close(fetchEntered)
			<-proceed
		}).
		Return(nil, domain.ErrFetch)

	done := make(chan error, 1)
	go func() { done <- store.Fetch(context.Background()) }()

	<-fetchEntered
	store.SetActive("c2")
	close(proceed)

	require.NoError(t, <-done)
	assert.False(t, store.Loading())
}

func TestFetch_Error_Propagates(t *testing.T) {
	svc := &mockService{}
	store := NewStore(svc, "u1")
	store.SetActive("c1")

	svc.On("History", mock.Anything, "c1", "u1").Return(nil, domain.ErrFetch)

	err := store.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFetch))
	assert.False(t, store.Loading())
}

func TestSetActive_DiscardsList(t *testing.T) {
	store := NewStore(&mockService{}, "u1")
	store.SetActive("c1")
	store.Merge(msg("m1", "c1", t0))

	store.SetActive("c2")

	assert.Empty(t, store.Messages())
}
