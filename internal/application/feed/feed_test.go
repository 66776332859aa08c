package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waveradio/realtime-api/internal/domain"
)

// --- mocks ---

type mockNotificationRepo struct{ mock.Mock }

func (m *mockNotificationRepo) ListRecent(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID, limit)
	if ns, _ := args.Get(0).([]domain.Notification); ns != nil {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationRepo) MarkRead(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}
func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, recipientID string, limit int) error {
	return m.Called(ctx, recipientID, limit).Error(0)
}

type stubActors struct{}

func (stubActors) Resolve(_ context.Context, userID string) domain.ActorIdentity {
	if userID == "ghost" {
		return domain.FallbackActor(userID)
	}
	return domain.ActorIdentity{UserID: userID, DisplayName: "user-" + userID}
}

type stubTopics struct{ fail bool }

func (s stubTopics) Get(_ context.Context, topicID string) (*domain.Topic, error) {
	if s.fail {
		return nil, errors.New("topic store down")
	}
	return &domain.Topic{TopicID: topicID, Title: "Friday Playlist"}, nil
}

// --- helpers ---

func newFeed(repo *mockNotificationRepo) *Feed {
	return New(repo, stubActors{}, stubTopics{}, "u1", 5)
}

func notif(id string, typ domain.NotificationType, read bool, at time.Time) domain.Notification {
	return domain.Notification{
		NotificationID: id,
		Type:           typ,
		RecipientID:    "u1",
		ActorID:        "u2",
		TopicID:        "t1",
		PostID:         "p1",
		Read:           read,
		CreatedAt:      at,
	}
}

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func unreadInvariantHolds(t *testing.T, f *Feed) {
	t.Helper()
	count := 0
	for _, n := range f.Notifications() {
		if !n.Read {
			count++
		}
	}
	assert.Equal(t, count, f.UnreadCount())
}

// --- tests ---

func TestFetch_ReplacesAndDecorates(t *testing.T) {
	repo := &mockNotificationRepo{}
	f := newFeed(repo)

	repo.On("ListRecent", mock.Anything, "u1", 5).Return([]domain.Notification{
		notif("n2", domain.NotificationLike, false, t0.Add(time.Hour)),
		notif("n1", domain.NotificationReply, true, t0),
	}, nil)

	require.NoError(t, f.Fetch(context.Background()))

	got := f.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, `user-u2 liked your post in "Friday Playlist"`, got[0].ContentText)
	assert.Equal(t, `user-u2 replied to your post in "Friday Playlist"`, got[1].ContentText)
	assert.Equal(t, "/forum/topic/t1#post-p1", got[0].Link)
	require.NotNil(t, got[0].Actor)
	assert.Equal(t, "user-u2", got[0].Actor.DisplayName)
	unreadInvariantHolds(t, f)
}

func TestFetch_Failure_WrappedAsFetchError(t *testing.T) {
	repo := &mockNotificationRepo{}
	f := newFeed(repo)

	repo.On("ListRecent", mock.Anything, "u1", 5).Return(nil, errors.New("timeout"))

	err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFetch))
	assert.False(t, f.Loading())
}

func TestOnPush_IdempotentPrepend(t *testing.T) {
	f := newFeed(&mockNotificationRepo{})

	n := notif("n1", domain.NotificationMention, false, t0)
	_, applied := f.OnPush(n)
	assert.True(t, applied)
	_, applied = f.OnPush(n)
	assert.False(t, applied)

	require.Len(t, f.Notifications(), 1)
	unreadInvariantHolds(t, f)
}

func TestOnPush_PrependsNewest(t *testing.T) {
	f := newFeed(&mockNotificationRepo{})

	f.OnPush(notif("n1", domain.NotificationReply, false, t0))
	f.OnPush(notif("n2", domain.NotificationLike, false, t0.Add(time.Minute)))

	got := f.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, "n2", got[0].NotificationID)
}

func TestOnPush_TrimsToWindow(t *testing.T) {
	f := newFeed(&mockNotificationRepo{})

	for i := 0; i < 8; i++ {
		f.OnPush(notif(fmt.Sprintf("n%d", i), domain.NotificationReply, false, t0.Add(time.Duration(i)*time.Minute)))
	}

	assert.Len(t, f.Notifications(), 5)
	assert.Equal(t, 5, f.UnreadCount())
}

func TestOnPush_OtherRecipient_Dropped(t *testing.T) {
	f := newFeed(&mockNotificationRepo{})

	n := notif("n1", domain.NotificationReply, false, t0)
	n.RecipientID = "someone-else"
	_, applied := f.OnPush(n)

	assert.False(t, applied)
	assert.Empty(t, f.Notifications())
}

// markAllRead on a feed with 3 unread of 5 total: unread count drops to zero
// and all 5 records carry read=true.
func TestMarkAllRead_AllFiveRead(t *testing.T) {
	repo := &mockNotificationRepo{}
	f := newFeed(repo)

	for i := 0; i < 5; i++ {
		f.OnPush(notif(fmt.Sprintf("n%d", i), domain.NotificationReply, i >= 3, t0.Add(time.Duration(i)*time.Minute)))
	}
	require.Equal(t, 3, f.UnreadCount())

	repo.On("MarkAllRead", mock.Anything, "u1", 5).Return(nil)
	require.NoError(t, f.MarkAllRead(context.Background()))

	assert.Equal(t, 0, f.UnreadCount())
	for _, n := range f.Notifications() {
		assert.True(t, n.Read)
	}
	unreadInvariantHolds(t, f)
}

func TestMarkRead_SingleRecord(t *testing.T) {
	repo := &mockNotificationRepo{}
	f := newFeed(repo)

	f.OnPush(notif("n1", domain.NotificationReply, false, t0))
	f.OnPush(notif("n2", domain.NotificationLike, false, t0.Add(time.Minute)))

	repo.On("MarkRead", mock.Anything, "n1").Return(nil)
	require.NoError(t, f.MarkRead(context.Background(), "n1"))

	assert.Equal(t, 1, f.UnreadCount())
	unreadInvariantHolds(t, f)
}

func TestMarkRead_PersistFailure_LocalUntouched(t *testing.T) {
	repo := &mockNotificationRepo{}
	f := newFeed(repo)

	f.OnPush(notif("n1", domain.NotificationReply, false, t0))

	repo.On("MarkRead", mock.Anything, "n1").Return(errors.New("dynamo down"))
	require.Error(t, f.MarkRead(context.Background(), "n1"))

	assert.Equal(t, 1, f.UnreadCount())
}

// --- decoration rules ---

func TestDecorate_PerType(t *testing.T) {
	f := newFeed(&mockNotificationRepo{})

	cases := []struct {
		typ  domain.NotificationType
		want string
		link string
	}{
		{domain.NotificationReply, `user-u2 replied to your post in "Friday Playlist"`, "/forum/topic/t1#post-p1"},
		{domain.NotificationLike, `user-u2 liked your post in "Friday Playlist"`, "/forum/topic/t1#post-p1"},
		{domain.NotificationMention, "user-u2 mentioned you", "/forum/topic/t1#post-p1"},
		{domain.NotificationMentionReply, `user-u2 mentioned you in a reply in "Friday Playlist"`, "/forum/topic/t1#post-p1"},
		{domain.NotificationMentionPost, `user-u2 mentioned you in a post in "Friday Playlist"`, "/forum/topic/t1#post-p1"},
		{domain.NotificationQuote, `user-u2 quoted your post in "Friday Playlist"`, "/forum/topic/t1#post-p1"},
		{domain.NotificationTag, `user-u2 tagged you in "Friday Playlist"`, "/forum/topic/t1#post-p1"},
		{domain.NotificationFollow, "user-u2 followed you", "/profile/u2"},
		{domain.NotificationNewPost, `user-u2 posted in "Friday Playlist"`, "/forum/topic/t1#post-p1"},
	}
	for _, tc := range cases {
		n := notif("n-"+string(tc.typ), tc.typ, false, t0)
		f.decorate(context.Background(), &n)
		assert.Equal(t, tc.want, n.ContentText, string(tc.typ))
		assert.Equal(t, tc.link, n.Link, string(tc.typ))
	}
}

func TestDecorate_System_PreviewVerbatim(t *testing.T) {
	f := newFeed(&mockNotificationRepo{})

	n := notif("n1", domain.NotificationSystem, false, t0)
	n.ActorID = ""
	n.ContentPreview = "Transmitter maintenance tonight at 02:00 UTC"
	f.decorate(context.Background(), &n)

	assert.Equal(t, "Transmitter maintenance tonight at 02:00 UTC", n.ContentText)
	assert.Nil(t, n.Actor)
}

func TestDecorate_TopicLookupFailure_Fallback(t *testing.T) {
	f := New(&mockNotificationRepo{}, stubActors{}, stubTopics{fail: true}, "u1", 5)

	n := notif("n1", domain.NotificationReply, false, t0)
	f.decorate(context.Background(), &n)

	assert.Equal(t, `user-u2 replied to your post in "a discussion"`, n.ContentText)
}

func TestDecorate_ActorLookupFailure_Fallback(t *testing.T) {
	f := newFeed(&mockNotificationRepo{})

	n := notif("n1", domain.NotificationFollow, false, t0)
	n.ActorID = "ghost"
	f.decorate(context.Background(), &n)

	assert.Equal(t, "Someone followed you", n.ContentText)
}
