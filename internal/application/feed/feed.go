package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/waveradio/realtime-api/internal/domain"
)

// DefaultWindow is the most-recent notification count retained client-side.
const DefaultWindow = 30

// NotificationRepository is the minimal interface the feed requires from the notification store.
type NotificationRepository interface {
	ListRecent(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, recipientID string, limit int) error
}

// Feed maintains one user's notification list for the session lifetime:
// bounded fetch, decoration, idempotent prepend on push, and the read flag.
// The unread count is always derived from the list, never stored, so it
// cannot drift from the flags.
type Feed struct {
	repo   NotificationRepository
	dec    *Decorator
	userID string
	window int

	mu      sync.Mutex
	items   []domain.Notification
	loading bool
}

func New(repo NotificationRepository, actors ActorResolver, topics TopicDirectory, userID string, window int) *Feed {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Feed{repo: repo, dec: NewDecorator(actors, topics), userID: userID, window: window}
}

func (f *Feed) decorate(ctx context.Context, n *domain.Notification) {
	f.dec.Decorate(ctx, n)
}

// Fetch loads the recent window, decorates every record, and replaces the
// local list wholesale. Records arrive descending by created_at.
func (f *Feed) Fetch(ctx context.Context) error {
	f.mu.Lock()
	f.loading = true
	f.mu.Unlock()

	items, err := f.repo.ListRecent(ctx, f.userID, f.window)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		return fmt.Errorf("list notifications: %w: %v", domain.ErrFetch, err)
	}
	for i := range items {
		f.decorate(ctx, &items[i])
	}
	f.items = items
	return nil
}

// OnPush decorates a pushed raw record and idempotently prepends it, trimming
// to the window. Duplicate delivery of the same id is a no-op, the same guard
// the message store uses. Returns the decorated record and whether it was
// applied.
func (f *Feed) OnPush(raw domain.Notification) (domain.Notification, bool) {
	// Records for another recipient never belong in this feed; the channel is
	// keyed by user, so this only fires on misrouted payloads.
	if raw.RecipientID != f.userID {
		return raw, false
	}
	f.decorate(context.Background(), &raw)

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].NotificationID == raw.NotificationID {
			return raw, false
		}
	}
	f.items = append([]domain.Notification{raw}, f.items...)
	if len(f.items) > f.window {
		f.items = f.items[:f.window]
	}
	return raw, true
}

// MarkRead persists the flag, then mutates the local copy to match.
func (f *Feed) MarkRead(ctx context.Context, notificationID string) error {
	if err := f.repo.MarkRead(ctx, notificationID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].NotificationID == notificationID {
			f.items[i].Read = true
			break
		}
	}
	return nil
}

// MarkAllRead persists, then flips every local copy.
func (f *Feed) MarkAllRead(ctx context.Context) error {
	if err := f.repo.MarkAllRead(ctx, f.userID, f.window); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		f.items[i].Read = true
	}
	return nil
}

// Notifications returns a copy of the list, descending by created_at.
func (f *Feed) Notifications() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// UnreadCount is a pure derivation over the list.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for i := range f.items {
		if !f.items[i].Read {
			count++
		}
	}
	return count
}

func (f *Feed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}
