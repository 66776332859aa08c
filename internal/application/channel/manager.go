package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/application/chat"
	"github.com/waveradio/realtime-api/internal/application/feed"
	"github.com/waveradio/realtime-api/internal/application/typing"
	"github.com/waveradio/realtime-api/internal/domain"
	"github.com/waveradio/realtime-api/internal/infrastructure/push"
)

// SubscriberFactory hands out one push subscriber per attachment. The manager
// owns the returned subscriber and closes it on teardown.
type SubscriberFactory interface {
	NewSubscriber() (message.Subscriber, error)
}

// Sink receives the events a drain loop accepted, for forwarding to the
// client. Typing state changes travel through the tracker's own OnChange
// callback because TTL expiry flips state without any inbound event.
type Sink interface {
	MessageArrived(m domain.Message)
	NotificationArrived(n domain.Notification)
}

// Manager owns every subscribe/unsubscribe call for one client session: the
// active conversation's message and typing channels, plus the per-user
// notification channel. It guarantees at most one live conversation
// subscription at a time — attaching to a new conversation tears the old one
// down first — and routes decoded events to the store, tracker and feed.
// Malformed payloads are dropped with a warning, never raised.
//
// There is no reconnect policy: a failed subscription degrades the session to
// "no live updates" until the caller attaches again.
type Manager struct {
	factory SubscriberFactory
	store   *chat.Store
	tracker *typing.Tracker
	feed    *feed.Feed
	sink    Sink

	mu          sync.Mutex
	convID      string
	convSub     message.Subscriber
	convCancel  context.CancelFunc
	notifSub    message.Subscriber
	notifCancel context.CancelFunc
}

func NewManager(factory SubscriberFactory, store *chat.Store, tracker *typing.Tracker, fd *feed.Feed, sink Sink) *Manager {
	return &Manager{factory: factory, store: store, tracker: tracker, feed: fd, sink: sink}
}

// Attach subscribes the session to a conversation's message and typing
// channels. Attaching to the already-active conversation returns the existing
// subscription untouched; attaching to a different one detaches it first.
func (m *Manager) Attach(ctx context.Context, conversationID, peerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.convID == conversationID && m.convSub != nil {
		return nil
	}
	m.detachConversationLocked(ctx)

	// Retarget the session before attempting the subscription: when it fails,
	// the attach degrades to "no live updates" but still fetches and renders
	// the requested conversation, not the previous one.
	m.store.SetActive(conversationID)
	m.tracker.Bind(ctx, conversationID, peerID)

	sub, err := m.factory.NewSubscriber()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChannel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	messages, err := sub.Subscribe(subCtx, push.MessagesTopic(conversationID))
	if err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("subscribe messages: %w: %v", domain.ErrChannel, err)
	}
	signals, err := sub.Subscribe(subCtx, push.TypingTopic(conversationID))
	if err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("subscribe typing: %w: %v", domain.ErrChannel, err)
	}

	m.convID = conversationID
	m.convSub = sub
	m.convCancel = cancel

	go m.drainMessages(messages)
	go m.drainTyping(signals)
	return nil
}

// AttachNotifications subscribes the session to its user's notification
// channel. Idempotent for the session lifetime.
func (m *Manager) AttachNotifications(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.notifSub != nil {
		return nil
	}
	sub, err := m.factory.NewSubscriber()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChannel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	notifications, err := sub.Subscribe(subCtx, push.NotificationsTopic(userID))
	if err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w: %v", domain.ErrChannel, err)
	}

	m.notifSub = sub
	m.notifCancel = cancel

	go m.drainNotifications(notifications)
	return nil
}

// Detach tears down the conversation subscription. The typing tracker is
// reset so no TTL timer outlives the conversation. The notification
// subscription is unaffected; it is keyed by user, not conversation.
func (m *Manager) Detach(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachConversationLocked(ctx)
}

func (m *Manager) detachConversationLocked(ctx context.Context) {
	if m.convCancel != nil {
		m.convCancel()
		m.convCancel = nil
	}
	if m.convSub != nil {
		if err := m.convSub.Close(); err != nil {
			log.Warn().Str("conversation_id", m.convID).Err(err).Msg("conversation subscriber close failed")
		}
		m.convSub = nil
	}
	if m.convID != "" {
		m.tracker.Reset(ctx)
		m.convID = ""
	}
}

// Close tears down everything the session holds.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachConversationLocked(ctx)
	if m.notifCancel != nil {
		m.notifCancel()
		m.notifCancel = nil
	}
	if m.notifSub != nil {
		if err := m.notifSub.Close(); err != nil {
			log.Warn().Err(err).Msg("notification subscriber close failed")
		}
		m.notifSub = nil
	}
}

// ActiveConversation returns the id of the attached conversation, if any.
func (m *Manager) ActiveConversation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.convID
}

// Drain loops exit when cancellation closes their channel, which makes
// teardown a single cancel+close instead of unregistering handlers.

func (m *Manager) drainMessages(messages <-chan *message.Message) {
	for msg := range messages {
		var record domain.Message
		if err := json.Unmarshal(msg.Payload, &record); err != nil {
			log.Warn().Err(err).Msg("malformed message payload dropped")
			msg.Ack()
			continue
		}
		if record.MessageID == "" || record.ConversationID == "" {
			log.Warn().Msg("message payload missing required fields, dropped")
			msg.Ack()
			continue
		}
		if m.store.Merge(record) && m.sink != nil {
			m.sink.MessageArrived(record)
		}
		msg.Ack()
	}
}

func (m *Manager) drainTyping(signals <-chan *message.Message) {
	for msg := range signals {
		var sig domain.TypingSignal
		if err := json.Unmarshal(msg.Payload, &sig); err != nil {
			log.Warn().Err(err).Msg("malformed typing payload dropped")
			msg.Ack()
			continue
		}
		if sig.UserID == "" || sig.ConversationID == "" {
			log.Warn().Msg("typing payload missing required fields, dropped")
			msg.Ack()
			continue
		}
		m.tracker.OnSignal(sig)
		msg.Ack()
	}
}

func (m *Manager) drainNotifications(notifications <-chan *message.Message) {
	for msg := range notifications {
		var raw domain.Notification
		if err := json.Unmarshal(msg.Payload, &raw); err != nil {
			log.Warn().Err(err).Msg("malformed notification payload dropped")
			msg.Ack()
			continue
		}
		if raw.NotificationID == "" || !raw.Type.Valid() {
			log.Warn().Str("type", string(raw.Type)).Msg("notification payload missing required fields, dropped")
			msg.Ack()
			continue
		}
		if decorated, applied := m.feed.OnPush(raw); applied && m.sink != nil {
			m.sink.NotificationArrived(decorated)
		}
		msg.Ack()
	}
}
