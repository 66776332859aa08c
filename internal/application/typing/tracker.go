package typing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/domain"
)

// DefaultTTL is how long a peer's Start signal stays valid without a refresh.
// Expiry is the implicit stop: it covers peer disconnects and dropped Stop
// signals, and is the protocol's liveness guarantee.
const DefaultTTL = 3 * time.Second

// SignalPublisher broadcasts ephemeral typing signals on the conversation's
// typing channel.
type SignalPublisher interface {
	PublishTyping(ctx context.Context, sig domain.TypingSignal) error
}

// Tracker is the per-conversation typing state machine, two independent
// halves: the local user's outgoing signal (Start sent once per contiguous
// typing burst) and the peer's incoming state (boolean plus TTL timer).
// Publish failures are silent degradations; a missing indicator is acceptable
// and never surfaced as an error.
type Tracker struct {
	pub      SignalPublisher
	selfID   string
	selfName string
	ttl      time.Duration

	mu             sync.Mutex
	conversationID string
	peerID         string
	typing         bool // outgoing burst state
	otherTyping    bool
	otherName      string
	timer          *time.Timer
	timerGen       uint64
	notify         func(isTyping bool, name string)
}

func NewTracker(pub SignalPublisher, selfID, selfName string, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{pub: pub, selfID: selfID, selfName: selfName, ttl: ttl}
}

// OnChange registers a callback fired whenever the peer's derived typing state
// changes, including TTL expiry.
func (t *Tracker) OnChange(fn func(isTyping bool, name string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notify = fn
}

// Bind points the tracker at a conversation and its peer, resetting all state
// for the previous one, outgoing burst included.
func (t *Tracker) Bind(ctx context.Context, conversationID, peerID string) {
	t.Reset(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conversationID = conversationID
	t.peerID = peerID
}

// KeystrokeObserved reports local composition activity. Only the first
// keystroke of a burst sends Start; repeats while already typing are no-ops.
func (t *Tracker) KeystrokeObserved(ctx context.Context) {
	t.mu.Lock()
	if t.typing || t.conversationID == "" {
		t.mu.Unlock()
		return
	}
	t.typing = true
	sig := t.signalLocked(domain.TypingStart)
	t.mu.Unlock()

	t.publish(ctx, sig)
}

// InputCleared reports that the compose input became empty.
func (t *Tracker) InputCleared(ctx context.Context) {
	t.stopBurst(ctx)
}

// MessageSent reports that the composed message went out.
func (t *Tracker) MessageSent(ctx context.Context) {
	t.stopBurst(ctx)
}

// stopBurst sends Stop at most once per burst; a no-op when not typing.
func (t *Tracker) stopBurst(ctx context.Context) {
	t.mu.Lock()
	if !t.typing {
		t.mu.Unlock()
		return
	}
	t.typing = false
	sig := t.signalLocked(domain.TypingStop)
	t.mu.Unlock()

	t.publish(ctx, sig)
}

// OnSignal consumes a pushed typing signal. Signals from any user other than
// the bound peer are ignored; a conversation is strictly two-party.
func (t *Tracker) OnSignal(sig domain.TypingSignal) {
	t.mu.Lock()
	if sig.UserID != t.peerID || sig.ConversationID != t.conversationID {
		t.mu.Unlock()
		return
	}

	switch sig.Kind {
	case domain.TypingStart:
		changed := !t.otherTyping || t.otherName != sig.UserName
		t.otherTyping = true
		t.otherName = sig.UserName
		if t.timer != nil {
			t.timer.Stop()
		}
		// Stop on an already-fired timer does not recall its queued callback;
		// the generation counter makes such a stale callback a no-op.
		t.timerGen++
		gen := t.timerGen
		t.timer = time.AfterFunc(t.ttl, func() { t.expire(gen) })
		notify := t.notify
		name := t.otherName
		t.mu.Unlock()
		if changed && notify != nil {
			notify(true, name)
		}
	case domain.TypingStop:
		t.clearOtherAndUnlock()
	default:
		t.mu.Unlock()
		log.Warn().Str("kind", string(sig.Kind)).Msg("unknown typing signal kind dropped")
	}
}

// expire fires when the TTL elapses without a Stop: treat as implicit stop.
// A callback from a superseded timer arrives with a stale generation and does
// nothing, so a refreshing Start is never undone by the timer it replaced.
func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.timerGen {
		t.mu.Unlock()
		return
	}
	t.clearOtherAndUnlock()
}

// clearOtherAndUnlock clears peer state, invalidates any pending timer
// callback, and releases the lock. Fires the change callback outside the lock
// when the state actually flipped. Callers must hold t.mu.
func (t *Tracker) clearOtherAndUnlock() {
	t.timerGen++
	changed := t.otherTyping
	t.otherTyping = false
	t.otherName = ""
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	notify := t.notify
	t.mu.Unlock()
	if changed && notify != nil {
		notify(false, "")
	}
}

// Reset tears down both halves: sends Stop if a burst is open, clears peer
// state, cancels the TTL timer. Called on conversation switch and teardown.
func (t *Tracker) Reset(ctx context.Context) {
	t.stopBurst(ctx)
	t.mu.Lock()
	t.conversationID = ""
	t.peerID = ""
	t.clearOtherAndUnlock()
}

// OtherTyping returns the peer's derived typing state and display name.
func (t *Tracker) OtherTyping() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.otherTyping, t.otherName
}

func (t *Tracker) signalLocked(kind domain.TypingSignalKind) domain.TypingSignal {
	return domain.TypingSignal{
		ConversationID: t.conversationID,
		UserID:         t.selfID,
		UserName:       t.selfName,
		Kind:           kind,
	}
}

func (t *Tracker) publish(ctx context.Context, sig domain.TypingSignal) {
	if err := t.pub.PublishTyping(ctx, sig); err != nil {
		log.Warn().Str("conversation_id", sig.ConversationID).Err(err).Msg("typing signal publish failed")
	}
}
