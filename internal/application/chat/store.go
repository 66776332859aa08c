package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/waveradio/realtime-api/internal/domain"
)

// Store holds the ordered message list for one client session's active
// conversation. Switching conversations discards the list; it is re-fetched if
// the conversation is revisited. All mutation goes through Store methods; the
// channel manager routes push events here but never touches the slice itself.
//
// Fetch results, send confirmations, and push echoes can resolve in any
// order. The list stays correct because every path funnels into the same
// id-deduplicating, timestamp-ordered merge.
type Store struct {
	svc    Service
	selfID string

	mu         sync.Mutex
	activeConv string
	messages   []domain.Message
	loading    bool
	sending    bool
}

func NewStore(svc Service, selfID string) *Store {
	return &Store{svc: svc, selfID: selfID}
}

// SetActive switches the active conversation and discards the previous list.
// A no-op when the conversation is already active.
func (s *Store) SetActive(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeConv == conversationID {
		return
	}
	s.activeConv = conversationID
	s.messages = nil
}

func (s *Store) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeConv
}

// Fetch loads the active conversation's history and merges it in. If the
// active conversation changed while the call was in flight, the stale result
// is discarded.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	conv := s.activeConv
	s.loading = true
	s.mu.Unlock()

	history, err := s.svc.History(ctx, conv, s.selfID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	// Stale results are discarded whether they succeeded or failed; an error
	// for an abandoned conversation must not surface in the new one's context.
	if s.activeConv != conv {
		return nil
	}
	if err != nil {
		return err
	}
	// Merge rather than replace: a push may have landed while the fetch was in
	// flight, and its record is not necessarily in the fetched snapshot.
	for i := range history {
		s.mergeLocked(history[i])
	}
	return nil
}

// Send persists through the service and applies the confirmed record locally.
// The record's real id is applied immediately, so the push echo that follows
// is a duplicate by id and merges to a no-op. On error local state is
// untouched and the caller must not assume delivery.
func (s *Store) Send(ctx context.Context, req domain.SendMessageRequest) (*domain.Message, error) {
	s.mu.Lock()
	if req.ConversationID == "" {
		req.ConversationID = s.activeConv
	}
	s.sending = true
	s.mu.Unlock()

	m, err := s.svc.Send(ctx, s.selfID, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	if err != nil {
		return nil, err
	}
	if m.ConversationID == s.activeConv {
		s.mergeLocked(*m)
	}
	return m, nil
}

// Merge idempotently inserts a pushed message in timestamp order and reports
// whether the record was applied. Duplicate ids no-op (the send-echo case);
// events for a conversation other than the active one are dropped, since they
// belong to a subscription that has been or is being torn down.
func (s *Store) Merge(m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ConversationID != s.activeConv {
		return false
	}
	return s.mergeLocked(m)
}

func (s *Store) mergeLocked(m domain.Message) bool {
	for i := range s.messages {
		if s.messages[i].MessageID == m.MessageID {
			return false
		}
	}
	// Push delivery order is not creation order under concurrent senders, so
	// insert in place rather than append.
	i := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].CreatedAt.After(m.CreatedAt)
	})
	s.messages = append(s.messages, domain.Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = m
	return true
}

// Messages returns a copy of the rendered list, ascending by created_at.
func (s *Store) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}
