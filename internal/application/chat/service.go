package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/domain"
	"github.com/waveradio/realtime-api/internal/pkg/id"
	"github.com/waveradio/realtime-api/internal/pkg/validate"
)

// MessageRepository is the minimal interface the service requires from the message store.
type MessageRepository interface {
	Put(ctx context.Context, m *domain.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
}

// ConversationRepository is the minimal interface the service requires from the conversation store.
type ConversationRepository interface {
	Get(ctx context.Context, conversationID string) (*domain.Conversation, error)
	GetOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error
}

// Publisher broadcasts inserted messages on the conversation's push channel.
type Publisher interface {
	PublishMessage(ctx context.Context, m *domain.Message) error
}

// ActorResolver decorates sender ids with display identities.
type ActorResolver interface {
	Resolve(ctx context.Context, userID string) domain.ActorIdentity
}

// MediaResolver turns stored media object keys into fetchable URLs.
type MediaResolver interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Service is the server half of messaging: persistence, membership checks,
// and the push broadcast that every subscribed session (the sender's own
// included) receives as an insert event.
type Service interface {
	Conversation(ctx context.Context, conversationID, viewerID string) (*domain.Conversation, error)
	History(ctx context.Context, conversationID, viewerID string) ([]domain.Message, error)
	Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.Message, error)
}

type service struct {
	messages MessageRepository
	convs    ConversationRepository
	pub      Publisher
	actors   ActorResolver
	media    MediaResolver // nil disables media URL decoration
	mediaTTL time.Duration
}

func NewService(messages MessageRepository, convs ConversationRepository, pub Publisher, actors ActorResolver, media MediaResolver, mediaTTL time.Duration) Service {
	return &service{
		messages: messages,
		convs:    convs,
		pub:      pub,
		actors:   actors,
		media:    media,
		mediaTTL: mediaTTL,
	}
}

func (s *service) Conversation(ctx context.Context, conversationID, viewerID string) (*domain.Conversation, error) {
	c, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(viewerID) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrForbidden)
	}
	return c, nil
}

func (s *service) History(ctx context.Context, conversationID, viewerID string) ([]domain.Message, error) {
	if _, err := s.Conversation(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w: %v", domain.ErrFetch, err)
	}
	for i := range messages {
		s.decorateMedia(ctx, &messages[i])
	}
	return messages, nil
}

// Send validates, persists, then broadcasts the insert. The returned record
// carries the store-assigned id; the push echo of that same id follows, and
// id-based merge on the receiving side is what keeps the two from rendering
// twice. On persist failure nothing is broadcast and no state changed.
func (s *service) Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.Message, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.RecipientID == senderID {
		return nil, fmt.Errorf("%w: recipient must differ from sender", domain.ErrValidation)
	}

	conv, err := s.resolveConversation(ctx, senderID, req)
	if err != nil {
		return nil, err
	}

	m := &domain.Message{
		MessageID:      id.New(),
		ConversationID: conv.ConversationID,
		SenderID:       senderID,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
		MediaURL:       req.MediaURL,
		CreatedAt:      time.Now().UTC(),
		Sender:         s.actors.Resolve(ctx, senderID),
	}
	if err := s.messages.Put(ctx, m); err != nil {
		return nil, fmt.Errorf("persist message: %w: %v", domain.ErrSend, err)
	}

	// The message is durable from here on; echo and timestamp bump are soft.
	if err := s.pub.PublishMessage(ctx, m); err != nil {
		log.Warn().Str("message_id", m.MessageID).Err(err).Msg("message push publish failed")
	}
	if err := s.convs.TouchLastMessage(ctx, conv.ConversationID, m.CreatedAt); err != nil {
		log.Warn().Str("conversation_id", conv.ConversationID).Err(err).Msg("last_message_at bump failed")
	}

	s.decorateMedia(ctx, m)
	return m, nil
}

func (s *service) resolveConversation(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.Conversation, error) {
	if req.ConversationID == "" {
		return s.convs.GetOrCreate(ctx, senderID, req.RecipientID)
	}
	conv, err := s.Conversation(ctx, req.ConversationID, senderID)
	if err != nil {
		return nil, err
	}
	if conv.PeerOf(senderID) != req.RecipientID {
		return nil, fmt.Errorf("%w: recipient is not a participant", domain.ErrValidation)
	}
	return conv, nil
}

func (s *service) decorateMedia(ctx context.Context, m *domain.Message) {
	if s.media == nil || m.MediaURL == nil || *m.MediaURL == "" {
		return
	}
	if strings.HasPrefix(*m.MediaURL, "http://") || strings.HasPrefix(*m.MediaURL, "https://") {
		return
	}
	url, err := s.media.PresignedURL(ctx, *m.MediaURL, s.mediaTTL)
	if err != nil {
		log.Warn().Str("message_id", m.MessageID).Err(err).Msg("media presign failed")
		return
	}
	m.MediaURL = &url
}
