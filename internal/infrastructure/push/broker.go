package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/config"
	"github.com/waveradio/realtime-api/internal/domain"
)

// Broker owns the Redis Streams transport: one shared publisher for the whole
// process, and a fresh subscriber per client session. Subscribers use no
// consumer group so every session sees every event on a topic (fan-out), and a
// unique consumer name so Redis keeps their cursors apart.
type Broker struct {
	client    *redis.Client
	publisher message.Publisher
}

func NewBroker(cfg *config.Config) (*Broker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	logger := newWatermillLogger(log.Logger)

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("redis stream publisher: %w", err)
	}

	return &Broker{client: client, publisher: pub}, nil
}

// NewSubscriber returns a subscriber for one client session. The caller owns
// it and must Close it on teardown.
func (b *Broker) NewSubscriber() (message.Subscriber, error) {
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:       b.client,
		Unmarshaller: rstream.DefaultMarshallerUnmarshaller{},
		Consumer:     uuid.NewString(),
	}, newWatermillLogger(log.Logger))
	if err != nil {
		return nil, fmt.Errorf("redis stream subscriber: %w", err)
	}
	return sub, nil
}

// PublishMessage broadcasts an inserted message to every subscriber of its
// conversation, including the sender's own session (the echo).
func (b *Broker) PublishMessage(ctx context.Context, m *domain.Message) error {
	return b.publishJSON(MessagesTopic(m.ConversationID), m)
}

// PublishTyping broadcasts an ephemeral typing signal. Nothing is persisted.
func (b *Broker) PublishTyping(ctx context.Context, sig domain.TypingSignal) error {
	return b.publishJSON(TypingTopic(sig.ConversationID), sig)
}

// PublishNotification broadcasts an inserted notification to the recipient's
// open sessions.
func (b *Broker) PublishNotification(ctx context.Context, n *domain.Notification) error {
	return b.publishJSON(NotificationsTopic(n.RecipientID), n)
}

func (b *Broker) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}
	return b.publisher.Publish(topic, message.NewMessage(uuid.NewString(), payload))
}

func (b *Broker) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}
	return b.client.Close()
}
