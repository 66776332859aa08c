package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/domain"
	"github.com/waveradio/realtime-api/internal/pkg/id"
	"github.com/waveradio/realtime-api/internal/pkg/validate"
)

// NotificationWriter is the minimal interface the service requires from the notification store.
type NotificationWriter interface {
	Put(ctx context.Context, n *domain.Notification) error
}

// Publisher pushes created notifications on each recipient's channel.
type Publisher interface {
	PublishNotification(ctx context.Context, n *domain.Notification) error
}

// Mirror forwards broadcasts to an external fan-out (SNS). Optional.
type Mirror interface {
	SendBroadcast(ctx context.Context, subject, body string) error
}

// SendRequest is a station broadcast: one System notification per recipient.
type SendRequest struct {
	Subject      string   `json:"subject" validate:"required"`
	Content      string   `json:"content" validate:"required"`
	RecipientIDs []string `json:"recipient_ids" validate:"required,min=1"`
}

// Service creates station broadcasts. Persistence is the source of truth;
// push delivery and the SNS mirror are best-effort on top of it.
type Service interface {
	Send(ctx context.Context, req SendRequest) ([]domain.Notification, error)
}

type service struct {
	notifications NotificationWriter
	pub           Publisher
	mirror        Mirror // nil disables the SNS mirror
}

func NewService(notifications NotificationWriter, pub Publisher, mirror Mirror) Service {
	return &service{notifications: notifications, pub: pub, mirror: mirror}
}

func (s *service) Send(ctx context.Context, req SendRequest) ([]domain.Notification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now().UTC()
	created := make([]domain.Notification, 0, len(req.RecipientIDs))
	for _, recipientID := range req.RecipientIDs {
		n := domain.Notification{
			NotificationID: id.New(),
			Type:           domain.NotificationSystem,
			RecipientID:    recipientID,
			ContentPreview: req.Content,
			CreatedAt:      now,
		}
		if err := s.notifications.Put(ctx, &n); err != nil {
			return created, fmt.Errorf("store broadcast notification: %w: %v", domain.ErrSend, err)
		}
		if err := s.pub.PublishNotification(ctx, &n); err != nil {
			log.Warn().Str("notification_id", n.NotificationID).Str("recipient_id", recipientID).
				Err(err).Msg("broadcast push failed, recipient will see it on next fetch")
		}
		created = append(created, n)
	}

	if s.mirror != nil {
		if err := s.mirror.SendBroadcast(ctx, req.Subject, req.Content); err != nil {
			log.Warn().Err(err).Msg("sns broadcast mirror failed")
		}
	}
	return created, nil
}
