package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/application/channel"
	"github.com/waveradio/realtime-api/internal/application/chat"
	"github.com/waveradio/realtime-api/internal/application/feed"
	"github.com/waveradio/realtime-api/internal/application/typing"
	"github.com/waveradio/realtime-api/internal/config"
	"github.com/waveradio/realtime-api/internal/transport/http/middleware"
)

// Gateway upgrades authenticated requests and hands each connection its own
// client session. Sessions share the chat service and repositories but own
// their store, tracker, feed and channel manager.
type Gateway struct {
	chat          chat.Service
	typingPub     typing.SignalPublisher
	factory       channel.SubscriberFactory
	notifications feed.NotificationRepository
	actors        feed.ActorResolver
	topics        feed.TopicDirectory

	typingTTL time.Duration
	window    int
	upgrader  websocket.Upgrader
}

func NewGateway(
	cfg *config.Config,
	chatSvc chat.Service,
	typingPub typing.SignalPublisher,
	factory channel.SubscriberFactory,
	notifications feed.NotificationRepository,
	actors feed.ActorResolver,
	topics feed.TopicDirectory,
) *Gateway {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	allowAll := false
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return &Gateway{
		chat:          chatSvc,
		typingPub:     typingPub,
		factory:       factory,
		notifications: notifications,
		actors:        actors,
		topics:        topics,
		typingTTL:     cfg.TypingTTL,
		window:        cfg.NotificationWindow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Handle expects auth middleware to have populated claims already.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("user_id", claims.UserID).Err(err).Msg("ws upgrade failed")
		return
	}

	identity := g.actors.Resolve(r.Context(), claims.UserID)

	store := chat.NewStore(g.chat, claims.UserID)
	tracker := typing.NewTracker(g.typingPub, claims.UserID, identity.DisplayName, g.typingTTL)
	fd := feed.New(g.notifications, g.actors, g.topics, claims.UserID, g.window)

	s := newSession(conn, claims.UserID, store, tracker, fd)
	s.manager = channel.NewManager(g.factory, store, tracker, fd, s)
	tracker.OnChange(func(isTyping bool, name string) {
		s.enqueue(Event{Type: "typing", Data: typingEvent{IsTyping: isTyping, UserName: name}})
	})

	if err := s.manager.AttachNotifications(context.Background(), claims.UserID); err != nil {
		log.Warn().Str("user_id", claims.UserID).Err(err).Msg("notification subscription failed")
		s.sendError("live notifications unavailable")
	}

	log.Debug().Str("user_id", claims.UserID).Msg("ws session opened")
	go s.writePump()
	s.readPump()
}
