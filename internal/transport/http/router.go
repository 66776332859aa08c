package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/waveradio/realtime-api/internal/application/actor"
	"github.com/waveradio/realtime-api/internal/application/broadcast"
	"github.com/waveradio/realtime-api/internal/application/chat"
	"github.com/waveradio/realtime-api/internal/application/feed"
	"github.com/waveradio/realtime-api/internal/config"
	"github.com/waveradio/realtime-api/internal/domain"
	"github.com/waveradio/realtime-api/internal/transport/http/handler"
	appmiddleware "github.com/waveradio/realtime-api/internal/transport/http/middleware"
	"github.com/waveradio/realtime-api/internal/transport/ws"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 2 sends/second, burst of 5 — per user, across tabs.
	sendRL := appmiddleware.NewRateLimiter(rate.Limit(2), 5)

	actors := actor.NewResolver(deps.UserRepo)
	var media chat.MediaResolver
	if deps.S3Store != nil {
		media = deps.S3Store
	}
	chatSvc := chat.NewService(deps.MessageRepo, deps.ConversationRepo, deps.Broker, actors, media, cfg.MediaURLTTL)
	broadcastSvc := broadcast.NewService(deps.NotificationRepo, deps.Broker, deps.Broadcasts)
	decorator := feed.NewDecorator(actors, deps.TopicRepo)

	healthH := handler.NewHealthHandler()
	messageH := handler.NewMessageHandler(chatSvc)
	notifH := handler.NewNotificationHandler(deps.NotificationRepo, decorator, cfg.NotificationWindow)
	broadcastH := handler.NewBroadcastHandler(broadcastSvc)
	gateway := ws.NewGateway(cfg, chatSvc, deps.Broker, deps.Broker, deps.NotificationRepo, actors, deps.TopicRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/ws", gateway.Handle)

			r.Get("/conversations/{id}/messages", messageH.List)
			r.With(sendRL.Limit).Post("/conversations/{id}/messages", messageH.Send)

			r.Get("/notifications", notifH.List)
			r.Put("/notifications/read-all", notifH.MarkAllRead)
			r.Put("/notifications/{id}/read", notifH.MarkRead)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleStaff))

				r.Post("/broadcasts", broadcastH.Send)
			})
		})
	})

	return r
}
