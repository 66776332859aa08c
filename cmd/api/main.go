package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/config"
	"github.com/waveradio/realtime-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/waveradio/realtime-api/internal/infrastructure/jwt"
	"github.com/waveradio/realtime-api/internal/infrastructure/push"
	s3infra "github.com/waveradio/realtime-api/internal/infrastructure/s3"
	"github.com/waveradio/realtime-api/internal/infrastructure/sns"
	transporthttp "github.com/waveradio/realtime-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, reading from environment")
	}

	cfg := config.Load()
	if cfg.AppEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Push broker over Redis Streams. The realtime surface is the point of
	// this service, so a missing Redis is fatal.
	broker, err := push.NewBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("push broker init failed")
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.Warn().Err(err).Msg("push broker close failed")
		}
	}()

	// JWT provider (optional — auth is disabled without a public key, for
	// local development only).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Warn().Err(err).Msg("JWT provider not available, auth disabled")
	}

	// S3 store for media URL decoration.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SNS broadcast mirror (optional — graceful fallback).
	var broadcasts sns.BroadcastSender
	if sender, err := sns.NewSender(cfg); err == nil {
		broadcasts = sender
	} else {
		log.Warn().Err(err).Msg("SNS sender not available, broadcast mirror disabled")
	}

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		TopicRepo:        dynamo.NewTopicRepo(dynamoClient, cfg.DynamoTables.Topics),
		ConversationRepo: dynamo.NewConversationRepo(dynamoClient, cfg.DynamoTables.Conversations),
		MessageRepo:      dynamo.NewMessageRepo(dynamoClient, cfg.DynamoTables.Messages),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		S3Store:          s3Store,
		Broker:           broker,
		Broadcasts:       broadcasts,
		JWTProvider:      jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Write timeout would cut long-lived websocket sessions; read/idle
		// limits plus the ws ping loop cover dead peers.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
