package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	grpcapi "ai-interview-relay-service/internal/api/grpc"
	"ai-interview-relay-service/internal/app"
	"ai-interview-relay-service/internal/config"
	"ai-interview-relay-service/internal/events"
	httpapi "ai-interview-relay-service/internal/http"
	"ai-interview-relay-service/internal/observability"
	"ai-interview-relay-service/internal/service/relay"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	application := app.New(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}

	// Create Kafka publisher with separate topics for transcripts and candidates
	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicTranscripts: cfg.Kafka.TopicTranscripts,
		TopicCandidates:  cfg.Kafka.TopicCandidates,
		Principal:        cfg.Service.Principal,
	})
	defer publisher.Close()

	obs := observability.NewServer(cfg.Observability.MetricsAddr)
	obs.Start()

	sessionCtx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()

	media := relay.NewHandler(sessionCtx, cfg, nil, publisher)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application, media),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen for gRPC")
	}
	grpcServer := grpcapi.New()
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC serve failed")
		}
	}()

	obs.SetReady(true)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	application.Shutdown()
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked media-stream connections are not tracked by Shutdown; cancel
	// them explicitly and wait for their sessions to flush.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	cancelSessions()
	media.Wait()

	grpcServer.Shutdown()
	if err := obs.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown failed")
	}
}
