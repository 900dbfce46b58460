// Command dagchatd is the DAG-chat backend entrypoint: loads configuration,
// wires up storage and the provider registry, and serves the conversation
// API. Grounded in the teacher's cmd/agentd/main.go startup sequence
// (godotenv, InitLogger, config.Load, NewHTTPClient).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"dagchat/internal/config"
	"dagchat/internal/dispatch"
	"dagchat/internal/httpapi"
	"dagchat/internal/llm/providers"
	"dagchat/internal/observability"
	mongostore "dagchat/internal/store/mongo"
	"dagchat/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pgPool, err := postgres.OpenPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open postgres pool")
	}
	defer pgPool.Close()
	meta := postgres.NewMetadataStore(pgPool)
	if err := meta.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metadata schema")
	}

	mongoClient, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(ctx) }()
	nodes := mongostore.NewNodeStore(mongoClient.Database(cfg.MongoDatabase))
	if err := nodes.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize node store indexes")
	}

	httpClient := observability.NewHTTPClient(&http.Client{Timeout: 30 * time.Second})
	registry := providers.NewRegistry(cfg, httpClient)

	dispatcher := &dispatch.Dispatcher{Meta: meta, Nodes: nodes, Providers: registry}

	server := &httpapi.Server{
		Meta:         meta,
		Nodes:        nodes,
		Dispatcher:   dispatcher,
		Registry:     registry,
		DisplayNames: providers.DisplayNames,
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.NewMux(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE responses are long-lived
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("dagchatd listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
