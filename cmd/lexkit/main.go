package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/antoniostano/lexkit/internal/bots/airline"
	"github.com/antoniostano/lexkit/internal/config"
	"github.com/antoniostano/lexkit/internal/disambiguation"
	"github.com/antoniostano/lexkit/internal/dispatch"
	"github.com/antoniostano/lexkit/internal/httpapi"
	"github.com/antoniostano/lexkit/internal/messages"
	"github.com/antoniostano/lexkit/internal/observability"
	"github.com/antoniostano/lexkit/internal/reservations"
	"github.com/antoniostano/lexkit/internal/textgen"
	"github.com/antoniostano/lexkit/internal/turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	stages := observability.NewStageWindow(256)

	ctx := context.Background()
	store, err := reservations.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("reservation store init failed: %v", err)
	}
	defer store.Close()

	var catalog *messages.Manager
	if cfg.MessagesDir != "" {
		catalog, err = messages.LoadDir(cfg.MessagesDir)
		if err != nil {
			log.Fatalf("message catalog init failed: %v", err)
		}
		log.Printf("message catalog: %d locale(s) from %s", len(catalog.Locales()), cfg.MessagesDir)
	}

	var generator textgen.Adapter
	if cfg.TextGenEnabled {
		generator, err = textgen.NewAdapter(textgen.Config{
			Mode:         cfg.TextGenMode,
			GatewayURL:   cfg.TextGenGatewayURL,
			GatewayToken: cfg.TextGenGatewayToken,
			HTTPURL:      cfg.TextGenHTTPURL,
		})
		if err != nil {
			log.Fatalf("textgen adapter init failed: %v", err)
		}
		log.Printf("textgen adapter: %s", cfg.TextGenMode)
	}

	registry := dispatch.NewRegistry()
	dispatcher := dispatch.NewDispatcher(registry)
	airline.New(store).Register(registry, dispatcher)
	log.Printf("registered intents: %v", registry.Intents())

	orchestrator, err := turn.New(turn.Config{
		Dispatcher:               dispatcher,
		ErrorMessage:             cfg.ErrorMessage,
		DisableAutoErrorHandling: !cfg.AutoHandleErrors,
		CallbackFallbackIntent:   cfg.CallbackFallbackIntent,
		EnableDisambiguation:     cfg.DisambiguationEnabled,
		Disambiguation: disambiguation.Config{
			ConfidenceThreshold: cfg.DisambiguationConfidenceThreshold,
			SimilarityThreshold: cfg.DisambiguationSimilarityThreshold,
			MinCandidates:       cfg.DisambiguationMinCandidates,
			MaxCandidates:       cfg.DisambiguationMaxCandidates,
			Generation: disambiguation.GenerationConfig{
				Enabled:          cfg.TextGenEnabled,
				ModelID:          cfg.TextGenModelID,
				MaxTokens:        cfg.TextGenMaxTokens,
				Temperature:      cfg.TextGenTemperature,
				FallbackToStatic: true,
			},
		},
		TextGen:  generator,
		Messages: catalog,
		Metrics:  metrics,
		Stages:   stages,
		Logger:   log.Default(),
	})
	if err != nil {
		log.Fatalf("orchestrator init failed: %v", err)
	}

	api := httpapi.New(cfg, orchestrator, store, metrics, stages)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
