// Package main is the entry point for the event chatbot API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/config"
	"github.com/luff543/EventChatBotBackend/internal/engine"
	"github.com/luff543/EventChatBotBackend/internal/events"
	"github.com/luff543/EventChatBotBackend/internal/handler"
	"github.com/luff543/EventChatBotBackend/internal/llm"
	"github.com/luff543/EventChatBotBackend/internal/middleware"
	natsclient "github.com/luff543/EventChatBotBackend/internal/nats"
	"github.com/luff543/EventChatBotBackend/internal/profile"
	"github.com/luff543/EventChatBotBackend/internal/service"
	"github.com/luff543/EventChatBotBackend/internal/storage"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
	"github.com/luff543/EventChatBotBackend/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "event-chatbot-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the durable store
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	// Connect to NATS when the analytics feed is enabled
	var streams *natsclient.StreamManager
	if cfg.NATSEnabled {
		nc, err := natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, analytics feed disabled", zap.Error(err))
		} else {
			defer nc.Close()
			streams = natsclient.NewStreamManager(nc)
			if err := streams.EnsureStream(ctx); err != nil {
				log.Warn("failed to ensure stream, analytics feed disabled", zap.Error(err))
				streams = nil
			}
		}
	}

	// Initialize the text-generation client
	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == string(llm.ProviderOpenAI) && cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Warn("failed to create LLM client, fallback paths only", zap.Error(err))
		llmClient = nil
	}
	if llmClient == nil {
		log.Info("no LLM configured, deterministic fallbacks handle every classification")
	}

	// Initialize engine components and services
	eventsClient := events.NewClient(cfg.EventGoAPIBase, cfg.EventGoTimeout, log)

	chatSvc := service.NewChatService(service.ChatServiceDeps{
		Store:           store,
		Router:          engine.NewIntentRouter(llmClient, cfg.LLMTimeout, log),
		Stages:          engine.NewStageClassifier(llmClient, cfg.LLMTimeout, log),
		Proactive:       engine.NewProactiveEngine(log),
		Analyzer:        profile.NewAnalyzer(llmClient, cfg.LLMTimeout, log),
		MessageAnalyzer: engine.NewMessageAnalyzer(llmClient, cfg.LLMTimeout, log),
		Search:          service.NewSearchHandler(eventsClient, log),
		Analysis:        service.NewAnalysisHandler(eventsClient, log),
		Recommendation:  service.NewRecommendationHandler(store, eventsClient, log),
		Conversation:    service.NewConversationHandler(llmClient, cfg.LLMTimeout, log),
		Streams:         streams,
		Log:             log,
		SessionMsgLimit: cfg.SessionMessageLimit,
	})

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(store)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	profileHandler := handler.NewProfileHandler(store, chatSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Chat)

		r.Route("/profiles/{sessionID}", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Get("/recommendations", profileHandler.Recommendations)
			r.Post("/feedback", profileHandler.Feedback)
		})

		// Administrative cross-session view, token-gated when a secret is set
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Get("/clients/{ip}/profile", profileHandler.ClientProfile)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
