// VD - Compliance and Legal Assistant Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/vdlabs/vd-assistant/internal/api"
	"github.com/vdlabs/vd-assistant/internal/chatlog"
	"github.com/vdlabs/vd-assistant/internal/chatws"
	"github.com/vdlabs/vd-assistant/internal/config"
	"github.com/vdlabs/vd-assistant/internal/gateway"
	"github.com/vdlabs/vd-assistant/internal/identity"
	"github.com/vdlabs/vd-assistant/internal/ingest"
	"github.com/vdlabs/vd-assistant/internal/middleware"
	"github.com/vdlabs/vd-assistant/internal/session"
	"github.com/vdlabs/vd-assistant/internal/store"
	"github.com/vdlabs/vd-assistant/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	gw, err := gateway.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("Failed to initialize Gemini gateway", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := gw.Close(); closeErr != nil {
			slog.Error("Failed to close Gemini gateway", "error", closeErr)
		}
	}()
	slog.Info("Gemini gateway ready", "model", cfg.GeminiModel)

	chatLog, err := chatlog.New(chatlog.Config{
		Enabled:   cfg.ChatLog.Enabled,
		Dir:       cfg.ChatLog.Dir,
		QueueSize: cfg.ChatLog.QueueSize,
	})
	if err != nil {
		slog.Error("Failed to initialize chat logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := chatLog.Close(); closeErr != nil {
			slog.Error("Failed to close chat logger", "error", closeErr)
		}
	}()

	// Initialize services.
	sessions := session.NewManager()
	ingestor := &ingest.Ingestor{CharBudget: cfg.DocCharBudget}

	// Initialize handlers.
	apiHandler := api.NewHandler(sessions, gw, ingestor, chatLog, repo, cfg)
	wsHandler := chatws.NewHandler(sessions, gw, chatLog, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // model exchanges and WebSocket sessions outlive any fixed write window
		IdleTimeout:  120 * time.Second,
	}

	// Start background reapers.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Identity records live well past the in-memory session TTL; when
	// one finally goes, its sessions go with it.
	const userTTLMultiplier = 24

	sessions.StartSweeper(ctx, cfg.SessionTTL)
	identity.StartReaper(ctx, repo, time.Hour, cfg.SessionTTL*userTTLMultiplier, sessions.CloseUser)
	slog.Info("Session sweeper started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
