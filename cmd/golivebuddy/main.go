package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"golivebuddy/internal/api"
	"golivebuddy/internal/backend"
	"golivebuddy/internal/config"
	"golivebuddy/internal/conversation"
	"golivebuddy/internal/repository"
	"golivebuddy/internal/service"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database (kv session snapshots, query log, pulse snapshots)
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	kvStore := repository.NewKVStore(db)
	queryRepo := repository.NewQueryLogRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Load the conversation store from its persisted snapshot
	store, err := conversation.NewStore(kvStore, cfg.Storage.SessionKey, logger)
	if err != nil {
		logger.Fatal("Failed to load conversation store", zap.Error(err))
	}

	// Backend client for the retrieval/LLM service
	client := backend.NewClient(cfg, logger)

	// Initialize services
	analyticsService := service.NewAnalyticsService(cfg, queryRepo, snapshotRepo, client, logger)
	chatService := service.NewChatService(cfg, store, client, analyticsService, logger)
	ticketService := service.NewTicketService(store, client, chatService.ResolveNamespace, logger)
	adminService := service.NewAdminService(store, queryRepo, client, logger)

	// Setup router
	router := api.SetupRouter(chatService, ticketService, adminService, analyticsService, api.RouterConfig{
		APIKey:       cfg.Admin.APIKey,
		AllowOrigins: []string{"*"},
		FramesDir:    cfg.Storage.FramesDir,
	})

	// Create HTTP server. No write timeout: chat turns are long-lived SSE
	// streams.
	srv := &http.Server{
		Addr:        cfg.Address(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting Go-Live Buddy server",
			zap.String("address", cfg.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
