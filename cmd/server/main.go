package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/ai"
	"github.com/luzzdev/luzzia/internal/api"
	"github.com/luzzdev/luzzia/internal/auth"
	"github.com/luzzdev/luzzia/internal/chat"
	"github.com/luzzdev/luzzia/internal/storage"
	"github.com/luzzdev/luzzia/internal/webhook"
	"github.com/luzzdev/luzzia/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	ctx := context.Background()
	if err := seedDefaults(ctx, store, cfg.Auth.AdminPassword, logger); err != nil {
		logger.Fatal("Failed to seed defaults", zap.Error(err))
	}

	// Initialize the generation and chat layers
	gen := ai.NewOpenAIGenerator(store, cfg.Generator.MaxTokens, cfg.Generator.Temperature, logger)

	sessions := chat.NewSessionStore(store, logger)
	if err := sessions.Load(ctx); err != nil {
		logger.Fatal("Failed to load threads", zap.Error(err))
	}
	hooks := webhook.NewDispatcher(store, logger)
	chatSvc := chat.NewService(sessions, gen, store, hooks, logger)

	authSvc := auth.NewService(store, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, logger)

	server := api.NewServer(chatSvc, gen, store, authSvc, hooks, logger)

	logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
	if err := http.ListenAndServe(cfg.Server.Addr, server.Handler()); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
