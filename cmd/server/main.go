// Package main is the entry point for the polychat-api server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/polychat/polychat-api/internal/adapter"
	"github.com/polychat/polychat-api/internal/chat"
	"github.com/polychat/polychat-api/internal/config"
	"github.com/polychat/polychat-api/internal/domain"
	"github.com/polychat/polychat-api/internal/handler"
	"github.com/polychat/polychat-api/internal/store"
	"github.com/polychat/polychat-api/internal/ui"
)

func main() {
	// A missing .env file is fine; keys can come from the environment.
	_ = godotenv.Load()

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)

	logger.Info("starting polychat-api",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("storage_backend", cfg.Storage.Backend),
	)

	st, err := buildStore(cfg)
	if err != nil {
		logger.Error("failed to open conversation store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close conversation store", slog.String("error", err.Error()))
		}
	}()

	registry := buildRegistry(cfg, logger)
	if registry.Len() == 0 {
		logger.Error("no provider API keys configured")
		os.Exit(1)
	}

	service := chat.NewService(registry, st, chat.WithLogger(logger))
	chatHandler := handler.NewChatHandler(service, handler.WithLogger(logger))

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.OriginsList()))
	router.Use(handler.LoggingMiddleware(logger))
	chatHandler.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		ui.PrintBanner()
		ui.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, registry.Providers(), cfg.Storage.Backend)

		logger.Info("server starting", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// buildStore creates the conversation store selected by configuration.
func buildStore(cfg *config.Configuration) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "bolt":
		return store.NewBoltStore(cfg.Storage.Path)
	default:
		return store.NewMemoryStore(), nil
	}
}

// buildRegistry constructs one adapter per configured API key. Providers
// without a key are simply not registered.
func buildRegistry(cfg *config.Configuration, logger *slog.Logger) *adapter.Registry {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Providers.TimeoutSeconds) * time.Second,
	}

	var adapters []adapter.Provider

	if key := cfg.ProviderKey(domain.ProviderOpenAI); key != "" {
		adapters = append(adapters, adapter.NewOpenAIAdapter(key,
			adapter.WithOpenAIHTTPClient(httpClient)))
	}
	if key := cfg.ProviderKey(domain.ProviderGoogle); key != "" {
		adapters = append(adapters, adapter.NewGeminiAdapter(key,
			adapter.WithGeminiHTTPClient(httpClient)))
	}
	if key := cfg.ProviderKey(domain.ProviderAnthropic); key != "" {
		adapters = append(adapters, adapter.NewAnthropicAdapter(key,
			adapter.WithAnthropicHTTPClient(httpClient)))
	}

	registry := adapter.NewRegistry(adapters...)
	for _, p := range registry.Providers() {
		logger.Info("provider registered",
			slog.String("provider", string(p)),
			slog.String("api_key", maskKey(cfg.ProviderKey(p))),
		)
	}
	return registry
}

// maskKey returns a masked version of an API key for logging.
// Shows first 8 and last 4 characters.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 12 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// setupLogger creates a structured logger based on config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
