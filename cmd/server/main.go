package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prudhvinik1/guildchat/internal/api"
	"github.com/prudhvinik1/guildchat/internal/config"
	"github.com/prudhvinik1/guildchat/internal/database"
	"github.com/prudhvinik1/guildchat/internal/logger"
	"github.com/prudhvinik1/guildchat/internal/metrics"
	"github.com/prudhvinik1/guildchat/internal/presence"
	"github.com/prudhvinik1/guildchat/internal/realtime"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"github.com/prudhvinik1/guildchat/internal/repositories/memrepo"
	"github.com/prudhvinik1/guildchat/internal/services"
	"go.uber.org/zap"
)

const presenceRefreshInterval = repositories.PresenceTTL / 3

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize directory store
	var dir *repositories.Directory
	switch cfg.DirectoryBackend {
	case config.BackendPostgres:
		postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, zlog)
		if err != nil {
			zlog.Fatal("failed to create postgres pool", zap.Error(err))
		}
		defer postgresPool.Close()

		if err := database.Migrate(ctx, postgresPool); err != nil {
			zlog.Fatal("failed to migrate schema", zap.Error(err))
		}

		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL, zlog)
		if err != nil {
			zlog.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()

		dir = repositories.NewDirectory(postgresPool, redisClient)
	case config.BackendMemory:
		zlog.Warn("using in-memory directory store; data is lost on restart")
		dir = memrepo.New().Directory()
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	// Presence registry
	registry := presence.NewRegistry(zlog, m)
	observer := presence.NewDirectoryObserver(dir.Users, dir.Presences, zlog)
	registry.AddObserver(observer)
	go observer.RunMirrorRefresh(ctx, registry, presenceRefreshInterval)

	// Services
	activity := services.NewActivityLogger(dir.Activity, zlog)
	conversations := services.NewConversationService(dir, services.NewBatchAuthorResolver(dir.Users), registry, registry, activity, m, zlog)
	authService := services.NewAuthService(dir.Users, dir.Sessions, registry, activity, zlog, cfg.JWTSecret, cfg.JWTExpiry)

	relay := realtime.NewRelay(registry, m, zlog)
	wsHandler := realtime.NewHandler(authService, registry, relay, cfg.WebSocket, cfg.AllowedOrigins, m, zlog)

	router := api.NewRouter(api.Deps{
		Auth:          authService,
		Servers:       services.NewServerService(dir, registry, activity, zlog),
		Conversations: conversations,
		Admin:         services.NewAdminService(dir, conversations, registry, activity, zlog),
		WebSocket:     wsHandler,
		Gatherer:      promRegistry,
		Log:           zlog,
	})

	// Start Server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		zlog.Info("shutting down server")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Hijacked websocket connections are not tracked by Shutdown. Closing them
		// here also records every user offline.
		closed := registry.Shutdown()
		zlog.Info("closed realtime connections", zap.Int("count", closed))
		server.Shutdown(shutdownCtx)
	}()

	zlog.Info("starting server",
		zap.String("port", cfg.ServerPort),
		zap.String("directory_backend", cfg.DirectoryBackend),
	)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		zlog.Fatal("server error", zap.Error(err))
	}

	zlog.Info("server stopped gracefully")
}
