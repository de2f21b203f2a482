package main

// @title           Live Poll Service API
// @version         1.0
// @description     Real-time polls with device-bound voting and live result updates
// @host            localhost:4000
// @BasePath        /api
// @schemes         http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poll-service/internal/api/routes"
	"poll-service/internal/app"
	"poll-service/internal/config"
	"poll-service/internal/services"
	"poll-service/internal/websocket"
	"poll-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.Info("Starting poll server", "store", cfg.Store.Driver, "lock", cfg.Lock.Backend, "bus", cfg.Broadcast.Bus)

	// Initialize poll store
	store, err := app.OpenStore(&cfg.Store)
	if err != nil {
		slog.Error("Failed to open poll store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Migrate(migrateCtx); err != nil {
		slog.Error("Failed to prepare poll store", "error", err)
		cancelMigrate()
		os.Exit(1)
	}
	cancelMigrate()

	// Initialize Redis connection (optional)
	redisClient, redisService, err := app.OpenRedis(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	locker, err := app.NewLocker(&cfg.Lock, redisService)
	if err != nil {
		slog.Error("Failed to initialize poll locker", "error", err)
		os.Exit(1)
	}

	bus, err := app.NewBus(&cfg.Broadcast, redisService)
	if err != nil {
		slog.Error("Failed to initialize broadcast bus", "error", err)
		os.Exit(1)
	}

	// Initialize services and WebSocket hub
	pollService := services.NewPollService(store.Repo, locker)
	hub := websocket.NewHub(bus, pollService, appLogger.With("component", "hub"))
	pollService.SetBroadcaster(hub)
	go hub.Run()

	// Initialize router with all dependencies
	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(cfg, pollService, hub, app.NewRateLimiter(redisService), os.Stdout)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting requests first so no vote is cut off mid-save
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	hub.Stop()

	slog.Info("Server stopped")
}
