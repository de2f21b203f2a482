// Package app assembles the configured backends shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"poll-service/internal/api/middleware"
	"poll-service/internal/config"
	"poll-service/internal/database"
	"poll-service/internal/repositories"
	"poll-service/internal/repositories/memory"
	mongorepo "poll-service/internal/repositories/mongo"
	"poll-service/internal/repositories/postgres"
	"poll-service/internal/services"
	"poll-service/internal/websocket"

	"gorm.io/gorm"
)

// Store is the opened poll store plus whatever must be closed with it
type Store struct {
	Repo repositories.PollRepository

	mongo     *database.MongoDB
	mongoRepo *mongorepo.PollRepository
	sql       *gorm.DB
}

func OpenStore(cfg *config.StoreConfig) (*Store, error) {
	switch cfg.Driver {
	case "mongo", "mongodb", "":
		db, err := database.NewMongoConnection(cfg)
		if err != nil {
			return nil, err
		}
		repo := mongorepo.NewPollRepository(db.DB)
		return &Store{Repo: repo, mongo: db, mongoRepo: repo}, nil

	case "postgres", "mysql":
		db, err := database.NewSQLConnection(cfg.Driver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Store{Repo: postgres.NewPollRepository(db), sql: db}, nil

	case "memory":
		slog.Warn("Using in-memory poll store; polls are lost on restart")
		return &Store{Repo: memory.NewPollRepository()}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
}

// Migrate creates the indexes or tables the store needs
func (s *Store) Migrate(ctx context.Context) error {
	switch {
	case s.mongoRepo != nil:
		return s.mongoRepo.EnsureIndexes(ctx)
	case s.sql != nil:
		return database.Migrate(s.sql, &postgres.PollRecord{})
	default:
		return nil
	}
}

func (s *Store) Close() {
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.mongo.Close(ctx); err != nil {
			slog.Warn("Failed to close MongoDB connection", "error", err)
		}
	}
	if s.sql != nil {
		if sqlDB, err := s.sql.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// OpenRedis connects when REDIS_URL is set; nil otherwise
func OpenRedis(cfg *config.RedisConfig) (*database.RedisClient, *services.RedisService, error) {
	if cfg.URI == "" {
		return nil, nil, nil
	}
	client, err := database.NewRedisConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, services.NewRedisService(client), nil
}

func NewLocker(cfg *config.LockConfig, redis *services.RedisService) (services.Locker, error) {
	switch cfg.Backend {
	case "memory", "":
		return services.NewKeyedMutex(), nil
	case "redis":
		if redis == nil {
			return nil, fmt.Errorf("LOCK_BACKEND=redis requires REDIS_URL")
		}
		return services.NewRedisLocker(redis, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown LOCK_BACKEND %q", cfg.Backend)
	}
}

func NewBus(cfg *config.BroadcastConfig, redis *services.RedisService) (websocket.Bus, error) {
	switch cfg.Bus {
	case "local", "":
		return websocket.NewLocalBus(256), nil
	case "redis":
		if redis == nil {
			return nil, fmt.Errorf("BROADCAST_BUS=redis requires REDIS_URL")
		}
		return websocket.NewRedisBus(redis), nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("BROADCAST_BUS=kafka requires KAFKA_BROKERS")
		}
		return websocket.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown BROADCAST_BUS %q", cfg.Bus)
	}
}

// NewRateLimiter prefers the shared Redis window and falls back to a
// per-process limiter.
func NewRateLimiter(redis *services.RedisService) middleware.RateLimiter {
	if redis != nil {
		return redis
	}
	return services.NewMemoryRateLimiter()
}
