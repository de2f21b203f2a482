package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"poll-service/internal/database"

	"github.com/redis/go-redis/v9"
)

const (
	pollEventsPrefix  = "poll:"
	pollEventsSuffix  = ":events"
	PollEventsPattern = pollEventsPrefix + "*" + pollEventsSuffix
)

// releaseLockScript deletes the key only while it still holds our token.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{
		client: client,
	}
}

// =============================================================================
// PubSub Operations
// =============================================================================

// PollEventsChannel is the pub/sub channel carrying events of one poll
func PollEventsChannel(pollID string) string {
	return pollEventsPrefix + pollID + pollEventsSuffix
}

// PollIDFromChannel reverses PollEventsChannel
func PollIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, pollEventsPrefix) || !strings.HasSuffix(channel, pollEventsSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(channel, pollEventsPrefix), pollEventsSuffix)
	return id, id != ""
}

func (r *RedisService) PublishPollEvent(ctx context.Context, pollID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = r.client.GetClient().Publish(ctx, PollEventsChannel(pollID), data).Err()
	if err != nil {
		slog.Error("Failed to publish poll event", "pollID", pollID, "error", err)
		return err
	}

	slog.Debug("Published poll event", "pollID", pollID)
	return nil
}

func (r *RedisService) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	pubsub := r.client.GetClient().PSubscribe(ctx, patterns...)
	slog.Debug("Pattern subscribed to channels", "patterns", patterns)
	return pubsub
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit keeps a sliding-window log of request times per key in a
// sorted set and allows the request while fewer than limit fall in window.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixMilli()

	pipe := r.client.GetClient().Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	// Count current entries
	countCmd := pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: now.UnixNano()})

	// Set expiration
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() < int64(limit), nil
}

// =============================================================================
// Distributed Locks
// =============================================================================

// AcquireLock sets key to token if it is free. The lock expires after ttl
// so a crashed holder cannot block the poll forever.
func (r *RedisService) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return r.client.GetClient().SetNX(ctx, key, token, ttl).Result()
}

// ReleaseLock frees key if token still owns it
func (r *RedisService) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseLockScript.Run(ctx, r.client.GetClient(), []string{key}, token).Err()
}

func (r *RedisService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
