package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"poll-service/internal/models"
	"poll-service/internal/services"
)

// Event is what travels over the bus between instances. Every instance
// hands the events it receives to its own local subscribers.
type Event struct {
	Type   MessageType        `json:"type"`
	PollID string             `json:"pollId"`
	Poll   *models.PublicPoll `json:"poll,omitempty"`
}

// Bus fans events out to every hub instance. Events of one poll must be
// delivered in publish order.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe blocks, calling handler for each event, until ctx is done.
	Subscribe(ctx context.Context, handler func(Event)) error
	Close() error
}

var ErrBusClosed = errors.New("broadcast bus closed")

// =============================================================================
// In-process bus
// =============================================================================

// LocalBus is a single-instance bus backed by a buffered channel
type LocalBus struct {
	events chan Event
	done   chan struct{}
}

func NewLocalBus(buffer int) *LocalBus {
	return &LocalBus{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	select {
	case b.events <- event:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBus) Subscribe(ctx context.Context, handler func(Event)) error {
	for {
		select {
		case event := <-b.events:
			handler(event)
		case <-b.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *LocalBus) Close() error {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	return nil
}

// =============================================================================
// Redis pub/sub bus
// =============================================================================

// RedisBus publishes on poll:<id>:events and pattern-subscribes to all of them
type RedisBus struct {
	redis *services.RedisService
}

func NewRedisBus(redis *services.RedisService) *RedisBus {
	return &RedisBus{redis: redis}
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	return b.redis.PublishPollEvent(ctx, event.PollID, event)
}

func (b *RedisBus) Subscribe(ctx context.Context, handler func(Event)) error {
	pubsub := b.redis.PSubscribe(ctx, services.PollEventsPattern)
	defer pubsub.Close()

	// Wait for confirmation so events published after Subscribe returns are not lost
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to poll events: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Error("Failed to decode poll event", "channel", msg.Channel, "error", err)
				continue
			}
			if event.PollID == "" {
				event.PollID, _ = services.PollIDFromChannel(msg.Channel)
			}
			handler(event)
		}
	}
}

func (b *RedisBus) Close() error {
	return nil
}
