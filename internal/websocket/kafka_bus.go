package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaBus keys every event by poll id so one poll always lands on one
// partition and keeps its order. Each instance reads with its own consumer
// group, so every instance sees every event.
type KafkaBus struct {
	brokers []string
	topic   string
	groupID string
	writer  *kafka.Writer
}

func NewKafkaBus(brokers []string, topic string) *KafkaBus {
	return &KafkaBus{
		brokers: brokers,
		topic:   topic,
		groupID: "poll-hub-" + uuid.NewString(),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (b *KafkaBus) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PollID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to publish poll event: %w", err)
	}
	return nil
}

func (b *KafkaBus) Subscribe(ctx context.Context, handler func(Event)) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		Topic:       b.topic,
		GroupID:     b.groupID,
		StartOffset: kafka.LastOffset,
		MaxWait:     250 * time.Millisecond,
	})
	defer reader.Close()

	slog.Info("Kafka bus subscribed", "topic", b.topic, "groupID", b.groupID)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read poll event: %w", err)
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("Failed to decode poll event", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		handler(event)
	}
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
