package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"poll-service/internal/app"
	"poll-service/internal/config"
	"poll-service/internal/services"
	"poll-service/pkg/logger"
)

type demoPoll struct {
	question  string
	options   []string
	expiresIn *float64
	votes     []int
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.New(cfg.Log.Level, cfg.Log.Format)

	slog.Info("Starting poll seeding...", "store", cfg.Store.Driver)

	store, err := app.OpenStore(&cfg.Store)
	if err != nil {
		log.Fatal("Failed to open poll store:", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		log.Fatal("Failed to prepare poll store:", err)
	}

	pollService := services.NewPollService(store.Repo, services.NewKeyedMutex())

	oneDay := float64(24 * 60)
	polls := []demoPoll{
		{
			question: "Which language should the next service be written in?",
			options:  []string{"Go", "Rust", "TypeScript", "Kotlin"},
			votes:    []int{0, 0, 0, 1, 2, 0},
		},
		{
			question:  "Best time for the weekly sync?",
			options:   []string{"Monday 10:00", "Wednesday 14:00", "Friday 11:00"},
			expiresIn: &oneDay,
			votes:     []int{1, 1, 2},
		},
		{
			question: "Tabs or spaces?",
			options:  []string{"Tabs", "Spaces"},
		},
	}

	for i, demo := range polls {
		poll, err := pollService.CreatePoll(ctx, services.CreatePollInput{
			Question:         demo.question,
			Options:          demo.options,
			ExpiresInMinutes: demo.expiresIn,
			CreatorDeviceID:  "seed-creator",
		})
		if err != nil {
			slog.Error("Failed to create poll", "question", demo.question, "error", err)
			continue
		}

		// Each demo voter gets its own device and IP
		for v, optionIndex := range demo.votes {
			_, err := pollService.CastVote(ctx, services.VoteInput{
				PollID:   poll.ID,
				OptionID: poll.Options[optionIndex].ID,
				DeviceID: fmt.Sprintf("seed-device-%d-%d", i, v),
				IP:       fmt.Sprintf("198.51.100.%d", v+1),
			})
			if err != nil {
				slog.Warn("Failed to cast demo vote", "poll_id", poll.ID, "error", err)
			}
		}

		slog.Info("Created poll",
			"id", poll.ID,
			"votes", len(demo.votes),
			"share_link", fmt.Sprintf("%s/poll/%s", cfg.Server.ClientBaseURL, poll.ID),
		)
	}

	slog.Info("Poll seeding completed successfully!")
}
