package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"poll-service/internal/app"
	"poll-service/internal/config"
	"poll-service/internal/services"
	"poll-service/pkg/logger"

	"github.com/spf13/cobra"
)

type migrateOptions struct {
	Timeout time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prepare and repair the poll store",
	}
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "overall timeout")

	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newNormalizeCommand(opts))
	return cmd
}

func newSchemaCommand(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "schema",
		Short:        "Create the poll indexes (mongo) or table (postgres, mysql)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			slog.Info("Running poll store migration...", "driver", cfg.Store.Driver)
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			slog.Info("Poll store migration completed successfully")
			return nil
		},
	}
}

func newNormalizeCommand(opts *migrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Give legacy polls without a voter ledger a usable one",
		Long: `Scans every stored poll without voter entries. A poll holding exactly one
vote from exactly one recorded device gets that vote written into its ledger,
so the device can later switch or remove it. Other legacy polls are left as is.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			// Share the server's lock so a running instance cannot race the repair
			redisClient, redisService, err := app.OpenRedis(&cfg.Redis)
			if err != nil {
				return err
			}
			if redisClient != nil {
				defer redisClient.Close()
			}
			locker, err := app.NewLocker(&cfg.Lock, redisService)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			service := services.NewPollService(store.Repo, locker)
			repaired, err := service.NormalizeAll(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "normalized %d poll(s)\n", repaired)
			return nil
		},
	}
}

func openStore() (*config.Config, *app.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.New(cfg.Log.Level, cfg.Log.Format)

	store, err := app.OpenStore(&cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}
