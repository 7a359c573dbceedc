// Command seasonsim plays a RunStrict territory season one day at a time and
// renders each day as SQL for the app database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/talgya/runstrict-season/internal/config"
	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/observability"
	"github.com/talgya/runstrict-season/internal/persistence"
	"github.com/talgya/runstrict-season/internal/publish"
	"github.com/talgya/runstrict-season/internal/world"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seasonsim",
		Short: "RunStrict day-by-day season simulator",
		Long: `seasonsim generates one season day at a time: synthetic runs, hex flips,
buff multipliers and defections, persisted between invocations.

Run "day 1" first (creates users), then "day 2", "day 3" and so on.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().String("db", "", "Season database path (overrides config)")
	rootCmd.PersistentFlags().Int64("seed", 0, "Random seed for a new season (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newDayCmd(),
		newRunCmd(),
		newStatusCmd(),
		newResetCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "seasonsim version %s\n", version)
		},
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	db      *persistence.DB
	sim     *engine.Simulator
	metrics *observability.Metrics

	pg    *publish.Postgres
	kafka *publish.Kafka
}

// openApp loads configuration, applies flag overrides, installs the logger
// and opens the season database.
func openApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Storage.DBPath = db
	}
	if cmd.Flags().Changed("seed") {
		cfg.Season.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, _ := cfg.Logging.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})))

	ec, err := cfg.Engine()
	if err != nil {
		return nil, err
	}
	sim, err := engine.NewSimulator(ec, world.HexGrid{})
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Storage.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", cfg.Storage.DBPath)

	return &app{cfg: cfg, db: db, sim: sim, metrics: observability.NewMetrics()}, nil
}

// connectPublishers opens the publishers enabled in the config.
func (a *app) connectPublishers(ctx context.Context) error {
	if url := a.cfg.Publish.PostgresURL; url != "" {
		pg, err := publish.NewPostgres(ctx, url)
		if err != nil {
			return err
		}
		a.pg = pg
	}
	if brokers := a.cfg.Publish.KafkaBrokers; len(brokers) > 0 {
		a.kafka = publish.NewKafka(brokers, a.cfg.Publish.KafkaTopic)
	}
	return nil
}

func (a *app) Close() {
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			slog.Warn("closing kafka writer", "error", err)
		}
	}
	if a.pg != nil {
		a.pg.Close()
	}
	a.db.Close()
}
