package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockhouse-backend/bootstrap"
	"stockhouse-backend/internal/application/dataset"
	"stockhouse-backend/internal/application/properties"
	"stockhouse-backend/internal/config"
	"stockhouse-backend/internal/infrastructure/database"
	"stockhouse-backend/internal/interfaces/router"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	ingestTotalShares int64
	ingestCap         int64
	ingestLimit       int
)

var rootCmd = &cobra.Command{
	Use:   "stockhouse",
	Short: "StockHouse fractional real-estate API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("config load: %w", err)
		}
		cfg = c
		bootstrap.SetupLogging(cfg)
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bootstrap.OpenDB(cfg)
		if err != nil {
			return err
		}
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Msg("schema migrated")
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [csv file]",
	Short: "Upsert property listings from a dataset CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		rows, err := dataset.ReadCSV(f, ingestLimit)
		if err != nil {
			return err
		}

		db, err := bootstrap.OpenDB(cfg)
		if err != nil {
			return err
		}
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		svc := &properties.Service{DB: db}
		res, err := svc.Ingest(cmd.Context(), properties.IngestInput{
			Rows:            rows,
			TotalShares:     ingestTotalShares,
			PerUserShareCap: ingestCap,
		})
		if err != nil {
			return err
		}
		log.Info().
			Int("ingested", res.Ingested).
			Int("created", res.Created).
			Int("updated", res.Updated).
			Int("skipped", res.Skipped).
			Msg("ingest complete")
		return nil
	},
}

func init() {
	ingestCmd.Flags().Int64Var(&ingestTotalShares, "total-shares", 0, "shares per new listing (default 10000)")
	ingestCmd.Flags().Int64Var(&ingestCap, "cap", 0, "per-user share cap for new listings (default 200)")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "max rows to read, 0 for all")

	rootCmd.RunE = runServe
	rootCmd.AddCommand(serveCmd, migrateCmd, ingestCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	log.Info().Msg("database connected")

	rdb, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	if rdb != nil {
		log.Info().Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_URL not set, token denylist and health counters disabled")
	}

	app := router.CreateApp(cfg, bootstrap.Deps(ctx, cfg, db, rdb))

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", "http://localhost:"+cfg.Port).
			Str("health", "http://localhost:"+cfg.Port+"/health/json").
			Msg("server running")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
