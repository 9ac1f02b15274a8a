package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"stockhouse-backend/internal/application/advisor"
	"stockhouse-backend/internal/application/dataset"
	"stockhouse-backend/internal/config"
	"stockhouse-backend/internal/infrastructure/database"
	"stockhouse-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const devDatabaseURL = "sqlite://stockhouse.db"

// SetupLogging configures the global zerolog logger: JSON in production, console otherwise.
func SetupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// OpenDB opens and pings the configured database. Outside production an empty
// DATABASE_URL falls back to a local SQLite file.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		dsn = devDatabaseURL
	}
	db, err := database.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

// OpenRedis connects to REDIS_URL. An empty URL outside production returns nil.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("REDIS_URL is required in production")
		}
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}

// Deps assembles router dependencies: the advisor model when a key is set and the dataset
// summary when DATASET_PATH is readable. Neither is fatal.
func Deps(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client) router.Deps {
	deps := router.Deps{DB: db, Rdb: rdb}
	if cfg.GeminiAPIKey != "" {
		gen, err := advisor.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("advisor disabled")
		} else {
			deps.Generator = gen
		}
	}
	if cfg.DatasetPath != "" {
		summary, err := dataset.LoadSummary(cfg.DatasetPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.DatasetPath).Msg("dataset summary unavailable")
		} else {
			deps.Dataset = summary.String()
			log.Info().Int("rows", summary.Count).Msg("dataset summary loaded")
		}
	}
	return deps
}

// New loads config, connects and migrates, and returns the Fiber app. Used by the
// serverless entry point.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	SetupLogging(cfg)
	ctx := context.Background()
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	rdb, err := OpenRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return router.CreateApp(cfg, Deps(ctx, cfg, db, rdb)), nil
}
