// Package bootstrap wires the process-level runtime shared by the commands.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with demo data.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()
	if r == nil {
		middleware.Logger.Warn("redis unavailable: sessions are kept in memory and token revocation is disabled")
	}

	if opts.SeedDemo {
		if err := seedDemoData(cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

func seedDemoData(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	opts := seed.DefaultOptions()
	opts.ShouldClean = false
	res, err := seed.NewSeeder(db).Seed(opts)
	if err != nil {
		return err
	}
	middleware.Logger.Info("seeded demo data",
		slog.Int("users", res.Users),
		slog.Int("messages", res.Messages),
		slog.String("password", seed.DemoPassword))
	return nil
}
