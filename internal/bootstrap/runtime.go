// Package bootstrap connects the runtime dependencies shared by the server
// and the command-line tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"estate/internal/auth"
	"estate/internal/cache"
	"estate/internal/config"
	"estate/internal/database"
	"estate/internal/models"
	"estate/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty database with demo users, listings and sales.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis, ensures the development root
// account and optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(ctx, cfg.RedisURL)

	if err := EnsureDevRoot(ctx, cfg, db, auth.NewBcryptHasher()); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root user: %w", err)
	}

	if opts.SeedDemo {
		if _, err := seed.NewSeeder(db, seed.Options{}).SeedIfEmpty(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevRoot creates or re-activates the development root account when
// DEV_BOOTSTRAP_ROOT is enabled in the development environment.
func EnsureDevRoot(ctx context.Context, cfg *config.Config, db *gorm.DB, hasher auth.Hasher) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@estate.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashed, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username:  &username,
				FirstName: "Root",
				LastName:  "User",
				Email:     email,
				Password:  hashed,
				Status:    models.UserStatusActive,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", root.ID).
				Update("status", models.UserStatusActive).Error
		}
	})
	if err != nil {
		return err
	}

	log.Printf("development root user bootstrap ensured (%s)", email)
	return nil
}
