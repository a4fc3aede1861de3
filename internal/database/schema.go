package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"estate/internal/config"
	"estate/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted in DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for a given configuration.
type SchemaPlan struct {
	Mode        string
	Env         string
	SQL         bool
	AutoMigrate bool
}

// MigrationState pairs a known migration with whether it has been applied.
type MigrationState struct {
	Migration
	Applied bool
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment. AutoMigrate
// is never planned for production-like environments, and sqlite always
// uses AutoMigrate because the SQL files target postgres.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{Mode: cfg.DBSchemaMode, Env: cfg.Env}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	if driverName(cfg) == DriverSQLite {
		plan.Mode = SchemaModeAuto
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Env)) {
	case "production", "prod", "staging", "stage":
		if plan.Mode == SchemaModeAuto {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		plan.SQL = true
		return plan, validMode(plan.Mode)
	}

	switch plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeAuto:
		plan.AutoMigrate = true
	case SchemaModeHybrid:
		plan.SQL, plan.AutoMigrate = true, true
	}
	return plan, validMode(plan.Mode)
}

func validMode(mode string) error {
	switch mode {
	case SchemaModeHybrid, SchemaModeSQL, SchemaModeAuto:
		return nil
	}
	return fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
}

// ApplySchema brings the schema up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}
	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.AutoMigrate {
		middleware.Logger.Info("auto-migrating models",
			slog.String("mode", plan.Mode), slog.String("env", plan.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// MigrationStates lists every embedded migration with its applied flag.
func MigrationStates(ctx context.Context, db *gorm.DB) ([]MigrationState, error) {
	versions, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	all := GetMigrations()
	states := make([]MigrationState, 0, len(all))
	for _, m := range all {
		states = append(states, MigrationState{Migration: m, Applied: applied[m.Version]})
	}
	return states, nil
}
