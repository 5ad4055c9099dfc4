package migrate

import (
	"context"
	"fmt"

	"github.com/glowcart/glowcart-backend/pkg/config"
	"github.com/glowcart/glowcart-backend/pkg/db"
	"github.com/glowcart/glowcart-backend/pkg/db/models"
	"github.com/glowcart/glowcart-backend/pkg/logger"
)

// MaybeRunDev migrates the schema automatically in dev when the feature flag is enabled.
// SQLite databases are migrated from the gorm models since the goose files target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if cfg.DB.Driver == config.DriverSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.ReservationSchema()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, "")
	if err != nil {
		return err
	}

	steps, err := runner.Exec(ctx, "up")
	if err != nil {
		return fmt.Errorf("dev auto-migrate: %w", err)
	}
	for _, step := range steps {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":  step.Version,
			"path":     step.Path,
			"duration": step.Duration.String(),
		}), "applied migration")
	}
	logg.Info(logg.WithField(ctx, "applied", len(steps)), "embedded migrations up to date")
	return nil
}
