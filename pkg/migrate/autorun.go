package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// catalogModels are the tables the storefront reads. AutoMigrateModels keeps
// them in sync for sqlite databases, which cannot run the Postgres SQL files.
var catalogModels = []any{
	&models.CatalogProduct{},
	&models.QuantityDiscount{},
	&models.PriceTier{},
	&models.WeightTier{},
	&models.PersonPriceTier{},
	&models.ProductRange{},
	&models.RangeDiscountTier{},
	&models.Section{},
	&models.Setting{},
}

// AutoMigrateModels creates or updates the catalog and settings tables from the gorm models.
func AutoMigrateModels(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.AutoMigrate(catalogModels...); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	return nil
}

// MaybeRunDev migrates the database at boot when running in dev with
// STOREFRONT_AUTO_MIGRATE set. Postgres runs the embedded SQL migrations.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithField(ctx, "driver", cfg.DB.Driver)

	if cfg.DB.Driver == config.DriverSQLite {
		logg.Info(ctx, "migrate.auto_models")
		return AutoMigrateModels(client.DB())
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := NewMigrator(sqlDB, Embedded())
	if err != nil {
		return err
	}
	applied, err := migrator.Up(ctx)
	for _, step := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{"version": step.Version, "duration": step.Duration}), "migrate.applied")
	}
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "migrate.complete")
	return nil
}
