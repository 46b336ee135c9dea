package migrate_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func sqliteClient(t *testing.T, logg *logger.Logger) *db.Client {
	t.Helper()
	client, err := db.New(context.Background(), config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "storefront.db"),
	}, logg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestMaybeRunDevAutoMigratesSQLite(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	client := sqliteClient(t, logg)

	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		DB:           config.DBConfig{Driver: config.DriverSQLite},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, client); err != nil {
		t.Fatalf("maybe run dev: %v", err)
	}

	for _, table := range []string{"products", "price_tiers", "range_discount_tiers", "sections", "settings"} {
		if !client.DB().Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	client := sqliteClient(t, logg)

	cfg := &config.Config{
		App:          config.AppConfig{Env: "prod"},
		DB:           config.DBConfig{Driver: config.DriverSQLite},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, client); err != nil {
		t.Fatalf("maybe run dev: %v", err)
	}
	if client.DB().Migrator().HasTable("products") {
		t.Fatal("migrations must not run outside dev")
	}
}

func TestAutoMigrateModelsRequiresDB(t *testing.T) {
	if err := migrate.AutoMigrateModels(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}
