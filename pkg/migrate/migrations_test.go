package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/delivery"
	"github.com/angelmondragon/storefront-backend/internal/schedule"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestCatalogMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "create_catalog_tables")

	checks := []string{
		"CREATE TYPE discount_kind AS ENUM ('FLAT', 'PERCENTAGE')",
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS quantity_discounts",
		"CREATE TABLE IF NOT EXISTS price_tiers",
		"CREATE TABLE IF NOT EXISTS weight_tiers",
		"CREATE TABLE IF NOT EXISTS person_price_tiers",
		"CREATE TABLE IF NOT EXISTS product_ranges",
		"CREATE TABLE IF NOT EXISTS range_discount_tiers",
		"CREATE TABLE IF NOT EXISTS sections",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_quantity_discounts_product_min",
		"range_id bigint NOT NULL REFERENCES product_ranges(id) ON DELETE CASCADE",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

// The seeded rows must parse with the same code that reads them at runtime.
func TestSettingsSeedsParse(t *testing.T) {
	content := readMigration(t, "create_settings_table")

	hours := seedValue(t, content, "opening_hours")
	if _, err := schedule.ParseOpeningHours([]byte(hours)); err != nil {
		t.Errorf("opening_hours seed: %v", err)
	}
	rates := seedValue(t, content, "delivery_rates")
	if _, err := delivery.ParseTiers([]byte(rates)); err != nil {
		t.Errorf("delivery_rates seed: %v", err)
	}
	vacations := seedValue(t, content, "vacation_periods")
	if _, err := schedule.ParseVacations([]byte(vacations)); err != nil {
		t.Errorf("vacation_periods seed: %v", err)
	}
}

func seedValue(t *testing.T, content, key string) string {
	t.Helper()
	marker := "('" + key + "', '"
	start := strings.Index(content, marker)
	if start < 0 {
		t.Fatalf("seed %s not found", key)
	}
	rest := content[start+len(marker):]
	end := strings.Index(rest, "'")
	if end < 0 {
		t.Fatalf("seed %s is not terminated", key)
	}
	return rest[:end]
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(onDisk) != len(embedded) {
		t.Fatalf("expected %d embedded migrations, got %d", len(onDisk), len(embedded))
	}
}

func TestValidateFSRejectsBrokenFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {"add_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"duplicate version": {
			"20240101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20240101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down":   {"20240101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"down before up": {"20240101000000_a.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")}},
		"unbalanced":     {"20240101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		if err := migrate.ValidateFS(fsys); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, time.July, 1, 8, 30, 0, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add Pickup Slots!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20240701083000_add_pickup_slots.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add pickup slots", now); err == nil {
		t.Fatal("expected error when the file already exists")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected error for an empty sanitized name")
	}
}
