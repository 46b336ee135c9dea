package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = "migration command: up|down|status|version|create|validate|check-settings"

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", "", "migrations directory (default: migrations embedded in the binary)")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate work on files only
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		exitOn(err, "create migration")
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOn(migrate.ValidateFS(migrate.Source(*dir)), "validate migrations")
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Env:         cfg.App.Env,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "driver": cfg.DB.Driver})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if *cmd == "check-settings" {
		os.Exit(checkSettings(ctx, logg, dbClient))
	}

	if cfg.DB.Driver == config.DriverSQLite {
		// the SQL files are written for Postgres
		if *cmd != "up" {
			exitOn(fmt.Errorf("sqlite databases only support -cmd=up"), *cmd)
		}
		exitOn(migrate.AutoMigrateModels(dbClient.DB()), "auto migrate")
		logg.Info(ctx, "migrate.auto_models")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	exitOn(err, "sql handle")
	migrator, err := migrate.NewMigrator(sqlDB, migrate.Source(*dir))
	exitOn(err, "migrator")

	var applied []migrate.Applied
	switch *cmd {
	case "up":
		applied, err = migrator.Up(ctx)
	case "down":
		applied, err = migrator.Down(ctx)
	case "version":
		if *version == "" {
			exitOn(fmt.Errorf("missing -version"), *cmd)
		}
		applied, err = migrator.To(ctx, *version)
	case "status":
		lines, statusErr := migrator.Status(ctx)
		exitOn(statusErr, *cmd)
		for _, line := range lines {
			fmt.Println(line)
		}
		return
	default:
		exitOn(fmt.Errorf("unknown -cmd value %q (%s)", *cmd, usage), "flags")
	}
	for _, step := range applied {
		fmt.Printf("%-4s %d %s (%s)\n", step.Direction, step.Version, step.Path, step.Duration)
	}
	exitOn(err, *cmd)
}

// checkSettings loads every settings entry without the cache. Malformed
// entries, which the API would silently replace by defaults, fail the run.
func checkSettings(ctx context.Context, logg *logger.Logger, client *db.Client) int {
	svc := settings.NewService(settings.NewRepository(client.DB()), settings.Options{Logger: logg})
	failures := map[string]error{
		settings.KeyOpeningHours:      svc.OpeningHours(ctx).Err,
		settings.KeyVacationPeriods:   svc.VacationPeriods(ctx).Err,
		settings.KeyDeliveryRates:     svc.DeliveryRates(ctx).Err,
		settings.KeyQuantityDiscounts: svc.QuantityDiscounts(ctx).Err,
	}
	code := 0
	for _, key := range []string{settings.KeyOpeningHours, settings.KeyVacationPeriods, settings.KeyDeliveryRates, settings.KeyQuantityDiscounts} {
		err := failures[key]
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			fmt.Printf("%-20s not configured, default used\n", key)
			continue
		}
		if err != nil {
			fmt.Printf("%-20s invalid, default used (%v)\n", key, err)
			code = 1
			continue
		}
		fmt.Printf("%-20s ok\n", key)
	}
	return code
}

func exitOn(err error, step string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
