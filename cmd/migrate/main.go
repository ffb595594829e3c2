package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"career-hub/internal/jobs"
	"career-hub/internal/shared/config"
	"career-hub/internal/shared/storage/db"
	"career-hub/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogFormat, cfg.LogLevel); err != nil {
		os.Exit(1)
	}
	defer telemetry.Sync()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		telemetry.Warn("migrate.version_unknown", map[string]any{"error": err})
	}
	telemetry.Info("migrate.done", map[string]any{"version": version})

	jobsDB, dialect, err := db.OpenJobsDB(ctx, db.JobsConfig{
		Type:        cfg.JobsDBType,
		SQLitePath:  cfg.SQLiteDBPath,
		PostgresURL: cfg.JobsDatabaseURL,
	}, opts)
	if err != nil {
		telemetry.Error("migrate.jobs_connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer jobsDB.Close()
	if err := jobs.NewSQLRepo(jobsDB, dialect).EnsureSchema(ctx); err != nil {
		telemetry.Error("migrate.jobs_schema_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	telemetry.Info("migrate.jobs_schema_ready", map[string]any{"dialect": string(dialect)})
}
