/**
 * @description
 * Goose migration runner. Opens a short-lived database/sql connection through
 * the pgx stdlib driver and applies everything under the migrations directory.
 */
package migrations

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Run applies all pending migrations.
func Run(databaseURL, migrationsDir string, logger *slog.Logger) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	dir := resolveDir(migrationsDir)
	logger.Info("applying database migrations", "dir", dir)

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("database migrations applied")
	return nil
}

// resolveDir falls back to well-known locations when the configured directory
// does not exist, which keeps migrations working from both the repo root and
// a container image.
func resolveDir(configured string) string {
	if _, err := os.Stat(configured); err == nil {
		return configured
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return configured
	}

	candidates := []string{
		filepath.Join(currentDir, "migrations"),
		filepath.Join(currentDir, "..", "migrations"),
		"/app/migrations",
	}
	for _, dir := range candidates {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}
	return configured
}
