package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"go-gin-gorm-rbac/internal/feature/user"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Migrate brings the schema up to date. Postgres runs the versioned SQL
// migrations; the other drivers get gorm's AutoMigrate of the same models.
func Migrate(ctx context.Context, db *gorm.DB, driver string) error {
	if driver != "postgres" {
		if err := db.WithContext(ctx).AutoMigrate(user.Models()...); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		return nil
	}
	return withGoose(db, func(sqlDB *sql.DB) error {
		return goose.UpContext(ctx, sqlDB, migrationsDir)
	})
}

// Rollback reverts the latest postgres migration.
func Rollback(ctx context.Context, db *gorm.DB, driver string) error {
	if driver != "postgres" {
		return fmt.Errorf("%w: rollback needs postgres migrations, got %q", ErrUnsupportedDriver, driver)
	}
	return withGoose(db, func(sqlDB *sql.DB) error {
		return goose.DownContext(ctx, sqlDB, migrationsDir)
	})
}

func withGoose(db *gorm.DB, run func(*sql.DB) error) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := run(sqlDB); err != nil {
		return fmt.Errorf("goose: %w", err)
	}
	return nil
}
