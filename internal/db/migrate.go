package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-gstbooks/internal/config"
	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/internal/sequence"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrate brings the schema up to date. With useSQL the embedded SQL
// migrations for the driver run through golang-migrate; otherwise gorm
// AutoMigrate creates the tables from the models. Either way the invoice
// counter row exists afterwards.
func Migrate(ctx context.Context, conn *gorm.DB, driver string, useSQL bool) error {
	if useSQL {
		if err := runSQLMigrations(conn, driver); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	} else {
		for _, m := range []any{&models.Invoice{}, &models.LineItem{}, &models.Counter{}} {
			if err := conn.WithContext(ctx).AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range []string{"invoices", "line_items", "invoice_counters"} {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return sequence.NewGormCounter(conn, sequence.DefaultCounter).Ensure(ctx)
}

// runSQLMigrations applies migrations/<driver>. The migrate instance is not
// closed: its database driver would close the shared *sql.DB.
func runSQLMigrations(conn *gorm.DB, driver string) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	var (
		name string
		inst database.Driver
	)
	switch driver {
	case config.DriverSQLite:
		name = "sqlite3"
		inst, err = sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	case config.DriverPostgres:
		name = "postgres"
		inst, err = migratepg.WithInstance(sqlDB, &migratepg.Config{})
	default:
		return fmt.Errorf("no sql migrations for driver %q", driver)
	}
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationFiles, "migrations/"+name)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, name, inst)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
