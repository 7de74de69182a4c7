// Package db opens the gorm connection and applies schema migrations.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-gstbooks/internal/config"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection retry policy. Postgres containers often need a few seconds.
var (
	ConnectAttempts = 10
	ConnectBackoff  = 2 * time.Second
)

// Connect opens a gorm connection for the sqlite or postgres driver and
// verifies it with a ping. SQLite gets a single open connection so writers
// queue in the pool instead of failing with "database is locked".
func Connect(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	dsn := cfg.DSN
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	case config.DriverPostgres:
		dsn = NormalizeDSN(dsn)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("driver %q has no sql connection", cfg.Driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is empty")
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel), TranslateError: true}

	log.Info().Str("driver", cfg.Driver).Str("dsn", MaskDSN(dsn)).Msg("connecting to database")
	var (
		conn *gorm.DB
		err  error
	)
	for attempt := 1; attempt <= ConnectAttempts; attempt++ {
		conn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			err = ping(ctx, conn)
		}
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("database not ready, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ConnectBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database after %d attempts: %w", ConnectAttempts, err)
	}

	if cfg.Driver == config.DriverSQLite {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return conn, nil
}

func ping(ctx context.Context, conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool behind conn.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
