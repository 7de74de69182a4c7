package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/diewo77/go-gstbooks/auth"
	"github.com/diewo77/go-gstbooks/internal/config"
	"github.com/diewo77/go-gstbooks/internal/db"
	"github.com/diewo77/go-gstbooks/internal/ledger"
	"github.com/diewo77/go-gstbooks/internal/logger"
	"github.com/diewo77/go-gstbooks/internal/models"
	"github.com/diewo77/go-gstbooks/internal/reconcile"
	"github.com/diewo77/go-gstbooks/internal/sequence"
	"github.com/diewo77/go-gstbooks/internal/server"
	"github.com/diewo77/go-gstbooks/internal/services"
	"github.com/diewo77/go-gstbooks/internal/store"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

// boltSequenceBucket holds the invoice counter in bolt databases.
const boltSequenceBucket = "invoice_sequence"

// App wires the configured storage backend into the ledger, report service
// and HTTP router.
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	Ledger  *ledger.Ledger
	Reports *services.ReportService
	Engine  *reconcile.Engine
	Tokens  *auth.Tokens
	ping    func(context.Context) error
	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewApp opens storage for cfg.Database.Driver and builds the services on top.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg:    cfg,
		log:    logger.WithComponent("app"),
		Engine: reconcile.NewEngine(),
	}
	seq, st, err := app.openStorage(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	var reports *services.ReportService
	app.Ledger = ledger.New(
		sequence.WithTimeout(seq, cfg.Sequencer.Timeout),
		st,
		ledger.WithPrefix(cfg.Invoice.Prefix),
		ledger.WithCurrency(cfg.Invoice.Currency),
		ledger.WithLogger(logger.WithComponent("ledger")),
		ledger.OnCreate(func(inv *models.Invoice) { reports.InvalidateOn(inv) }),
	)
	reports = services.NewReportService(app.Ledger, cfg.Report.CacheTTL)
	app.Reports = reports

	if cfg.AuthEnabled() {
		app.Tokens = auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	}
	return app, nil
}

func (a *App) openStorage(ctx context.Context) (sequence.Sequencer, store.Store, error) {
	dbCfg := a.cfg.Database
	switch dbCfg.Driver {
	case config.DriverMemory:
		a.log.Warn().Msg("using in-memory storage, invoices are lost on exit")
		return sequence.NewMemory(0), store.NewMemory(), nil

	case config.DriverBolt:
		bdb, err := bolt.Open(dbCfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt %s: %w", dbCfg.Path, err)
		}
		a.closers = append(a.closers, bdb)
		a.ping = func(context.Context) error {
			return bdb.View(func(*bolt.Tx) error { return nil })
		}
		seq, err := sequence.NewBolt(bdb, boltSequenceBucket)
		if err != nil {
			return nil, nil, err
		}
		st, err := store.NewBolt(bdb)
		if err != nil {
			return nil, nil, err
		}
		return seq, st, nil

	case config.DriverSQLite, config.DriverPostgres:
		conn, err := db.Connect(ctx, dbCfg, logger.WithComponent("db"))
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, closerFunc(func() error { return db.Close(conn) }))
		a.ping = func(ctx context.Context) error { return conn.WithContext(ctx).Exec("SELECT 1").Error }
		if err := db.Migrate(ctx, conn, dbCfg.Driver, dbCfg.Migrations); err != nil {
			return nil, nil, err
		}
		return sequence.NewGormCounter(conn, sequence.DefaultCounter), store.NewGorm(conn), nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", dbCfg.Driver)
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return server.New(server.Deps{
		Ledger:    a.Ledger,
		Reports:   a.Reports,
		Reconcile: a.Engine,
		Tokens:    a.Tokens,
		Ping:      a.ping,
		Log:       logger.WithComponent("http"),
	})
}

// Close releases storage in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
