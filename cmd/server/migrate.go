package main

import (
	"fmt"

	"github.com/diewo77/go-gstbooks/internal/config"
	"github.com/diewo77/go-gstbooks/internal/db"
	"github.com/diewo77/go-gstbooks/internal/logger"
	"github.com/spf13/cobra"
)

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.WithComponent("migrate")
			dbCfg := g.cfg.Database
			if dbCfg.Driver != config.DriverSQLite && dbCfg.Driver != config.DriverPostgres {
				log.Info().Str("driver", dbCfg.Driver).Msg("driver has no schema, nothing to migrate")
				return nil
			}
			conn, err := db.Connect(cmd.Context(), dbCfg, logger.WithComponent("db"))
			if err != nil {
				return err
			}
			defer db.Close(conn)
			if err := db.Migrate(cmd.Context(), conn, dbCfg.Driver, dbCfg.Migrations); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Bool("sql", dbCfg.Migrations).Msg("migrations completed")
			return nil
		},
	}
}
