// Command server runs the GST books API and its maintenance commands.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/diewo77/go-gstbooks/internal/config"
	"github.com/diewo77/go-gstbooks/internal/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

type globals struct {
	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "gstbooks",
		Short:         "GST invoicing, bank reconciliation and tax reports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			closer, err := logger.Setup(logger.LogConfig{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cfg.Log.Output,
			})
			if err != nil {
				return err
			}
			g.cfg, g.logCloser = cfg, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if g.logCloser != nil {
				return g.logCloser.Close()
			}
			return nil
		},
	}
	root.AddCommand(
		newServeCmd(g),
		newMigrateCmd(g),
		newReconcileCmd(g),
		newReportCmd(g),
		newTokenCmd(g),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
