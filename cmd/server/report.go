package main

import (
	"fmt"
	"time"

	"github.com/diewo77/go-gstbooks/internal/report"
	"github.com/diewo77/go-gstbooks/validation"
	"github.com/spf13/cobra"
)

func newReportCmd(g *globals) *cobra.Command {
	var from, to, granularity string
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Print the GST summary for a period",
		Example: `  gstbooks report --from 2025-04-01 --to 2025-07-01 --granularity month`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(validation.DateLayout, from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := time.Parse(validation.DateLayout, to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			app, err := NewApp(cmd.Context(), g.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if granularity == "" {
				r, err := app.Reports.Report(cmd.Context(), start, end)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), r)
			}
			gr, err := report.ParseGranularity(granularity)
			if err != nil {
				return err
			}
			series, err := app.Reports.Series(cmd.Context(), start, end, gr)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), series)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "period start, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "period end, exclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&granularity, "granularity", "", "split into month or quarter periods")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
