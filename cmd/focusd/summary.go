package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/analytics"
)

func newSummaryCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <session-id>",
		Short: "Print the productivity summary for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			id := args[0]
			if _, err := st.GetSession(cmd.Context(), id); err != nil {
				return err
			}
			moments, err := st.MomentsBySession(cmd.Context(), id)
			if err != nil {
				return err
			}

			summary := analytics.Compute(id, moments)
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Session", summary.SessionID},
					{"Moments", fmt.Sprintf("%d", summary.MomentCount)},
					{"Duration (min)", fmt.Sprintf("%.2f", summary.DurationMinutes)},
					{"Productive (min)", fmt.Sprintf("%.2f", summary.ProductiveMinutes)},
					{"Unproductive (min)", fmt.Sprintf("%.2f", summary.UnproductiveMinutes)},
					{"Productivity", fmt.Sprintf("%.2f%%", summary.ProductivityPct)},
					{"Avg distraction", fmt.Sprintf("%.2f%%", summary.DistractionPctAvg)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))

			if len(summary.Services) > 0 {
				rows := make([][]string, 0, len(summary.Services))
				for _, svc := range summary.Services {
					rows = append(rows, []string{svc.Service, fmt.Sprintf("%.2f", svc.Minutes)})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Service", "Minutes"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}
			return nil
		},
	}
}
