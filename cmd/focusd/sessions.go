package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/focusguard/focusd/internal/store"
)

func newSessionsCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
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

			sessions, err := st.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions recorded")
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, sess := range sessions {
				ended := "active"
				if sess.EndedAt != nil {
					ended = sess.EndedAt.Local().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{
					sess.ID,
					sess.StartedAt.Local().Format("2006-01-02 15:04:05"),
					ended,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Started", "Ended"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
