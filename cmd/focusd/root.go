package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/focusguard/focusd/internal/config"
	"github.com/focusguard/focusd/internal/log"
)

// commandContext carries the lazily-loaded configuration shared by all
// subcommands.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	log.Init(cfg.LogLevel)

	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "focusd",
		Short:         "Webcam focus tracking and productivity recording",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newWorkerCommand(ctx))
	rootCmd.AddCommand(newSessionsCommand(ctx))
	rootCmd.AddCommand(newSummaryCommand(ctx))

	return rootCmd
}
