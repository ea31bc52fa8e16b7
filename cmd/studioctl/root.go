package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mediastudio/internal/bootstrap"
	"mediastudio/internal/infra"
)

// commandContext loads configuration once per invocation.
type commandContext struct {
	cfg    *infra.Config
	logger infra.Logger
}

func (c *commandContext) config() (*infra.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	_ = godotenv.Load()
	cfg, err := infra.LoadToolConfig()
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.logger = infra.NewLogger(cfg.AppEnv, "studioctl")
	return cfg, nil
}

func (c *commandContext) openData(cmd *cobra.Command) (*bootstrap.Data, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return bootstrap.OpenData(cmd.Context(), cfg, c.logger)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "studioctl",
		Short:         "Operator commands for the media studio",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newSweepCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newProviderKeyCommand(ctx))

	return rootCmd
}
