package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediastudio/internal/infra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema for the configured driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if err := infra.Migrate(cmd.Context(), cfg, ctx.logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", cfg.DatabaseDriver)
			return nil
		},
	}
}
