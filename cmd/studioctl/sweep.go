package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"mediastudio/internal/bootstrap"
	"mediastudio/internal/housekeeping"
	"mediastudio/internal/infra"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var (
		lockPath  string
		stale     time.Duration
		retention time.Duration
		skipPurge bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fail interrupted jobs and purge old failed ones once",
		Long: `Runs one housekeeping pass. Processing jobs not updated within --stale are
marked failed, and failed jobs older than --retention lose their stored objects
and records. Only one sweep runs at a time per lock file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if cfg.DatabaseDriver == infra.DriverMemory {
				return errors.New("the memory driver is process local, nothing to sweep")
			}
			if stale <= 0 {
				stale = cfg.HousekeepingStale
			}
			if retention <= 0 {
				retention = cfg.HousekeepingRetention
			}

			lock := flock.New(lockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another sweep holds %s", lockPath)
			}
			defer lock.Unlock()

			data, err := ctx.openData(cmd)
			if err != nil {
				return err
			}
			defer data.Close()
			store, err := bootstrap.OpenStore(cmd.Context(), cfg, data.Credentials)
			if err != nil {
				return err
			}

			sweeper := housekeeping.NewSweeper(data.Jobs, store, nil, ctx.logger)
			outcomes, err := sweeper.FailStale(cmd.Context(), stale)
			if err != nil {
				return err
			}
			if !skipPurge {
				purged, err := sweeper.PurgeFailed(cmd.Context(), retention)
				if err != nil {
					return err
				}
				outcomes = append(outcomes, purged...)
			}

			out := cmd.OutOrStdout()
			if len(outcomes) == 0 {
				fmt.Fprintln(out, "nothing to sweep")
				return nil
			}
			rows := make([][]string, 0, len(outcomes))
			failures := 0
			for _, o := range outcomes {
				result := "ok"
				if o.Err != nil {
					result = o.Err.Error()
					failures++
				}
				rows = append(rows, []string{o.JobID, o.Owner, string(o.Kind), string(o.Action), result})
			}
			fmt.Fprintln(out, renderTable([]string{"Job", "Owner", "Kind", "Action", "Result"}, rows))
			if failures > 0 {
				return fmt.Errorf("%d of %d jobs could not be swept", failures, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lockPath, "lock", filepath.Join(os.TempDir(), "studioctl-sweep.lock"), "Lock file guarding concurrent sweeps")
	cmd.Flags().DurationVar(&stale, "stale", 0, "Fail processing jobs idle this long (default from HOUSEKEEPING_STALE_MINUTES)")
	cmd.Flags().DurationVar(&retention, "retention", 0, "Purge failed jobs older than this (default from HOUSEKEEPING_RETENTION_HOURS)")
	cmd.Flags().BoolVar(&skipPurge, "no-purge", false, "Only fail stale jobs")
	return cmd
}
