package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediastudio/internal/domain"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var (
		owner string
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List an owner's jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner = strings.TrimSpace(owner)
			if owner == "" {
				return errors.New("--owner is required")
			}
			kinds := []domain.JobKind{domain.JobKindPodcast, domain.JobKindVideo}
			if kind != "" {
				k, err := domain.ParseJobKind(kind)
				if err != nil {
					return err
				}
				kinds = []domain.JobKind{k}
			}

			data, err := ctx.openData(cmd)
			if err != nil {
				return err
			}
			defer data.Close()

			var jobs []*domain.Job
			for _, k := range kinds {
				list, err := data.Jobs.ListByOwner(cmd.Context(), owner, k, limit)
				if err != nil {
					return err
				}
				jobs = append(jobs, list...)
			}
			sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
			if len(jobs) > limit {
				jobs = jobs[:limit]
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintf(out, "no jobs for %s\n", owner)
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				detail := ""
				if j.Error != nil {
					detail = j.Error.Stage + ": " + j.Error.Message
				}
				rows = append(rows, []string{
					j.ID,
					string(j.Kind),
					string(j.Status),
					j.Inputs.Title,
					strconv.Itoa(len(j.Artifacts.Objects())),
					j.CreatedAt.Local().Format(time.DateTime),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Kind", "Status", "Title", "Objects", "Created", "Error"}, rows, 5))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id (token subject)")
	cmd.Flags().StringVar(&kind, "kind", "", "Only podcast or video jobs")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs")
	return cmd
}
