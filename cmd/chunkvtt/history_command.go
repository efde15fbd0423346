package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chunkvtt/internal/history"
	"chunkvtt/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past transcription jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.HistoryDB == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "History disabled (paths.history_db is empty)")
				return nil
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, jobs)
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(jobs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output jobs as JSON")
	return cmd
}

func renderHistoryTable(jobs []history.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		chunks := strconv.Itoa(j.Processed + j.Skipped)
		if j.ChunkCount > 0 {
			chunks = fmt.Sprintf("%d/%d", j.Processed+j.Skipped, j.ChunkCount)
		}
		elapsed := "-"
		if d := j.Elapsed(); d > 0 {
			elapsed = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			strconv.FormatInt(j.ID, 10),
			humanize.Time(j.StartedAt),
			string(j.Status),
			filepath.Base(j.Source),
			j.Engine,
			chunks,
			humanize.Comma(int64(j.Captions)),
			elapsed,
			textutil.Truncate(textutil.Ternary(j.ErrorMessage != "", j.ErrorMessage, "-"), 48),
		})
	}
	return renderTable(
		[]column{
			right("ID"), left("Started"), left("Status"), left("Source"), left("Engine"),
			right("Chunks"), right("Captions"), right("Elapsed"), left("Error"),
		},
		rows,
		"",
	)
}
