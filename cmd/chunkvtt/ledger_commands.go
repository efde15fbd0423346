package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chunkvtt/internal/caption"
	"chunkvtt/internal/ledger"
	"chunkvtt/internal/textutil"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or discard the resume ledger",
	}

	ledgerCmd.AddCommand(newLedgerShowCommand(ctx))
	ledgerCmd.AddCommand(newLedgerDiscardCommand(ctx))

	return ledgerCmd
}

type ledgerView struct {
	Path            string          `json:"path"`
	Exists          bool            `json:"exists"`
	SizeBytes       int64           `json:"size_bytes,omitempty"`
	Locked          bool            `json:"locked"`
	SchemaVersion   int             `json:"schema_version"`
	TotalSeconds    float64         `json:"total_seconds"`
	CaptionCount    int             `json:"caption_count"`
	CompletedChunks int             `json:"completed_chunks"`
	Job             *ledger.JobInfo `json:"job,omitempty"`
	LastCaptions    []captionJSON   `json:"last_captions,omitempty"`
}

func newLedgerShowCommand(ctx *commandContext) *cobra.Command {
	var resumePath string
	var last int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show progress recorded in the resume ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := cfg.ResumePath(resumePath)
			if err != nil {
				return fmt.Errorf("resolve ledger path: %w", err)
			}
			state, err := ledger.Load(path)
			if err != nil {
				return err
			}

			view := ledgerView{
				Path:            path,
				SchemaVersion:   state.SchemaVersion,
				TotalSeconds:    state.TotalSeconds,
				CaptionCount:    len(state.Captions),
				CompletedChunks: len(state.DoneChunks()),
				Job:             state.Job,
			}
			if info, statErr := os.Stat(path); statErr == nil {
				view.Exists = true
				view.SizeBytes = info.Size()
			}
			if view.Locked, err = ledger.IsLocked(path); err != nil {
				return err
			}

			tail := lastCaptions(state.Captions, last)
			if asJSON {
				if len(tail) > 0 {
					view.LastCaptions = captionsJSON(tail, len(state.Captions)-len(tail))
				}
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			if !view.Exists {
				fmt.Fprintf(out, "No ledger at %s; the next run starts from the beginning\n", path)
				return nil
			}
			printLedgerView(out, view)
			if len(tail) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderCaptionTable(tail, len(state.Captions)-len(tail)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resumePath, "resume", "", "Resume ledger path (default: transcription.resume_file)")
	cmd.Flags().IntVarP(&last, "last", "n", 5, "Number of trailing captions to show (also included in --json output)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the ledger summary as JSON")
	return cmd
}

func printLedgerView(out io.Writer, view ledgerView) {
	fmt.Fprintf(out, "Ledger:     %s (%s)\n", view.Path, humanize.Bytes(uint64(view.SizeBytes)))
	fmt.Fprintf(out, "Locked:     %s\n", yesNo(view.Locked))
	fmt.Fprintf(out, "Schema:     v%d\n", view.SchemaVersion)
	fmt.Fprintf(out, "Chunks:     %d completed\n", view.CompletedChunks)
	fmt.Fprintf(out, "Timeline:   %s\n", timestampCell(view.TotalSeconds))
	fmt.Fprintf(out, "Captions:   %s\n", humanize.Comma(int64(view.CaptionCount)))
	if job := view.Job; job != nil {
		if job.Source != "" {
			fmt.Fprintf(out, "Source:     %s\n", job.Source)
		}
		if job.ChunkCount > 0 {
			fmt.Fprintf(out, "Progress:   %d/%d chunks of %ds\n", view.CompletedChunks, job.ChunkCount, job.ChunkSeconds)
		}
		if job.Recognizer != "" {
			fmt.Fprintf(out, "Recognizer: %s\n", job.Recognizer)
		}
		if job.RunID != "" {
			fmt.Fprintf(out, "Run ID:     %s\n", job.RunID)
		}
		if !job.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "Updated:    %s\n", humanize.Time(job.UpdatedAt))
		}
	}
}

func lastCaptions(captions []caption.Caption, n int) []caption.Caption {
	if n <= 0 || len(captions) == 0 {
		return nil
	}
	if n > len(captions) {
		n = len(captions)
	}
	return captions[len(captions)-n:]
}

func renderCaptionTable(captions []caption.Caption, offset int) string {
	rows := make([][]string, 0, len(captions))
	for i, c := range captions {
		rows = append(rows, []string{
			strconv.Itoa(offset + i + 1),
			timestampCell(c.Start),
			timestampCell(c.End),
			textutil.Ternary(c.SourceChunk != "", filepath.Base(c.SourceChunk), "-"),
			textutil.Truncate(c.Text, 60),
		})
	}
	footer := ""
	if offset > 0 {
		footer = fmt.Sprintf("last %d of %d captions", len(captions), offset+len(captions))
	}
	return renderTable(
		[]column{right("#"), right("Start"), right("End"), left("Chunk"), left("Text")},
		rows,
		footer,
	)
}

func newLedgerDiscardCommand(ctx *commandContext) *cobra.Command {
	var resumePath string

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Delete the resume ledger so the next run starts over",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := cfg.ResumePath(resumePath)
			if err != nil {
				return fmt.Errorf("resolve ledger path: %w", err)
			}

			lock, err := ledger.AcquireLock(path)
			if err != nil {
				if errors.Is(err, ledger.ErrLocked) {
					return fmt.Errorf("a transcription is running on %s; stop it before discarding", path)
				}
				return err
			}
			defer lock.Release()

			out := cmd.OutOrStdout()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(out, "No ledger at %s\n", path)
				return nil
			}
			if err := ledger.Discard(path); err != nil {
				return err
			}
			fmt.Fprintf(out, "Discarded %s\n", strings.TrimSpace(path))
			return nil
		},
	}

	cmd.Flags().StringVar(&resumePath, "resume", "", "Resume ledger path (default: transcription.resume_file)")
	return cmd
}
