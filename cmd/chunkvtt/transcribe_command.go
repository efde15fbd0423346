package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chunkvtt/internal/config"
	"chunkvtt/internal/history"
	"chunkvtt/internal/job"
	"chunkvtt/internal/logging"
	"chunkvtt/internal/textutil"
	"chunkvtt/internal/transcribe"
)

type jobRunner interface {
	Run(ctx context.Context, req job.Request) (job.Summary, error)
}

// newJobRunner is swapped by tests to avoid running ffmpeg and a recognizer.
var newJobRunner = func(cfg *config.Config, logger *slog.Logger, opts ...job.Option) jobRunner {
	return job.New(cfg, logger, opts...)
}

type transcribeFlags struct {
	input        string
	output       string
	resume       string
	chunkLength  int
	engine       string
	workDir      string
	keepChunks   bool
	discardStale bool
	keepStale    bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var flags transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe an audio or video file to WebVTT",
		Long: "Split the input into fixed-length chunks, transcribe each chunk and write a WebVTT file.\n" +
			"Progress is saved after every chunk; rerun the same command to resume an interrupted job.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, ctx, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Audio or video file to transcribe")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "WebVTT output path (default: input with .vtt extension)")
	cmd.Flags().StringVar(&flags.resume, "resume", "", "Resume ledger path (default: transcription.resume_file)")
	cmd.Flags().IntVar(&flags.chunkLength, "chunk-length", 0, "Chunk length in seconds (default: transcription.chunk_seconds)")
	cmd.Flags().StringVar(&flags.engine, "engine", "", "Recognizer engine: whisperx, whisper-cpp or openai")
	cmd.Flags().StringVar(&flags.workDir, "work-dir", "", "Directory for chunk files (default: paths.work_dir)")
	cmd.Flags().BoolVar(&flags.keepChunks, "keep-chunks", false, "Keep chunk files after a successful run")
	cmd.Flags().BoolVar(&flags.discardStale, "discard-stale", false, "Discard a corrupt or stale ledger and start over")
	cmd.Flags().BoolVar(&flags.keepStale, "keep-stale", false, "Continue a ledger written for other chunks, appending after its captions")
	cmd.MarkFlagsMutuallyExclusive("discard-stale", "keep-stale")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runTranscribe(cmd *cobra.Command, ctx *commandContext, flags transcribeFlags) error {
	baseCfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applyTranscribeOverrides(*baseCfg, cmd, flags)
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interactive := isInteractive(cmd)
	progress := newProgressReporter(cmd.ErrOrStderr(), logger, interactive)
	opts := []job.Option{
		job.WithObserver(progress.observer()),
		job.WithKeepChunks(cfg.Transcription.KeepChunks),
	}
	if interactive && !flags.discardStale && !flags.keepStale {
		opts = append(opts, job.WithConflictHandler(chooseConflictAction))
	}

	if cfg.Paths.HistoryDB != "" {
		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			logging.WarnWithContext(logger, "history unavailable", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.history_db"),
				logging.String(logging.FieldImpact, "this run is not recorded in chunkvtt history"),
			)
		} else {
			defer store.Close()
			opts = append(opts, job.WithHistory(store))
		}
	}

	output := strings.TrimSpace(flags.output)
	if output == "" {
		output = defaultOutputPath(flags.input)
	}

	summary, err := newJobRunner(cfg, logger, opts...).Run(signalCtx, job.Request{
		Source:       flags.input,
		Output:       output,
		Ledger:       flags.resume,
		DiscardStale: flags.discardStale,
		KeepStale:    flags.keepStale,
	})
	progress.finish()
	if err != nil {
		if signalCtx.Err() != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Interrupted; progress saved to %s. Rerun the same command to resume.\n", summary.Ledger)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%s captions, %s of audio%s)\n",
		summary.Output,
		humanize.Comma(int64(summary.Captions)),
		time.Duration(summary.TotalSeconds*float64(time.Second)).Round(time.Second).String(),
		textutil.Ternary(summary.Resumed, fmt.Sprintf(", resumed after %d chunks", summary.Skipped), ""),
	)
	for _, warning := range summary.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	return nil
}

// applyTranscribeOverrides returns a copy of cfg with command line overrides
// applied and revalidated.
func applyTranscribeOverrides(cfg config.Config, cmd *cobra.Command, flags transcribeFlags) (*config.Config, error) {
	if cmd.Flags().Changed("chunk-length") {
		cfg.Transcription.ChunkSeconds = flags.chunkLength
	}
	if engine := strings.TrimSpace(flags.engine); engine != "" {
		cfg.Recognizer.Engine = strings.ToLower(engine)
	}
	if cmd.Flags().Changed("keep-chunks") {
		cfg.Transcription.KeepChunks = flags.keepChunks
	}
	if dir := strings.TrimSpace(flags.workDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve work dir: %w", err)
		}
		cfg.Paths.WorkDir = expanded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultOutputPath(input string) string {
	input = strings.TrimSpace(input)
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".vtt"
}

func chooseConflictAction(_ context.Context, ledgerPath string, cause error) (job.ConflictAction, error) {
	options := []huh.Option[job.ConflictAction]{
		huh.NewOption("Discard it and start over", job.ConflictDiscard),
	}
	if errors.Is(cause, transcribe.ErrStaleChunks) {
		options = append(options, huh.NewOption("Keep it and append the new captions", job.ConflictKeep))
	}
	options = append(options, huh.NewOption("Abort", job.ConflictAbort))

	action := job.ConflictAbort
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[job.ConflictAction]().
				Title("The resume ledger cannot be resumed as is").
				Description(fmt.Sprintf("%s\n%v", ledgerPath, cause)).
				Options(options...).
				Value(&action),
		),
	)
	if err := form.Run(); err != nil {
		return job.ConflictAbort, err
	}
	return action, nil
}
