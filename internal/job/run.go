package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"chunkvtt/internal/caption"
	"chunkvtt/internal/chunker"
	"chunkvtt/internal/config"
	"chunkvtt/internal/history"
	"chunkvtt/internal/ledger"
	"chunkvtt/internal/logging"
	"chunkvtt/internal/notifications"
	"chunkvtt/internal/preflight"
	"chunkvtt/internal/services"
	"chunkvtt/internal/transcribe"
)

// Run executes one job end to end: lock the ledger, check prerequisites,
// chunk the source, transcribe with resume, write the WebVTT output, then
// discard the ledger. The ledger is only removed once the output is on disk,
// so any failure leaves the job resumable.
func (r *Runner) Run(ctx context.Context, req Request) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: logging.NewRunID(), Engine: r.cfg.Recognizer.Engine}
	if err := r.resolvePaths(req, &summary); err != nil {
		return summary, err
	}

	ctx = services.WithRunID(ctx, summary.RunID)
	ctx = services.WithSource(ctx, summary.Source)
	logger := logging.WithContext(ctx, r.logger)

	lock, err := ledger.AcquireLock(summary.Ledger)
	if err != nil {
		if errors.Is(err, ledger.ErrLocked) {
			return summary, services.Wrap(services.ErrValidation, "job", "lock", "another run is using "+summary.Ledger, err)
		}
		return summary, services.Wrap(services.ErrConfiguration, "job", "lock", "acquire ledger lock", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Debug("release ledger lock", logging.Error(err))
		}
	}()

	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("output", summary.Output),
		logging.String("ledger", summary.Ledger),
		logging.String("engine", summary.Engine),
		logging.Int("chunk_seconds", r.cfg.Transcription.ChunkSeconds),
	)
	historyID := r.startHistory(ctx, logger, summary, started)

	err = r.execute(ctx, logger, req, &summary)
	summary.Elapsed = time.Since(started)
	if err != nil {
		r.handleFailure(ctx, logger, historyID, summary, err)
		return summary, err
	}

	r.finishHistory(ctx, logger, historyID, summary, history.StatusCompleted, nil)
	if notifyErr := r.notifier.Publish(ctx, notifications.EventJobCompleted, notifications.Payload{
		"source":   summary.Source,
		"output":   summary.Output,
		"captions": summary.Captions,
		"duration": summary.TotalSeconds,
		"resumed":  summary.Resumed,
	}); notifyErr != nil {
		logging.WarnWithContext(logger, "completion notification failed", "notification_failed",
			logging.Error(notifyErr),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "no push notification for this job"),
		)
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("output", summary.Output),
		logging.Int("captions", summary.Captions),
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped),
		logging.Float64("total_seconds", summary.TotalSeconds),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (r *Runner) resolvePaths(req Request, summary *Summary) error {
	if strings.TrimSpace(req.Source) == "" {
		return services.Wrap(services.ErrValidation, "job", "input", "input path required", nil)
	}
	if strings.TrimSpace(req.Output) == "" {
		return services.Wrap(services.ErrValidation, "job", "output", "output path required", nil)
	}
	source, err := config.ExpandPath(req.Source)
	if err != nil {
		return services.Wrap(services.ErrValidation, "job", "input", "resolve input path", err)
	}
	output, err := config.ExpandPath(req.Output)
	if err != nil {
		return services.Wrap(services.ErrValidation, "job", "output", "resolve output path", err)
	}
	if source == output {
		return services.Wrap(services.ErrValidation, "job", "output", "output would overwrite the input", nil)
	}
	ledgerPath, err := r.cfg.ResumePath(req.Ledger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "job", "ledger", "resolve ledger path", err)
	}
	summary.Source = source
	summary.Output = output
	summary.Ledger = ledgerPath
	return nil
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, req Request, summary *Summary) error {
	if err := preflight.Err(append(r.preflight(ctx, r.cfg), preflight.CheckSourceReadable(summary.Source))); err != nil {
		return err
	}

	rec, err := r.newRecognizer(r.cfg, logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "job", "recognizer", "build recognizer", err)
	}
	if closer, ok := rec.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Debug("close recognizer", logging.Error(err))
			}
		}()
	}

	chunkSeconds := r.cfg.Transcription.ChunkSeconds
	chunkDir, err := chunker.ChunkDir(r.cfg.Paths.WorkDir, summary.Source, chunkSeconds)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "job", "chunk dir", "derive chunk directory", err)
	}
	chunks, err := r.splitter.Split(services.WithStage(ctx, "chunking"), summary.Source, chunkDir, chunkSeconds)
	if err != nil {
		return err
	}
	summary.ChunkCount = len(chunks)

	opts := transcribe.Options{
		NominalSeconds: float64(chunkSeconds),
		Observer:       r.observer,
		Logger:         logger,
		KeepLedger:     true,
		Job: ledger.JobInfo{
			Source:       summary.Source,
			ChunkSeconds: chunkSeconds,
			ChunkCount:   len(chunks),
			Recognizer:   rec.Name(),
			RunID:        summary.RunID,
		},
	}
	transcribeCtx := services.WithStage(ctx, "transcription")
	result, err := transcribe.Run(transcribeCtx, chunks, rec, summary.Ledger, opts)
	if errors.Is(err, ledger.ErrCorrupt) || errors.Is(err, transcribe.ErrStaleChunks) {
		action, conflictErr := r.resolveConflict(ctx, summary.Ledger, req, err)
		if conflictErr != nil {
			return conflictErr
		}
		if action == ConflictKeep && errors.Is(err, ledger.ErrCorrupt) {
			action = ConflictAbort
		}
		switch action {
		case ConflictDiscard:
			logging.WarnWithContext(logger, "discarding unusable ledger", "ledger_discarded",
				logging.String("ledger", summary.Ledger),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "previous progress for this ledger is lost"),
				logging.String(logging.FieldImpact, "all chunks are transcribed again"),
			)
			if err := ledger.Discard(summary.Ledger); err != nil {
				return services.Wrap(services.ErrConfiguration, "transcription", "ledger", "discard ledger", err)
			}
		case ConflictKeep:
			logging.WarnWithContext(logger, "continuing ledger written for other chunks", "ledger_kept",
				logging.String("ledger", summary.Ledger),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "use chunkvtt ledger show to inspect the earlier captions"),
				logging.String(logging.FieldImpact, "new captions start after the ledger's timeline"),
			)
			opts.AllowForeignLedger = true
		default:
			return services.Wrap(services.ErrValidation, "transcription", "ledger",
				"ledger cannot be resumed; rerun with --discard-stale to start over", err)
		}
		result, err = transcribe.Run(transcribeCtx, chunks, rec, summary.Ledger, opts)
	}
	if err != nil {
		return err
	}
	summary.Processed = result.Processed
	summary.Skipped = result.Skipped
	summary.Captions = len(result.Captions)
	summary.TotalSeconds = result.TotalSeconds
	summary.Resumed = result.Resumed

	if err := caption.WriteVTTFile(summary.Output, result.Captions); err != nil {
		return services.Wrap(services.ErrConfiguration, "output", "write vtt", "write "+summary.Output, err)
	}
	summary.Warnings = caption.Validate(result.Captions, result.TotalSeconds)
	for _, problem := range summary.Warnings {
		logging.WarnWithContext(logger, "caption validation problem", "caption_validation",
			logging.String("problem", problem),
			logging.String(logging.FieldErrorHint, "inspect the recognizer output for the affected chunk"),
			logging.String(logging.FieldImpact, "players may show the cue out of order"),
		)
	}

	if err := ledger.Discard(summary.Ledger); err != nil {
		logging.WarnWithContext(logger, "ledger discard failed", "ledger_discard_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the ledger manually with chunkvtt ledger discard"),
			logging.String(logging.FieldImpact, "a rerun will reuse the finished ledger"),
		)
	}
	if !r.keepChunks {
		if err := chunker.Remove(chunkDir); err != nil {
			logging.WarnWithContext(logger, "chunk cleanup failed", "chunk_cleanup_failed",
				logging.String("dir", chunkDir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the chunk directory manually"),
				logging.String(logging.FieldImpact, "disk space is not reclaimed"),
			)
		}
	}
	return nil
}

func (r *Runner) resolveConflict(ctx context.Context, ledgerPath string, req Request, cause error) (ConflictAction, error) {
	switch {
	case req.DiscardStale:
		return ConflictDiscard, nil
	case req.KeepStale:
		return ConflictKeep, nil
	case r.onConflict == nil:
		return ConflictAbort, nil
	}
	action, err := r.onConflict(ctx, ledgerPath, cause)
	if err != nil {
		return ConflictAbort, fmt.Errorf("resolve ledger conflict: %w", err)
	}
	return action, nil
}

func (r *Runner) handleFailure(ctx context.Context, logger *slog.Logger, historyID int64, summary Summary, jobErr error) {
	status := services.FailureStatus(jobErr)
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String("resolved_status", string(status)),
		logging.Error(jobErr),
		logging.String(logging.FieldErrorHint, failureHint(jobErr)),
	)
	r.finishHistory(context.WithoutCancel(ctx), logger, historyID, summary, status, jobErr)
	if status == history.StatusCanceled {
		return
	}
	if err := r.notifier.Publish(context.WithoutCancel(ctx), notifications.EventError, notifications.Payload{
		"context": filepath.Base(summary.Source),
		"error":   jobErr,
	}); err != nil {
		logger.Debug("error notification failed", logging.Error(err))
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "rerun the same command to resume from the ledger"
	case errors.Is(err, ledger.ErrLocked):
		return "wait for the other run or remove a stale .lock file"
	case errors.Is(err, ledger.ErrCorrupt), errors.Is(err, transcribe.ErrStaleChunks):
		return "inspect with chunkvtt ledger show, or rerun with --discard-stale"
	case errors.Is(err, transcribe.ErrRecognizer):
		return "fix the recognizer problem and rerun; completed chunks are kept"
	case errors.Is(err, services.ErrConfiguration):
		return "run chunkvtt check and fix the reported problems"
	default:
		return "check logs for details"
	}
}

func (r *Runner) startHistory(ctx context.Context, logger *slog.Logger, summary Summary, started time.Time) int64 {
	if r.history == nil {
		return 0
	}
	if n, err := r.history.MarkAbandoned(ctx, summary.Ledger); err != nil {
		logger.Debug("mark abandoned history rows", logging.Error(err))
	} else if n > 0 {
		logger.Info("previous run on this ledger did not finish", logging.Int64("abandoned", n))
	}
	id, err := r.history.Start(ctx, history.Job{
		RunID:        summary.RunID,
		Source:       summary.Source,
		Output:       summary.Output,
		Ledger:       summary.Ledger,
		Engine:       summary.Engine,
		ChunkSeconds: r.cfg.Transcription.ChunkSeconds,
		StartedAt:    started,
	})
	if err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
			logging.String(logging.FieldImpact, "this run is missing from chunkvtt history"),
		)
		return 0
	}
	return id
}

func (r *Runner) finishHistory(ctx context.Context, logger *slog.Logger, id int64, summary Summary, status history.Status, jobErr error) {
	if r.history == nil || id == 0 {
		return
	}
	if err := r.history.Finish(ctx, id, history.Outcome{
		Status:       status,
		ChunkCount:   summary.ChunkCount,
		Processed:    summary.Processed,
		Skipped:      summary.Skipped,
		Captions:     summary.Captions,
		TotalSeconds: summary.TotalSeconds,
		Err:          jobErr,
	}); err != nil {
		logger.Debug("finish history record", logging.Error(err))
	}
}
