package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chunkvtt/internal/caption"
	"chunkvtt/internal/ledger"
	"chunkvtt/internal/logging"
	"chunkvtt/internal/recognizer"
	"chunkvtt/internal/services"
)

var (
	// ErrRecognizer wraps a recognizer failure on a specific chunk.
	ErrRecognizer = errors.New("recognizer failure")
	// ErrStaleChunks reports a ledger whose chunk identifiers match none of
	// the chunks of the current run.
	ErrStaleChunks = errors.New("stale chunk identifiers")
)

// Observer is notified after every chunk, processed or skipped, with the
// 1-based position and the chunk count.
type Observer func(current, total int)

// Options tunes a Run.
type Options struct {
	// NominalSeconds is the configured chunk length, used when a chunk
	// yields no segments or the recognizer advances by nominal duration.
	NominalSeconds float64
	Observer       Observer
	Logger         *slog.Logger
	// Job is written into every ledger snapshot.
	Job ledger.JobInfo
	// AllowForeignLedger skips stale detection.
	AllowForeignLedger bool
	// KeepLedger leaves the ledger in place after success so the caller can
	// discard it once the output is durable.
	KeepLedger bool
}

// Result summarizes a completed run.
type Result struct {
	Captions     []caption.Caption
	TotalSeconds float64
	Processed    int
	Skipped      int
	// Resumed reports whether the run started from a non-empty ledger.
	Resumed bool
}

var now = time.Now

// Run transcribes chunks in order, folding each result into the ledger at
// ledgerPath before moving on. Chunks already recorded in the ledger are
// skipped without calling the recognizer, so a rerun after any failure
// produces the same captions as an uninterrupted run.
func Run(ctx context.Context, chunks []string, rec recognizer.Recognizer, ledgerPath string, opts Options) (Result, error) {
	logger := logging.NewComponentLogger(opts.Logger, "transcribe")
	if rec == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcription", "run", "recognizer required", nil)
	}
	if opts.NominalSeconds <= 0 {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcription", "run", "nominal chunk duration must be positive", nil)
	}
	if ledgerPath == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcription", "run", "ledger path required", nil)
	}

	state, err := ledger.Load(ledgerPath)
	if err != nil {
		return Result{}, err
	}
	done := state.DoneChunks()
	resumed := !state.IsEmpty()
	if len(done) > 0 && !opts.AllowForeignLedger && !anyKnown(chunks, done) {
		return Result{}, fmt.Errorf("%w: ledger %s records %d chunks, none belong to this run", ErrStaleChunks, ledgerPath, len(done))
	}
	if resumed {
		logger.Info("resuming from ledger",
			logging.String("ledger", ledgerPath),
			logging.Int("completed_chunks", len(done)),
			logging.Int("captions", len(state.Captions)),
			logging.Offset(state.TotalSeconds),
		)
	}

	total := len(chunks)
	result := Result{Resumed: resumed}
	for i, chunk := range chunks {
		position := i + 1
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		chunkLogger := logger.With(logging.Args(logging.ChunkPosition(position, total)...)...)

		if _, ok := done[chunk]; ok {
			result.Skipped++
			chunkLogger.Debug("chunk already transcribed", logging.Chunk(chunk))
			notify(opts.Observer, position, total)
			continue
		}

		chunkLogger.Info(fmt.Sprintf("Processing file %d/%d: %.0f%% complete", position, total, logging.ChunkPercent(i, total)),
			logging.String(logging.FieldEventType, "chunk_started"),
			logging.Chunk(chunk),
		)
		start := time.Now()
		segments, err := rec.Transcribe(services.WithChunkIndex(ctx, position), chunk)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			return Result{}, fmt.Errorf("%w: chunk %d/%d (%s): %w", ErrRecognizer, position, total, chunk, err)
		}

		offset := state.TotalSeconds
		for _, seg := range segments {
			state.Captions = append(state.Captions, caption.Caption{
				Start:       seg.Start + offset,
				End:         seg.End + offset,
				Text:        seg.Text,
				SourceChunk: chunk,
			})
		}
		state.TotalSeconds = offset + advance(rec.Policy(), segments, opts.NominalSeconds)
		state.CompletedChunks = append(state.CompletedChunks, chunk)
		done[chunk] = struct{}{}
		state.Job = jobSnapshot(opts.Job, total)

		if err := ledger.Save(ledgerPath, state); err != nil {
			return Result{}, services.Wrap(services.ErrTransient, "transcription", "save ledger", "persist progress", err)
		}
		result.Processed++
		chunkLogger.Info("chunk transcribed",
			logging.String(logging.FieldEventType, "chunk_completed"),
			logging.Int("segments", len(segments)),
			logging.Offset(state.TotalSeconds),
			logging.Duration("elapsed", time.Since(start)),
		)
		notify(opts.Observer, position, total)
	}

	if !opts.KeepLedger {
		if err := ledger.Discard(ledgerPath); err != nil {
			return Result{}, err
		}
	}

	result.Captions = state.Captions
	result.TotalSeconds = state.TotalSeconds
	logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcription_completed"),
		logging.Int("captions", len(result.Captions)),
		logging.Int("processed", result.Processed),
		logging.Int("skipped", result.Skipped),
		logging.Float64("total_seconds", result.TotalSeconds),
	)
	return result, nil
}

// advance returns how far a processed chunk moves the cumulative offset.
func advance(policy recognizer.AdvancePolicy, segments []recognizer.Segment, nominal float64) float64 {
	if policy == recognizer.AdvanceLastSegmentEnd && len(segments) > 0 {
		return segments[len(segments)-1].End
	}
	return nominal
}

func anyKnown(chunks []string, done map[string]struct{}) bool {
	for _, chunk := range chunks {
		if _, ok := done[chunk]; ok {
			return true
		}
	}
	return false
}

func jobSnapshot(job ledger.JobInfo, chunkCount int) *ledger.JobInfo {
	if job == (ledger.JobInfo{}) {
		return nil
	}
	snapshot := job
	if snapshot.ChunkCount == 0 {
		snapshot.ChunkCount = chunkCount
	}
	snapshot.UpdatedAt = now().UTC()
	return &snapshot
}

func notify(observer Observer, current, total int) {
	if observer != nil {
		observer(current, total)
	}
}
