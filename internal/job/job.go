package job

import (
	"context"
	"log/slog"
	"time"

	"chunkvtt/internal/chunker"
	"chunkvtt/internal/config"
	"chunkvtt/internal/deps"
	"chunkvtt/internal/history"
	"chunkvtt/internal/logging"
	"chunkvtt/internal/notifications"
	"chunkvtt/internal/preflight"
	"chunkvtt/internal/recognizer"
	"chunkvtt/internal/transcribe"
)

// Request describes one transcription job.
type Request struct {
	Source string
	Output string
	// Ledger is the resume file path. Empty uses the configured default.
	Ledger string
	// DiscardStale restarts from scratch when the ledger is corrupt or
	// belongs to another input, instead of failing.
	DiscardStale bool
	// KeepStale continues a ledger written for other chunks instead of
	// failing. DiscardStale wins when both are set.
	KeepStale bool
}

// Summary reports a finished job.
type Summary struct {
	RunID        string
	Source       string
	Output       string
	Ledger       string
	Engine       string
	ChunkCount   int
	Processed    int
	Skipped      int
	Captions     int
	TotalSeconds float64
	Resumed      bool
	// Warnings lists caption validation problems found in the output.
	Warnings []string
	Elapsed  time.Duration
}

// Splitter produces the chunk files for a source.
type Splitter interface {
	Split(ctx context.Context, source, outputDir string, chunkSeconds int) ([]string, error)
}

// RecognizerFactory builds the configured recognizer.
type RecognizerFactory func(cfg *config.Config, logger *slog.Logger) (recognizer.Recognizer, error)

// PreflightFunc runs readiness checks.
type PreflightFunc func(ctx context.Context, cfg *config.Config) []preflight.Result

// ConflictAction is the decision for a ledger that cannot be resumed as is.
type ConflictAction int

const (
	// ConflictAbort fails the job and leaves the ledger untouched.
	ConflictAbort ConflictAction = iota
	// ConflictDiscard deletes the ledger and starts over.
	ConflictDiscard
	// ConflictKeep continues a stale ledger, appending the current chunks
	// after its captions. Corrupt ledgers cannot be kept.
	ConflictKeep
)

func (a ConflictAction) String() string {
	switch a {
	case ConflictAbort:
		return "abort"
	case ConflictDiscard:
		return "discard"
	case ConflictKeep:
		return "keep"
	default:
		return "unknown"
	}
}

// ConflictHandler decides what to do with a corrupt or stale ledger.
type ConflictHandler func(ctx context.Context, ledgerPath string, cause error) (ConflictAction, error)

// Runner executes transcription jobs.
type Runner struct {
	cfg           *config.Config
	logger        *slog.Logger
	splitter      Splitter
	newRecognizer RecognizerFactory
	preflight     PreflightFunc
	notifier      notifications.Service
	history       *history.Store
	observer      transcribe.Observer
	onConflict    ConflictHandler
	keepChunks    bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSplitter overrides the chunker.
func WithSplitter(s Splitter) Option {
	return func(r *Runner) { r.splitter = s }
}

// WithRecognizerFactory overrides recognizer construction.
func WithRecognizerFactory(f RecognizerFactory) Option {
	return func(r *Runner) { r.newRecognizer = f }
}

// WithPreflight overrides the readiness checks.
func WithPreflight(f PreflightFunc) Option {
	return func(r *Runner) { r.preflight = f }
}

// WithNotifier sets the notification service.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithHistory records runs in the given store.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) { r.history = store }
}

// WithObserver reports per-chunk progress.
func WithObserver(o transcribe.Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithConflictHandler is asked about a corrupt or stale ledger when the
// request sets neither DiscardStale nor KeepStale. Without one the job aborts.
func WithConflictHandler(h ConflictHandler) Option {
	return func(r *Runner) { r.onConflict = h }
}

// WithKeepChunks overrides transcription.keep_chunks.
func WithKeepChunks(keep bool) Option {
	return func(r *Runner) { r.keepChunks = keep }
}

// New constructs a Runner with production collaborators.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	logger = logging.NewComponentLogger(logger, "job")
	r := &Runner{
		cfg:           cfg,
		logger:        logger,
		splitter:      chunker.New(cfg.FFmpegBinary(), deps.ResolveFFprobe(cfg.FFmpegBinary(), cfg.FFprobeBinary()), logger),
		newRecognizer: recognizer.New,
		preflight:     preflight.RunAll,
		notifier:      notifications.NewService(cfg),
		keepChunks:    cfg.Transcription.KeepChunks,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
