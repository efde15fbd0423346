package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"chunkvtt/internal/fileutil"
	"chunkvtt/internal/logging"
	"chunkvtt/internal/media/ffprobe"
	"chunkvtt/internal/services"
	"chunkvtt/internal/textutil"
)

// Chunk file naming. Positions are 1-based and zero-padded so lexical order
// matches timeline order.
const (
	ChunkPrefix  = "speech-"
	ChunkExt     = ".wav"
	chunkPattern = ChunkPrefix + "%03d" + ChunkExt
	// MarkerName is written once ffmpeg finishes a chunk set. A set without
	// it was interrupted mid-write and is never reused.
	MarkerName = ".complete"
)

// Runner executes ffmpeg.
type Runner func(ctx context.Context, binary string, args ...string) error

// Prober reports the duration of a media file in seconds.
type Prober func(ctx context.Context, binary, path string) (float64, error)

// Chunker splits a source into fixed-length mono 16 kHz WAV chunks.
type Chunker struct {
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
	run     Runner
	probe   Prober
}

// New constructs a Chunker using the given ffmpeg and ffprobe executables.
func New(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Chunker {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Chunker{
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		logger:  logging.NewComponentLogger(logger, "chunker"),
		run:     execRunner,
		probe:   probeDuration,
	}
}

// WithRunner overrides the ffmpeg runner (for testing).
func (c *Chunker) WithRunner(run Runner) *Chunker {
	c.run = run
	return c
}

// WithProber overrides the duration probe (for testing).
func (c *Chunker) WithProber(probe Prober) *Chunker {
	c.probe = probe
	return c
}

// Split produces the chunk files for source inside outputDir and returns
// their paths in timeline order. An existing complete chunk set is reused so
// identical inputs keep identical identifiers across runs.
func (c *Chunker) Split(ctx context.Context, source, outputDir string, chunkSeconds int) ([]string, error) {
	if chunkSeconds <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "chunking", "split", "chunk length must be positive", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "chunking", "split", "output directory required", nil)
	}
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "chunking", "split", "source not found: "+source, err)
		}
		return nil, services.Wrap(services.ErrValidation, "chunking", "split", "stat source", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "chunking", "split", "source is a directory: "+source, nil)
	}

	duration, err := c.probe(ctx, c.ffprobe, source)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "chunking", "probe", "ffprobe failed", err)
	}
	if math.IsNaN(duration) || duration <= 0 {
		return nil, services.Wrap(services.ErrValidation, "chunking", "probe", "source has no measurable duration", nil)
	}
	expected := ExpectedCount(duration, chunkSeconds)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "chunking", "split", "create chunk directory", err)
	}

	existing, err := List(outputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "chunking", "split", "list chunk directory", err)
	}
	if isCompleteSet(outputDir, existing, chunkSeconds) {
		c.logger.Info("reusing existing chunks",
			logging.String("dir", outputDir),
			logging.Int(logging.FieldChunkCount, len(existing)),
		)
		return existing, nil
	}
	if len(existing) > 0 {
		c.logger.Info("discarding incomplete chunk set",
			logging.String("dir", outputDir),
			logging.Int("found", len(existing)),
			logging.Int("expected", expected),
		)
	}
	if err := Clear(outputDir); err != nil {
		return nil, services.Wrap(services.ErrTransient, "chunking", "split", "clear stale chunks", err)
	}

	c.logger.Info("splitting source into chunks",
		logging.String(logging.FieldSource, source),
		logging.Float64("duration_seconds", duration),
		logging.Int("chunk_seconds", chunkSeconds),
		logging.Int("expected_chunks", expected),
	)
	if err := c.run(ctx, c.ffmpeg, segmentArgs(source, outputDir, chunkSeconds)...); err != nil {
		if clearErr := Clear(outputDir); clearErr != nil {
			c.logger.Debug("clear partial chunks", logging.Error(clearErr))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "chunking", "ffmpeg", "segmenting failed", err)
	}

	chunks, err := List(outputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "chunking", "split", "list chunk directory", err)
	}
	if len(chunks) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "chunking", "ffmpeg", "ffmpeg produced no chunks", nil)
	}
	if len(chunks) != expected {
		c.logger.Warn("chunk count differs from duration estimate",
			logging.String(logging.FieldEventType, "chunk_count_mismatch"),
			logging.String(logging.FieldErrorHint, "container duration may be imprecise; chunks are used as produced"),
			logging.String(logging.FieldImpact, "timeline offsets follow the chunks ffmpeg produced"),
			logging.Int("found", len(chunks)),
			logging.Int("expected", expected),
		)
	}
	if err := writeMarker(outputDir, len(chunks), chunkSeconds); err != nil {
		return nil, services.Wrap(services.ErrTransient, "chunking", "split", "write completion marker", err)
	}
	return chunks, nil
}

// ExpectedCount is ceil(duration / chunkSeconds).
func ExpectedCount(duration float64, chunkSeconds int) int {
	if duration <= 0 || chunkSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(duration / float64(chunkSeconds)))
}

// ChunkName returns the file name of the chunk at the 1-based position.
func ChunkName(position int) string {
	return fmt.Sprintf(chunkPattern, position)
}

// ChunkDir derives the chunk directory for a source and chunk length. The
// name carries the source base name, a short hash of the absolute source path
// and the chunk length, so each configuration gets its own identifiers.
func ChunkDir(workDir, source string, chunkSeconds int) (string, error) {
	if strings.TrimSpace(workDir) == "" {
		return "", errors.New("chunk dir: work directory required")
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("chunk dir: resolve source: %w", err)
	}
	sum := sha256.Sum256([]byte(abs))
	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	name := textutil.SanitizeToken(base) + "-" + hex.EncodeToString(sum[:])[:10] + "-" + strconv.Itoa(chunkSeconds) + "s"
	return filepath.Join(workDir, name), nil
}

// List returns the chunk files in dir sorted lexically.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ChunkPrefix+"*"+ChunkExt))
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}

// Clear removes chunk files and the completion marker from dir, leaving other
// files untouched.
func Clear(dir string) error {
	chunks, err := List(dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, chunk := range append([]string{filepath.Join(dir, MarkerName)}, chunks...) {
		if err := os.Remove(chunk); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Remove deletes dir when it holds nothing but chunk files and the marker.
func Remove(dir string) error {
	if err := Clear(dir); err != nil {
		return err
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func markerContent(count, chunkSeconds int) string {
	return fmt.Sprintf("chunks=%d\nchunk_seconds=%d\n", count, chunkSeconds)
}

func writeMarker(dir string, count, chunkSeconds int) error {
	return fileutil.WriteFileAtomic(filepath.Join(dir, MarkerName), []byte(markerContent(count, chunkSeconds)), 0o644)
}

// isCompleteSet reports whether chunks in dir were finished by a previous
// Split with the same chunk length and are still all present.
func isCompleteSet(dir string, chunks []string, chunkSeconds int) bool {
	if len(chunks) == 0 {
		return false
	}
	data, err := os.ReadFile(filepath.Join(dir, MarkerName))
	if err != nil || string(data) != markerContent(len(chunks), chunkSeconds) {
		return false
	}
	for i, chunk := range chunks {
		if filepath.Base(chunk) != ChunkName(i+1) {
			return false
		}
	}
	return true
}

func segmentArgs(source, outputDir string, chunkSeconds int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-f", "segment",
		"-segment_time", strconv.Itoa(chunkSeconds),
		"-segment_start_number", "1",
		"-reset_timestamps", "1",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		filepath.Join(outputDir, chunkPattern),
	}
}

func execRunner(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func probeDuration(ctx context.Context, binary, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return 0, err
	}
	if result.AudioStreamCount() == 0 {
		return 0, fmt.Errorf("no audio stream in %s", path)
	}
	return result.DurationSeconds(), nil
}
