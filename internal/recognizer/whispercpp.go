package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chunkvtt/internal/language"
	"chunkvtt/internal/logging"
	"chunkvtt/internal/services"
)

// WhisperCppConfig captures runtime settings for whisper.cpp.
type WhisperCppConfig struct {
	Binary   string
	Model    string
	Language string
	Threads  int
	Timeout  time.Duration
}

// WhisperCpp runs the whisper.cpp command line tool with JSON output.
type WhisperCpp struct {
	cfg    WhisperCppConfig
	logger *slog.Logger
	runner CommandRunner
}

// NewWhisperCpp creates a whisper.cpp recognizer.
func NewWhisperCpp(cfg WhisperCppConfig, logger *slog.Logger) *WhisperCpp {
	if cfg.Binary == "" {
		cfg.Binary = "whisper-cli"
	}
	logger = logging.NewComponentLogger(logger, "recognizer").With(logging.String("engine", "whisper-cpp"))
	return &WhisperCpp{cfg: cfg, logger: logger, runner: execRunner(logger, nil)}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperCpp) WithCommandRunner(runner CommandRunner) {
	w.runner = runner
}

func (w *WhisperCpp) Name() string { return "whisper-cpp" }

// Policy reports AdvanceNominal: whisper.cpp pads trailing silence into its
// last segment unpredictably, so the chunk length is the reliable advance.
func (w *WhisperCpp) Policy() AdvancePolicy { return AdvanceNominal }

// Transcribe runs whisper-cli on one chunk and parses the JSON it writes.
func (w *WhisperCpp) Transcribe(ctx context.Context, chunk string) ([]Segment, error) {
	if strings.TrimSpace(chunk) == "" {
		return nil, services.Wrap(services.ErrValidation, "recognizer", "whisper-cpp", "chunk path required", nil)
	}
	if _, err := os.Stat(w.cfg.Model); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "recognizer", "whisper-cpp", "model file not found: "+w.cfg.Model, err)
	}

	outputDir, err := os.MkdirTemp("", "chunkvtt-whispercpp-*")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognizer", "whisper-cpp", "create output directory", err)
	}
	defer os.RemoveAll(outputDir)
	outputBase := filepath.Join(outputDir, "transcript")

	runCtx, cancel := withTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	start := time.Now()
	if err := w.runner(runCtx, w.cfg.Binary, w.buildArgs(chunk, outputBase)...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "recognizer", "whisper-cpp", "transcription failed", err)
	}

	segments, err := loadWhisperCppSegments(outputBase + ".json")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "recognizer", "whisper-cpp", "read output", err)
	}
	segments = normalizeSegments(segments)
	w.logger.Debug("whisper-cpp chunk transcribed",
		logging.Chunk(chunk),
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return segments, nil
}

func (w *WhisperCpp) buildArgs(source, outputBase string) []string {
	lang := language.Auto
	if !language.IsAuto(w.cfg.Language) {
		if iso := language.ToISO2(w.cfg.Language); iso != "" {
			lang = iso
		}
	}
	args := []string{
		"-m", w.cfg.Model,
		"-l", lang,
		"-np",
		"-oj",
		"-of", outputBase,
		"-f", source,
	}
	if w.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.cfg.Threads))
	}
	return args
}

type whisperCppPayload struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func loadWhisperCppSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload whisperCppPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper.cpp json: %w", err)
	}
	segments := make([]Segment, 0, len(payload.Transcription))
	for _, item := range payload.Transcription {
		segments = append(segments, Segment{
			Start: float64(item.Offsets.From) / 1000,
			End:   float64(item.Offsets.To) / 1000,
			Text:  item.Text,
		})
	}
	return segments, nil
}
