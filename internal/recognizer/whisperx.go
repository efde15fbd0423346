package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chunkvtt/internal/language"
	"chunkvtt/internal/logging"
	"chunkvtt/internal/services"
)

// WhisperX invocation defaults.
const (
	WhisperXDefaultModel = "large-v3"
	whisperXCUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	whisperXPypiIndexURL = "https://pypi.org/simple"
	whisperXBatchSize    = "4"
	whisperXChunkSize    = "15"
	whisperXVADOnset     = "0.08"
	whisperXVADOffset    = "0.07"
	whisperXBeamSize     = "10"
	whisperXSegmentRes   = "sentence"
	whisperXCPUCompute   = "float32"
	vadMethodSilero      = "silero"
)

// WhisperXConfig captures runtime settings for WhisperX.
type WhisperXConfig struct {
	Binary      string
	Model       string
	CUDAEnabled bool
	VADMethod   string
	Language    string
	Timeout     time.Duration
	// TempDir is the parent for per-job scratch output. Defaults to os.TempDir().
	TempDir string
}

// WhisperX runs WhisperX through uvx and reads its JSON output.
type WhisperX struct {
	cfg    WhisperXConfig
	logger *slog.Logger
	runner CommandRunner

	mu      sync.Mutex
	scratch string
}

// NewWhisperX creates a WhisperX recognizer.
func NewWhisperX(cfg WhisperXConfig, logger *slog.Logger) *WhisperX {
	if cfg.Binary == "" {
		cfg.Binary = "uvx"
	}
	if cfg.Model == "" {
		cfg.Model = WhisperXDefaultModel
	}
	if cfg.VADMethod == "" {
		cfg.VADMethod = vadMethodSilero
	}
	logger = logging.NewComponentLogger(logger, "recognizer").With(logging.String("engine", "whisperx"))
	// Torch 2.6 changed torch.load to weights_only=true, which breaks the
	// pyannote checkpoints WhisperX loads.
	var env []string
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = []string{"TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1"}
	}
	return &WhisperX{cfg: cfg, logger: logger, runner: execRunner(logger, env)}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner CommandRunner) {
	w.runner = runner
}

func (w *WhisperX) Name() string { return "whisperx" }

// Policy reports AdvanceLastSegmentEnd: WhisperX segments end where speech
// ends, so the offset follows the recognized timeline.
func (w *WhisperX) Policy() AdvancePolicy { return AdvanceLastSegmentEnd }

// Transcribe runs WhisperX on one chunk and returns its segments.
func (w *WhisperX) Transcribe(ctx context.Context, chunk string) ([]Segment, error) {
	if strings.TrimSpace(chunk) == "" {
		return nil, services.Wrap(services.ErrValidation, "recognizer", "whisperx", "chunk path required", nil)
	}
	root, err := w.scratchDir()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognizer", "whisperx", "create scratch directory", err)
	}
	outputDir, err := os.MkdirTemp(root, "chunk-*")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognizer", "whisperx", "create output directory", err)
	}
	defer os.RemoveAll(outputDir)

	runCtx, cancel := withTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	start := time.Now()
	if err := w.runner(runCtx, w.cfg.Binary, w.buildArgs(chunk, outputDir)...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "recognizer", "whisperx", "transcription failed", err)
	}

	base := strings.TrimSuffix(filepath.Base(chunk), filepath.Ext(chunk))
	segments, err := loadWhisperXSegments(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "recognizer", "whisperx", "read output", err)
	}
	segments = normalizeSegments(segments)
	w.logger.Debug("whisperx chunk transcribed",
		logging.Chunk(chunk),
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return segments, nil
}

// Close removes the job scratch directory.
func (w *WhisperX) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scratch == "" {
		return nil
	}
	err := os.RemoveAll(w.scratch)
	w.scratch = ""
	return err
}

func (w *WhisperX) scratchDir() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scratch != "" {
		return w.scratch, nil
	}
	dir, err := os.MkdirTemp(w.cfg.TempDir, "chunkvtt-whisperx-*")
	if err != nil {
		return "", err
	}
	w.scratch = dir
	return dir, nil
}

func (w *WhisperX) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)
	if w.cfg.CUDAEnabled {
		args = append(args, "--index-url", whisperXCUDAIndexURL, "--extra-index-url", whisperXPypiIndexURL)
	} else {
		args = append(args, "--index-url", whisperXPypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.cfg.Model,
		"--batch_size", whisperXBatchSize,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--segment_resolution", whisperXSegmentRes,
		"--chunk_size", whisperXChunkSize,
		"--vad_onset", whisperXVADOnset,
		"--vad_offset", whisperXVADOffset,
		"--beam_size", whisperXBeamSize,
		"--vad_method", w.cfg.VADMethod,
	)
	if !language.IsAuto(w.cfg.Language) {
		if lang := language.ToISO2(w.cfg.Language); lang != "" {
			args = append(args, "--language", lang)
		}
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", whisperXCPUCompute)
	}
	return args
}

type whisperXPayload struct {
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

func loadWhisperXSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("whisperx produced no json output at %s", path)
		}
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	segments := make([]Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		segments = append(segments, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return segments, nil
}
