package recognizer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"chunkvtt/internal/config"
	"chunkvtt/internal/logging"
)

// AdvancePolicy decides how far a processed chunk moves the cumulative offset.
type AdvancePolicy int

const (
	// AdvanceLastSegmentEnd advances by the end of the last segment, falling
	// back to the nominal chunk duration when the chunk produced none. Suits
	// engines whose timestamps track the natural end of speech.
	AdvanceLastSegmentEnd AdvancePolicy = iota
	// AdvanceNominal always advances by the nominal chunk duration.
	AdvanceNominal
)

func (p AdvancePolicy) String() string {
	switch p {
	case AdvanceLastSegmentEnd:
		return "last-segment-end"
	case AdvanceNominal:
		return "nominal"
	default:
		return fmt.Sprintf("AdvancePolicy(%d)", int(p))
	}
}

// Segment is one recognized utterance with chunk-local timestamps in seconds.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Recognizer transcribes one chunk at a time. Implementations that hold
// resources for the duration of a job also implement io.Closer.
type Recognizer interface {
	Name() string
	Policy() AdvancePolicy
	Transcribe(ctx context.Context, chunk string) ([]Segment, error)
}

// CommandRunner executes an external tool. Tests substitute it to avoid
// launching real binaries.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// New builds the recognizer selected by recognizer.engine.
func New(cfg *config.Config, logger *slog.Logger) (Recognizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("recognizer: config required")
	}
	r := cfg.Recognizer
	timeout := time.Duration(r.TimeoutSeconds) * time.Second
	lang := cfg.Transcription.Language
	switch r.Engine {
	case config.EngineWhisperX:
		return NewWhisperX(WhisperXConfig{
			Binary:      cfg.UVXBinary(),
			Model:       r.WhisperXModel,
			CUDAEnabled: r.WhisperXCUDAEnabled,
			VADMethod:   r.WhisperXVADMethod,
			Language:    lang,
			Timeout:     timeout,
		}, logger), nil
	case config.EngineWhisperCpp:
		return NewWhisperCpp(WhisperCppConfig{
			Binary:   cfg.WhisperCppBinary(),
			Model:    r.WhisperCppModel,
			Language: lang,
			Threads:  r.WhisperCppThreads,
			Timeout:  timeout,
		}, logger), nil
	case config.EngineOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:   r.OpenAIAPIKey,
			BaseURL:  r.OpenAIBaseURL,
			Model:    r.OpenAIModel,
			Language: lang,
			Timeout:  timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("recognizer: unsupported engine %q", r.Engine)
	}
}

// normalizeSegments trims text, drops empty segments, repairs inverted or
// negative bounds, and orders the result by start time.
func normalizeSegments(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if math.IsNaN(seg.Start) || math.IsNaN(seg.End) {
			continue
		}
		start := math.Max(seg.Start, 0)
		end := math.Max(seg.End, start)
		out = append(out, Segment{Start: start, End: end, Text: text})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func execRunner(logger *slog.Logger, env []string) CommandRunner {
	return func(ctx context.Context, name string, args ...string) error {
		cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
		if len(env) > 0 {
			cmd.Env = append(os.Environ(), env...)
		}
		logger.Debug("running external command",
			logging.String(logging.FieldCommand, name+" "+strings.Join(args, " ")),
		)
		if output, err := cmd.CombinedOutput(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%s: %w: %s", name, err, tail(strings.TrimSpace(string(output)), 2000))
		}
		return nil
	}
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
