package recognizer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"chunkvtt/internal/language"
	"chunkvtt/internal/logging"
	"chunkvtt/internal/services"
)

// OpenAIConfig captures settings for an OpenAI compatible transcription API.
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// OpenAI transcribes chunks through the audio transcriptions endpoint.
type OpenAI struct {
	cfg    OpenAIConfig
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI recognizer.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAI{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logging.NewComponentLogger(logger, "recognizer").With(logging.String("engine", "openai")),
	}
}

func (o *OpenAI) Name() string { return "openai" }

// Policy reports AdvanceNominal: API segments are trimmed to speech and can
// end well before the chunk does.
func (o *OpenAI) Policy() AdvancePolicy { return AdvanceNominal }

// Transcribe uploads one chunk and converts the verbose_json response.
func (o *OpenAI) Transcribe(ctx context.Context, chunk string) ([]Segment, error) {
	if strings.TrimSpace(chunk) == "" {
		return nil, services.Wrap(services.ErrValidation, "recognizer", "openai", "chunk path required", nil)
	}
	req := openai.AudioRequest{
		Model:    o.cfg.Model,
		FilePath: chunk,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if !language.IsAuto(o.cfg.Language) {
		req.Language = language.ToISO2(o.cfg.Language)
	}

	start := time.Now()
	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		marker := services.ErrExternalTool
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500) {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "recognizer", "openai", "transcription request failed", err)
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	if len(segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		segments = append(segments, Segment{Start: 0, End: resp.Duration, Text: resp.Text})
	}
	segments = normalizeSegments(segments)
	o.logger.Debug("openai chunk transcribed",
		logging.Chunk(chunk),
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return segments, nil
}
