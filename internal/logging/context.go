package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"chunkvtt/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one invocation of a transcription job.
	FieldRunID = "run_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldChunkIndex is the 1-based position of the chunk being processed.
	FieldChunkIndex = "chunk_index"
	// FieldChunkCount is the number of chunks in the job.
	FieldChunkCount = "chunk_count"
	// FieldChunk is the path of the chunk file a record concerns.
	FieldChunk = "chunk"
	// FieldOffset is a timeline position in seconds.
	FieldOffset = "offset_seconds"
	// FieldSource is the input media path.
	FieldSource = "source"
	// FieldCommand carries external command lines; only shown at debug level on the console.
	FieldCommand = "command"
	// FieldEventType classifies a record for filtering (e.g. chunk_completed).
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// NewRunID returns a fresh identifier for a transcription run.
func NewRunID() string {
	return uuid.NewString()
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if idx, ok := services.ChunkIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldChunkIndex, idx))
	}
	if src, ok := services.SourceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSource, src))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
