// Package services defines shared utilities consumed by the transcription
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, chunk positions, and
//     source paths for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent history statuses (failed, review, canceled).
//
// Use these helpers when wiring recognizers or job steps so error handling and
// observability stay uniform across the pipeline.
package services
