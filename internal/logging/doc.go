// Package logging assembles structured slog loggers and formatting helpers used
// across chunkvtt.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, stages, and chunk positions. The package also provides
// a no-op logger for tests and a progress sampler for non-interactive runs.
package logging
