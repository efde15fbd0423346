package preflight

import (
	"context"
	"fmt"
	"strings"

	"chunkvtt/internal/config"
	"chunkvtt/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all checks a transcription job needs before it touches the
// source. Engine-specific checks only run for the configured engine.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Command
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}

	switch cfg.Recognizer.Engine {
	case config.EngineWhisperX:
		if cfg.Recognizer.WhisperXCUDAEnabled {
			results = append(results, CheckCUDA(ctx))
		}
	case config.EngineWhisperCpp:
		results = append(results, CheckWhisperCppModel(cfg.Recognizer.WhisperCppModel))
	case config.EngineOpenAI:
		results = append(results, CheckOpenAIKey(cfg.Recognizer))
	}
	return results
}

// Failures returns the checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err summarizes failed checks as a configuration error, or nil when all passed.
func Err(results []Result) error {
	failed := Failures(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "checks", strings.Join(parts, "; "), nil)
}
