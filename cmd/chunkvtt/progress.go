package main

import (
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"chunkvtt/internal/logging"
	"chunkvtt/internal/transcribe"
)

// progressReporter turns per-chunk observer callbacks into either a terminal
// progress bar or sampled log lines.
type progressReporter struct {
	out     io.Writer
	logger  *slog.Logger
	useBar  bool
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
}

func newProgressReporter(out io.Writer, logger *slog.Logger, useBar bool) *progressReporter {
	return &progressReporter{
		out:     out,
		logger:  logger,
		useBar:  useBar,
		sampler: logging.NewProgressSampler(10),
	}
}

func (p *progressReporter) observer() transcribe.Observer {
	return p.observe
}

func (p *progressReporter) observe(current, total int) {
	if p.useBar {
		if p.bar == nil {
			p.bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(p.out),
				progressbar.OptionSetDescription("transcribing"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = p.bar.Set(current)
		return
	}
	percent := logging.ChunkPercent(current, total)
	if !p.sampler.ShouldLog(percent, "transcription") {
		return
	}
	attrs := append(logging.ChunkPosition(current, total),
		logging.String(logging.FieldEventType, "progress"),
		logging.Float64("percent", percent),
	)
	p.logger.Info("transcription progress", logging.Args(attrs...)...)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
