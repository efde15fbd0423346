package config

import (
	"fmt"
	"os"
	"strings"

	"chunkvtt/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	if err := c.normalizeRecognizer(); err != nil {
		return err
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.ResumeFile = strings.TrimSpace(c.Transcription.ResumeFile)
	if c.Transcription.ResumeFile == "" {
		c.Transcription.ResumeFile = defaultResumeFile
	}
	lang := strings.TrimSpace(c.Transcription.Language)
	switch {
	case lang == "":
		c.Transcription.Language = defaultLanguage
	case language.IsAuto(lang):
		c.Transcription.Language = language.Auto
	default:
		if normalized := language.ToISO2(lang); normalized != "" {
			c.Transcription.Language = normalized
		} else {
			c.Transcription.Language = strings.ToLower(lang)
		}
	}
}

func (c *Config) normalizeRecognizer() error {
	r := &c.Recognizer
	r.Engine = strings.ToLower(strings.TrimSpace(r.Engine))
	switch r.Engine {
	case "":
		r.Engine = defaultEngine
	case "whispercpp", "whisper.cpp":
		r.Engine = EngineWhisperCpp
	}
	r.WhisperXModel = strings.TrimSpace(r.WhisperXModel)
	if r.WhisperXModel == "" {
		r.WhisperXModel = defaultWhisperXModel
	}
	r.WhisperXVADMethod = strings.ToLower(strings.TrimSpace(r.WhisperXVADMethod))
	if r.WhisperXVADMethod == "" {
		r.WhisperXVADMethod = defaultWhisperXVADMethod
	}
	if model := strings.TrimSpace(r.WhisperCppModel); model != "" {
		expanded, err := expandPath(model)
		if err != nil {
			return fmt.Errorf("recognizer.whisper_cpp_model: %w", err)
		}
		r.WhisperCppModel = expanded
	}
	if r.WhisperCppThreads <= 0 {
		r.WhisperCppThreads = defaultWhisperCppThreads
	}
	r.OpenAIAPIKey = strings.TrimSpace(r.OpenAIAPIKey)
	if r.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			r.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	r.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(r.OpenAIBaseURL), "/")
	if r.OpenAIBaseURL == "" {
		r.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	r.OpenAIModel = strings.TrimSpace(r.OpenAIModel)
	if r.OpenAIModel == "" {
		r.OpenAIModel = defaultOpenAIModel
	}
	if r.TimeoutSeconds <= 0 {
		r.TimeoutSeconds = defaultRecognizerTimeout
	}
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
