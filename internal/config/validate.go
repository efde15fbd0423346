package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateRecognizer(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscription() error {
	if c.Transcription.ChunkSeconds <= 0 {
		return errors.New("transcription.chunk_seconds must be positive")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateRecognizer() error {
	r := c.Recognizer
	switch r.Engine {
	case EngineWhisperX:
		switch r.WhisperXVADMethod {
		case "silero", "pyannote":
		default:
			return fmt.Errorf("recognizer.whisperx_vad_method: unsupported value %q (want silero or pyannote)", r.WhisperXVADMethod)
		}
	case EngineWhisperCpp:
		if r.WhisperCppModel == "" {
			return errors.New("recognizer.whisper_cpp_model must be set when recognizer.engine is whisper-cpp")
		}
	case EngineOpenAI:
		if r.OpenAIAPIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("recognizer.openai_api_key is required for the openai engine. Set OPENAI_API_KEY or edit %s (create with 'chunkvtt config init')", defaultPath)
		}
	default:
		return fmt.Errorf("recognizer.engine: unsupported value %q (want %s, %s or %s)", r.Engine, EngineWhisperX, EngineWhisperCpp, EngineOpenAI)
	}
	if r.TimeoutSeconds <= 0 {
		return errors.New("recognizer.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL (got %q)", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
