package config

const (
	defaultConfigPath        = "~/.config/chunkvtt/config.toml"
	projectConfigName        = "chunkvtt.toml"
	defaultWorkDir           = "~/.cache/chunkvtt/chunks"
	defaultLogDir            = "~/.local/share/chunkvtt/logs"
	defaultHistoryDB         = "~/.local/share/chunkvtt/history.db"
	defaultChunkSeconds      = 600
	defaultResumeFile        = "resume.json"
	defaultLanguage          = "en"
	defaultEngine            = EngineWhisperX
	defaultWhisperXModel     = "large-v3"
	defaultWhisperXVADMethod = "silero"
	defaultWhisperCppThreads = 4
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenAIModel       = "whisper-1"
	defaultRecognizerTimeout = 1800
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Transcription: Transcription{
			ChunkSeconds: defaultChunkSeconds,
			ResumeFile:   defaultResumeFile,
			Language:     defaultLanguage,
		},
		Recognizer: Recognizer{
			Engine:            defaultEngine,
			WhisperXModel:     defaultWhisperXModel,
			WhisperXVADMethod: defaultWhisperXVADMethod,
			WhisperCppThreads: defaultWhisperCppThreads,
			OpenAIBaseURL:     defaultOpenAIBaseURL,
			OpenAIModel:       defaultOpenAIModel,
			TimeoutSeconds:    defaultRecognizerTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
