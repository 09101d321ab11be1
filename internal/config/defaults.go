package config

const (
	defaultWorkspaceDir           = "~/.local/share/clipquiz/media"
	defaultLogDir                 = "~/.local/share/clipquiz/logs"
	defaultJournalPath            = "~/.local/share/clipquiz/journal.db"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultYTDLPBinary            = "yt-dlp"
	defaultYTDLPTimeout           = 600
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFmpegTimeout          = 300
	defaultTranscriptionTimeout   = 3600
	defaultTranscriptionLanguage  = ""
	defaultVADMethod              = "silero"
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMReferer             = "https://github.com/clipquiz/clipquiz"
	defaultLLMTitle               = "clipquiz"
	defaultLLMTimeoutSeconds      = 120
	defaultLLMRetryAttempts       = 3
	defaultJobTimeoutSeconds      = 5400
	defaultStaleWorkspaceHours    = 24
	defaultEventsSubject          = "clipquiz.conversions"
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
			JournalPath:  defaultJournalPath,
			APIBind:      defaultAPIBind,
		},
		YTDLP: YTDLP{
			Binary:         defaultYTDLPBinary,
			TimeoutSeconds: defaultYTDLPTimeout,
		},
		FFmpeg: FFmpeg{
			Binary:         defaultFFmpegBinary,
			TimeoutSeconds: defaultFFmpegTimeout,
		},
		Transcription: Transcription{
			Language:       defaultTranscriptionLanguage,
			VADMethod:      defaultVADMethod,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Pipeline: Pipeline{
			JobTimeoutSeconds:   defaultJobTimeoutSeconds,
			StaleWorkspaceHours: defaultStaleWorkspaceHours,
		},
		Events: Events{
			Subject: defaultEventsSubject,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
