package config

const (
	defaultConfigPath        = "~/.config/planreel/config.toml"
	defaultManifestDir       = "~/planreel/manifests"
	defaultAudioDir          = "~/planreel/audio"
	defaultImageDir          = "~/planreel/images"
	defaultScriptDir         = "~/planreel/scenes"
	defaultVideoDir          = "~/planreel/renders"
	defaultOutputDir         = "~/planreel/deliverables"
	defaultReportDir         = "~/.local/share/planreel/reports"
	defaultLogDir            = "~/.local/share/planreel/logs"
	defaultAudioNamePattern  = "chapter%02d_scene%02d"
	defaultImageExtension    = "png"
	defaultVideoNamePattern  = "chapter%02d.mp4"
	defaultScriptPattern     = "chapter%02d.py"
	defaultToleranceSeconds  = 2.0
	defaultTTSBaseURL        = "https://api.openai.com/v1"
	defaultTTSModel          = "tts-1-hd"
	defaultTTSVoice          = "onyx"
	defaultTTSSpeed          = 1.0
	defaultTTSMaxChars       = 4000
	defaultTTSTimeoutSeconds = 120
	defaultTTSRetryAttempts  = 3
	defaultWordsPerMinute    = 150
	defaultImageMaxWidth     = 1920
	defaultImageMaxHeight    = 1080
	defaultImageTimeout      = 30
	defaultImageUserAgent    = "planreel/dev"
	defaultRenderTimeout     = 3600
	defaultAudioCodec        = "aac"
	defaultAudioBitrate      = "192k"
	defaultNtfyTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ManifestDir: defaultManifestDir,
			AudioDir:    defaultAudioDir,
			ImageDir:    defaultImageDir,
			ScriptDir:   defaultScriptDir,
			VideoDir:    defaultVideoDir,
			OutputDir:   defaultOutputDir,
			ReportDir:   defaultReportDir,
			LogDir:      defaultLogDir,
		},
		Assets: Assets{
			AudioNamePattern: defaultAudioNamePattern,
			AudioExtensions:  []string{"wav"},
			ImageExtension:   defaultImageExtension,
			VideoNamePattern: defaultVideoNamePattern,
		},
		Sanitizer: Sanitizer{
			WriteMap: true,
		},
		Reconcile: Reconcile{
			ToleranceSeconds:  defaultToleranceSeconds,
			PadShortNarration: true,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			Voice:          defaultTTSVoice,
			Speed:          defaultTTSSpeed,
			MaxChars:       defaultTTSMaxChars,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
			RetryAttempts:  defaultTTSRetryAttempts,
			WordsPerMinute: defaultWordsPerMinute,
		},
		Images: Images{
			MaxWidth:       defaultImageMaxWidth,
			MaxHeight:      defaultImageMaxHeight,
			TimeoutSeconds: defaultImageTimeout,
			UserAgent:      defaultImageUserAgent,
		},
		Render: Render{
			Command:        []string{"manim", "render", "-qh", "{script}", "-o", "{output}"},
			ScriptPattern:  defaultScriptPattern,
			TimeoutSeconds: defaultRenderTimeout,
		},
		Mux: Mux{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			AudioCodec:    defaultAudioCodec,
			AudioBitrate:  defaultAudioBitrate,
			AudioLanguage: "en",
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
