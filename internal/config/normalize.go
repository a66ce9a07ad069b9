package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAssets()
	c.normalizeSanitizer()
	c.normalizeTTS()
	c.normalizeImages()
	c.normalizeRender()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.manifest_dir", &c.Paths.ManifestDir, defaultManifestDir},
		{"paths.audio_dir", &c.Paths.AudioDir, defaultAudioDir},
		{"paths.image_dir", &c.Paths.ImageDir, defaultImageDir},
		{"paths.script_dir", &c.Paths.ScriptDir, defaultScriptDir},
		{"paths.video_dir", &c.Paths.VideoDir, defaultVideoDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.report_dir", &c.Paths.ReportDir, defaultReportDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeAssets() {
	c.Assets.AudioNamePattern = strings.TrimSpace(c.Assets.AudioNamePattern)
	if c.Assets.AudioNamePattern == "" {
		c.Assets.AudioNamePattern = defaultAudioNamePattern
	}
	c.Assets.VideoNamePattern = strings.TrimSpace(c.Assets.VideoNamePattern)
	if c.Assets.VideoNamePattern == "" {
		c.Assets.VideoNamePattern = defaultVideoNamePattern
	}
	c.Assets.ImageExtension = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Assets.ImageExtension), "."))
	if c.Assets.ImageExtension == "" {
		c.Assets.ImageExtension = defaultImageExtension
	}
	exts := make([]string, 0, len(c.Assets.AudioExtensions))
	seen := make(map[string]struct{}, len(c.Assets.AudioExtensions))
	for _, ext := range c.Assets.AudioExtensions {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = []string{"wav"}
	}
	c.Assets.AudioExtensions = exts
}

func (c *Config) normalizeSanitizer() {
	words := make([]string, 0, len(c.Sanitizer.AllowWords))
	for _, word := range c.Sanitizer.AllowWords {
		if trimmed := strings.ToLower(strings.TrimSpace(word)); trimmed != "" {
			words = append(words, trimmed)
		}
	}
	c.Sanitizer.AllowWords = words
}

func (c *Config) normalizeTTS() {
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv("PLANREEL_TTS_API_KEY"); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	if c.TTS.Speed == 0 {
		c.TTS.Speed = defaultTTSSpeed
	}
	if c.TTS.MaxChars <= 0 {
		c.TTS.MaxChars = defaultTTSMaxChars
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if c.TTS.RetryAttempts < 0 {
		c.TTS.RetryAttempts = 0
	}
	if c.TTS.WordsPerMinute <= 0 {
		c.TTS.WordsPerMinute = defaultWordsPerMinute
	}
}

func (c *Config) normalizeImages() {
	if c.Images.MaxWidth <= 0 {
		c.Images.MaxWidth = defaultImageMaxWidth
	}
	if c.Images.MaxHeight <= 0 {
		c.Images.MaxHeight = defaultImageMaxHeight
	}
	if c.Images.TimeoutSeconds <= 0 {
		c.Images.TimeoutSeconds = defaultImageTimeout
	}
	c.Images.UserAgent = strings.TrimSpace(c.Images.UserAgent)
	if c.Images.UserAgent == "" {
		c.Images.UserAgent = defaultImageUserAgent
	}
}

func (c *Config) normalizeRender() {
	command := make([]string, 0, len(c.Render.Command))
	for _, arg := range c.Render.Command {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	c.Render.Command = command
	c.Render.ScriptPattern = strings.TrimSpace(c.Render.ScriptPattern)
	if c.Render.ScriptPattern == "" {
		c.Render.ScriptPattern = defaultScriptPattern
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if value, ok := os.LookupEnv("PLANREEL_NTFY_TOPIC"); ok && c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(value)
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}
