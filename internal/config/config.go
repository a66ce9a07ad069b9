package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory roots every stage reads from or writes to.
type Paths struct {
	ManifestDir string `toml:"manifest_dir"`
	AudioDir    string `toml:"audio_dir"`
	ImageDir    string `toml:"image_dir"`
	ScriptDir   string `toml:"script_dir"`
	VideoDir    string `toml:"video_dir"`
	OutputDir   string `toml:"output_dir"`
	ReportDir   string `toml:"report_dir"`
	LogDir      string `toml:"log_dir"`
}

// Assets describes the naming convention used to derive asset paths from
// manifest fields.
type Assets struct {
	AudioNamePattern string   `toml:"audio_name_pattern"`
	AudioExtensions  []string `toml:"audio_extensions"`
	ImageExtension   string   `toml:"image_extension"`
	VideoNamePattern string   `toml:"video_name_pattern"`
	StrictNaming     bool     `toml:"strict_naming"`
}

// Sanitizer contains narration redaction settings.
type Sanitizer struct {
	AllowWords []string `toml:"allow_words"`
	WriteMap   bool     `toml:"write_map"`
}

// Reconcile contains duration alignment settings.
type Reconcile struct {
	ToleranceSeconds  float64 `toml:"tolerance_seconds"`
	PadShortNarration bool    `toml:"pad_short_narration"`
}

// TTS contains configuration for the text-to-speech backend.
type TTS struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Voice          string  `toml:"voice"`
	Speed          float64 `toml:"speed"`
	MaxChars       int     `toml:"max_chars"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RetryAttempts  int     `toml:"retry_attempts"`
	WordsPerMinute int     `toml:"words_per_minute"`
}

// Images contains configuration for figure downloads.
type Images struct {
	MaxWidth       int    `toml:"max_width"`
	MaxHeight      int    `toml:"max_height"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Render contains the external renderer invocation template.
type Render struct {
	Command        []string `toml:"command"`
	ScriptPattern  string   `toml:"script_pattern"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Mux contains muxer settings.
type Mux struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	AudioCodec    string `toml:"audio_codec"`
	AudioBitrate  string `toml:"audio_bitrate"`
	AudioLanguage string `toml:"audio_language"`
}

// Notifications configures ntfy delivery of run summaries.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	OnlyFailures          bool   `toml:"only_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for planreel.
//
// Configuration sections by subsystem:
//   - Paths: manifest, asset, report and log directories
//   - Assets: naming conventions for derived audio/image/video paths
//   - Sanitizer: narration redaction allow-list
//   - Reconcile: narration/video duration tolerance
//   - TTS: speech synthesis backend
//   - Images: figure download and resize limits
//   - Render: external renderer command template
//   - Mux: ffmpeg settings for deliverables
//   - Notifications: ntfy topic for run summaries
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Assets        Assets        `toml:"assets"`
	Sanitizer     Sanitizer     `toml:"sanitizer"`
	Reconcile     Reconcile     `toml:"reconcile"`
	TTS           TTS           `toml:"tts"`
	Images        Images        `toml:"images"`
	Render        Render        `toml:"render"`
	Mux           Mux           `toml:"mux"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("planreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories stages write into. The manifest
// and script directories are inputs and are left alone.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.AudioDir, c.Paths.ImageDir, c.Paths.VideoDir, c.Paths.OutputDir, c.Paths.ReportDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for muxing.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Mux.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Mux.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// RendererBinary returns the first element of the renderer command template.
func (c *Config) RendererBinary() string {
	if len(c.Render.Command) == 0 {
		return ""
	}
	return strings.TrimSpace(c.Render.Command[0])
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
