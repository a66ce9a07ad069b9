package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"planreel/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnvKey(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PLANREEL_TTS_API_KEY", "env-key")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantAudio := filepath.Join(tempHome, "planreel", "audio")
	if cfg.Paths.AudioDir != wantAudio {
		t.Fatalf("unexpected audio dir: got %q want %q", cfg.Paths.AudioDir, wantAudio)
	}
	if cfg.Paths.ReportDir != filepath.Join(tempHome, ".local", "share", "planreel", "reports") {
		t.Fatalf("unexpected report dir: %q", cfg.Paths.ReportDir)
	}
	if cfg.TTS.APIKey != "env-key" {
		t.Fatalf("expected TTS key from env, got %q", cfg.TTS.APIKey)
	}
	if cfg.Reconcile.ToleranceSeconds != 2.0 {
		t.Fatalf("expected default tolerance 2.0, got %v", cfg.Reconcile.ToleranceSeconds)
	}
	if len(cfg.Assets.AudioExtensions) != 1 || cfg.Assets.AudioExtensions[0] != "wav" {
		t.Fatalf("unexpected audio extensions: %v", cfg.Assets.AudioExtensions)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.AudioDir, cfg.Paths.ReportDir, cfg.Paths.LogDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "planreel.toml")

	type payload struct {
		Paths struct {
			AudioDir string `toml:"audio_dir"`
		} `toml:"paths"`
		Assets struct {
			AudioExtensions []string `toml:"audio_extensions"`
			ImageExtension  string   `toml:"image_extension"`
		} `toml:"assets"`
		Reconcile struct {
			ToleranceSeconds float64 `toml:"tolerance_seconds"`
		} `toml:"reconcile"`
	}
	custom := payload{}
	custom.Paths.AudioDir = filepath.Join(tempDir, "narration")
	custom.Assets.AudioExtensions = []string{".WAV", "wav", " "}
	custom.Assets.ImageExtension = ".JPG"
	custom.Reconcile.ToleranceSeconds = 0.5
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.AudioDir != custom.Paths.AudioDir {
		t.Fatalf("expected audio dir override, got %q", cfg.Paths.AudioDir)
	}
	if len(cfg.Assets.AudioExtensions) != 1 || cfg.Assets.AudioExtensions[0] != "wav" {
		t.Fatalf("expected deduplicated extensions, got %v", cfg.Assets.AudioExtensions)
	}
	if cfg.Assets.ImageExtension != "jpg" {
		t.Fatalf("expected normalized image extension, got %q", cfg.Assets.ImageExtension)
	}
	if cfg.Reconcile.ToleranceSeconds != 0.5 {
		t.Fatalf("expected tolerance override, got %v", cfg.Reconcile.ToleranceSeconds)
	}
}

func TestValidateRejectsBadPatterns(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "audio pattern missing scene verb",
			mutate: func(c *config.Config) { c.Assets.AudioNamePattern = "chapter%02d" },
			want:   "assets.audio_name_pattern",
		},
		{
			name:   "audio pattern with directory",
			mutate: func(c *config.Config) { c.Assets.AudioNamePattern = "ch%02d/scene%02d" },
			want:   "file name",
		},
		{
			name:   "negative tolerance",
			mutate: func(c *config.Config) { c.Reconcile.ToleranceSeconds = -1 },
			want:   "reconcile.tolerance_seconds",
		},
		{
			name:   "render without script placeholder",
			mutate: func(c *config.Config) { c.Render.Command = []string{"manim", "render"} },
			want:   "{script}",
		},
		{
			name:   "unparseable audio language",
			mutate: func(c *config.Config) { c.Mux.AudioLanguage = "not a language" },
			want:   "mux.audio_language",
		},
		{
			name:   "speed out of range",
			mutate: func(c *config.Config) { c.TTS.Speed = 9 },
			want:   "tts.speed",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRequireTTSKey(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireTTSKey(); err == nil {
		t.Fatal("expected error without api key")
	}
	cfg.TTS.APIKey = "secret"
	if err := cfg.RequireTTSKey(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Assets.AudioNamePattern != "chapter%02d_scene%02d" {
		t.Fatalf("unexpected audio pattern from sample: %q", cfg.Assets.AudioNamePattern)
	}
}
