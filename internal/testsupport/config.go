package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"planreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose directories all live under a fresh temp
// directory. The directories are created before options run.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths = config.Paths{
		ManifestDir: filepath.Join(base, "manifests"),
		AudioDir:    filepath.Join(base, "audio"),
		ImageDir:    filepath.Join(base, "images"),
		ScriptDir:   filepath.Join(base, "scenes"),
		VideoDir:    filepath.Join(base, "renders"),
		OutputDir:   filepath.Join(base, "deliverables"),
		ReportDir:   filepath.Join(base, "reports"),
		LogDir:      filepath.Join(base, "logs"),
	}
	cfgVal.TTS.APIKey = "test"

	for _, dir := range []string{cfgVal.Paths.ManifestDir, cfgVal.Paths.ScriptDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTTSEndpoint points the TTS client at a test server.
func WithTTSEndpoint(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TTS.BaseURL = baseURL
		b.cfg.TTS.RetryAttempts = 0
	}
}

// WithTolerance overrides the reconcile tolerance.
func WithTolerance(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reconcile.ToleranceSeconds = seconds
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg, ffprobe and the renderer
// binary are stubbed. Each stub runs script when given, else exits 0.
func WithStubbedBinaries(names ...string) ConfigOption {
	return WithStubScript("#!/bin/sh\nexit 0\n", names...)
}

// WithStubScript is WithStubbedBinaries with a custom shell script body.
func WithStubScript(script string, names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", b.cfg.RendererBinary()}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if name == "" {
				continue
			}
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.AudioDir)
}
