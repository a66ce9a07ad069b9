package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"planreel/internal/config"
	"planreel/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("PLANREEL_TTS_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := testsupport.NewConfig(t, opts...)
	cfg.TTS.APIKey = ""
	configPath := filepath.Join(base, "planreel.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
manifest_dir = %q
audio_dir = %q
image_dir = %q
script_dir = %q
video_dir = %q
output_dir = %q
report_dir = %q
log_dir = %q

[reconcile]
tolerance_seconds = %.2f

[logging]
level = "error"
`,
		cfg.Paths.ManifestDir,
		cfg.Paths.AudioDir,
		cfg.Paths.ImageDir,
		cfg.Paths.ScriptDir,
		cfg.Paths.VideoDir,
		cfg.Paths.OutputDir,
		cfg.Paths.ReportDir,
		cfg.Paths.LogDir,
		cfg.Reconcile.ToleranceSeconds,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	flags := []string{"--env-file", ""}
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
