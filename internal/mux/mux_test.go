package mux

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"planreel/internal/testsupport"
)

// copyLastArg mimics ffmpeg by copying the first input to the final argument.
const copyLastArg = `#!/bin/sh
in=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-i" ] && [ -z "$in" ]; then in="$arg"; fi
  prev="$arg"
  last="$arg"
done
cp "$in" "$last"
`

func TestArgs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	muxer := NewMuxer(cfg, nil)

	got := strings.Join(muxer.Args("v.mp4", "n.wav", "out.mp4", "Plan Sheets"), " ")
	for _, want := range []string{"-i v.mp4 -i n.wav", "-map 0:v -map 1:a", "-c:v copy", "-c:a aac", "-b:a 192k", "-metadata title=Plan Sheets", "-metadata:s:a:0 language=eng"} {
		if !strings.Contains(got, want) {
			t.Fatalf("args %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "-shortest") {
		t.Fatalf("args must not truncate narration: %q", got)
	}
	if !strings.HasSuffix(got, " out.mp4") {
		t.Fatalf("expected output last, got %q", got)
	}
	if strings.Contains(strings.Join(muxer.Args("v", "n", "o", "  "), " "), "title=") {
		t.Fatal("expected no metadata for blank title")
	}
}

func TestMuxWritesDeliverable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubScript(copyLastArg, "ffmpeg"))
	video := filepath.Join(cfg.Paths.VideoDir, "chapter01.mp4")
	narration := filepath.Join(cfg.Paths.AudioDir, "chapter01_narration.wav")
	testsupport.WriteFile(t, video, []byte("video-bytes"))
	testsupport.WriteWAV(t, narration, 0.5)
	output := filepath.Join(cfg.Paths.OutputDir, "01-plans.mp4")

	if err := NewMuxer(cfg, nil).Mux(context.Background(), video, narration, output, "Plans"); err != nil {
		t.Fatalf("Mux: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read deliverable: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Fatalf("unexpected deliverable content %q", data)
	}
	if _, err := os.Stat(partialPath(output)); !os.IsNotExist(err) {
		t.Fatalf("expected partial file renamed, stat err=%v", err)
	}
}

func TestMuxFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubScript("#!/bin/sh\necho 'bad stream' >&2\nexit 1\n", "ffmpeg"))
	muxer := NewMuxer(cfg, nil)
	video := filepath.Join(cfg.Paths.VideoDir, "chapter01.mp4")
	narration := filepath.Join(cfg.Paths.AudioDir, "chapter01_narration.wav")
	output := filepath.Join(cfg.Paths.OutputDir, "01-plans.mp4")

	if err := muxer.Mux(context.Background(), video, narration, output, ""); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing input error, got %v", err)
	}

	testsupport.WriteFile(t, video, []byte("video"))
	testsupport.WriteWAV(t, narration, 0.1)
	err := muxer.Mux(context.Background(), video, narration, output, "")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || !strings.Contains(cmdErr.Output, "bad stream") {
		t.Fatalf("expected CommandError with stderr, got %v", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("expected no deliverable, stat err=%v", err)
	}
}
