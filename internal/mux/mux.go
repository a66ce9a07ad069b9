// Package mux combines a rendered chapter video with its narration track.
package mux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"planreel/internal/config"
	"planreel/internal/language"
	"planreel/internal/logging"
)

// CommandError reports an ffmpeg run that exited unsuccessfully.
type CommandError struct {
	Err    error
	Output string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mux: ffmpeg: %v: %s", e.Err, e.Output)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure for pipeline status mapping.
func (e *CommandError) ErrorKind() string { return "external" }

// Muxer runs ffmpeg to produce chapter deliverables.
type Muxer struct {
	binary  string
	codec   string
	bitrate string
	lang    string
	logger  *slog.Logger
}

// NewMuxer builds a muxer from the [mux] configuration section.
func NewMuxer(cfg *config.Config, logger *slog.Logger) *Muxer {
	if logger == nil {
		logger = logging.NewNop()
	}
	lang, err := language.ISO3(cfg.Mux.AudioLanguage)
	if err != nil {
		lang = language.Undetermined
	}
	return &Muxer{
		binary:  cfg.FFmpegBinary(),
		codec:   cfg.Mux.AudioCodec,
		bitrate: cfg.Mux.AudioBitrate,
		lang:    lang,
		logger:  logging.NewComponentLogger(logger, "mux"),
	}
}

// Args returns the ffmpeg arguments for one mux. Video is stream-copied and
// the narration is encoded with the configured codec. No -shortest: a
// narration track that runs long keeps its tail.
func (m *Muxer) Args(video, narration, output, title string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", video,
		"-i", narration,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
	}
	if codec := strings.TrimSpace(m.codec); codec != "" {
		args = append(args, "-c:a", codec)
	}
	if bitrate := strings.TrimSpace(m.bitrate); bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	if m.lang != "" {
		args = append(args, "-metadata:s:a:0", "language="+m.lang)
	}
	if title = strings.TrimSpace(title); title != "" {
		args = append(args, "-metadata", "title="+title)
	}
	return append(args, "-movflags", "+faststart", output)
}

// Mux writes output from video and narration. The file is produced under a
// temporary name and renamed so a failed run never leaves a partial
// deliverable.
func (m *Muxer) Mux(ctx context.Context, video, narration, output, title string) error {
	for _, input := range []string{video, narration} {
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("mux: input %s: %w", input, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("mux: create output directory: %w", err)
	}

	partial := partialPath(output)
	args := m.Args(video, narration, partial, title)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(partial)
		return &CommandError{Err: err, Output: strings.TrimSpace(stderr.String())}
	}
	if _, err := os.Stat(partial); err != nil {
		return errors.New("mux: ffmpeg produced no output")
	}
	if err := os.Rename(partial, output); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("mux: finalize output: %w", err)
	}

	m.logger.Info("deliverable written",
		logging.String(logging.FieldStage, "mux"),
		logging.String("video", video),
		logging.String("narration", narration),
		logging.String("output", output))
	return nil
}

// partialPath keeps the container extension so ffmpeg can infer the muxer.
func partialPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".partial" + ext
}
