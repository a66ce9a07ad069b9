// Package render runs the external scene renderer for a chapter script.
//
// The renderer is a black box described by a command template in
// configuration; {script} and {output} are substituted per invocation.
package render

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
	"time"

	"planreel/internal/config"
	"planreel/internal/logging"
)

const (
	placeholderScript = "{script}"
	placeholderOutput = "{output}"
	outputTailBytes   = 2048
)

// ErrScriptMissing reports a render request for a script that does not exist.
var ErrScriptMissing = errors.New("render: scene script not found")

// CommandError reports a renderer process that exited unsuccessfully.
type CommandError struct {
	Args   []string
	Err    error
	Output string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("render: %s: %v: %s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure for pipeline status mapping.
func (e *CommandError) ErrorKind() string { return "external" }

// Runner invokes the configured renderer.
type Runner struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner builds a runner from the [render] configuration section.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		command: append([]string(nil), cfg.Render.Command...),
		timeout: time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
		logger:  logging.NewComponentLogger(logger, "render"),
	}
}

// Args expands the command template for one invocation.
func (r *Runner) Args(script, output string) []string {
	args := make([]string, len(r.command))
	for i, arg := range r.command {
		arg = strings.ReplaceAll(arg, placeholderScript, script)
		args[i] = strings.ReplaceAll(arg, placeholderOutput, output)
	}
	return args
}

// Render runs the renderer for script, asking it to write output.
func (r *Runner) Render(ctx context.Context, script, output string) error {
	if len(r.command) == 0 {
		return errors.New("render: render.command is empty")
	}
	if _, err := os.Stat(script); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrScriptMissing, script)
		}
		return fmt.Errorf("render: stat script: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("render: create output directory: %w", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := r.Args(script, output)
	started := time.Now()
	r.logger.Info("render started",
		logging.String(logging.FieldStage, "render"),
		logging.String("script", script),
		logging.String("output", output))

	var combined bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	if err := cmd.Run(); err != nil {
		return &CommandError{Args: args, Err: err, Output: tail(combined.String())}
	}

	r.logger.Info("render finished",
		logging.String(logging.FieldStage, "render"),
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

func tail(output string) string {
	output = strings.TrimSpace(output)
	if len(output) > outputTailBytes {
		return "..." + output[len(output)-outputTailBytes:]
	}
	return output
}
