package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"planreel/internal/config"
	"planreel/internal/deps"
	"planreel/internal/tts"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckScriptDirectory only needs read access: scene scripts are authored
// by hand and never written by the pipeline.
func CheckScriptDirectory(path string) Result {
	const name = "Scene script directory"
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckTTSKey reports whether a TTS API key is configured.
func CheckTTSKey(cfg *config.Config) Result {
	const name = "TTS credentials"
	if err := cfg.RequireTTSKey(); err != nil {
		return Result{Name: name, Optional: true, Detail: "API key missing (audio generation disabled)"}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: "API key configured"}
}

// CheckTTSReachable verifies that the TTS API is reachable and the key is
// valid. It uses a 30-second timeout and a single attempt.
func CheckTTSReachable(ctx context.Context, cfg *config.Config) Result {
	const name = "TTS API"
	if err := cfg.RequireTTSKey(); err != nil {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientCfg, _ := tts.ConfigFrom(cfg)
	if err := tts.NewClient(clientCfg).HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeTTSError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckSystemDeps evaluates the external binaries for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

func summarizeTTSError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (TTS API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (TTS API unreachable)"
	}
	var statusErr *tts.StatusError
	if errors.As(err, &statusErr) && statusErr.ErrorKind() == "configuration" {
		return "auth failed (invalid api key)"
	}
	return err.Error()
}
