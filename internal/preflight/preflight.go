package preflight

import (
	"context"

	"planreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Optional bool
}

// Failed returns the non-optional results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}

// RunAll executes the offline checks: directory access and TTS credentials.
// Network reachability is left to CheckTTSReachable.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := make([]Result, 0, 9)
	for _, dir := range []struct {
		name string
		path string
	}{
		{"Manifest directory", cfg.Paths.ManifestDir},
		{"Audio directory", cfg.Paths.AudioDir},
		{"Image directory", cfg.Paths.ImageDir},
		{"Render directory", cfg.Paths.VideoDir},
		{"Output directory", cfg.Paths.OutputDir},
		{"Report directory", cfg.Paths.ReportDir},
		{"Log directory", cfg.Paths.LogDir},
	} {
		results = append(results, CheckDirectoryAccess(dir.name, dir.path))
	}
	results = append(results, CheckScriptDirectory(cfg.Paths.ScriptDir))
	results = append(results, CheckTTSKey(cfg))
	return results
}
