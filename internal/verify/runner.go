package verify

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"planreel/internal/assets"
	"planreel/internal/fileutil"
	"planreel/internal/logging"
	"planreel/internal/manifest"
	"planreel/internal/media/audio"
)

// ErrMissingAudioAsset marks a scene whose narration file does not exist.
var ErrMissingAudioAsset = errors.New("missing audio asset")

// Runner performs verification runs.
type Runner struct {
	resolver *assets.Resolver
	logger   *slog.Logger
	probe    func(string) (float64, error)
	now      func() time.Time
}

// NewRunner returns a runner resolving paths with resolver.
func NewRunner(resolver *assets.Resolver, logger *slog.Logger) *Runner {
	return &Runner{
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "verify"),
		probe:    audio.Duration,
		now:      time.Now,
	}
}

// Verify checks every scene of ch and returns a complete report. Scene
// failures are recorded inline; Verify itself never fails.
func (r *Runner) Verify(ch manifest.Chapter) Report {
	scenes := slices.Clone(ch.Scenes)
	slices.SortStableFunc(scenes, func(a, b manifest.Scene) int { return a.Index - b.Index })

	report := Report{
		ChapterID: ch.ID,
		Title:     ch.Title,
		Scenes:    make([]SceneResult, 0, len(scenes)),
		CheckedAt: r.now().UTC(),
	}
	logger := r.logger.With(logging.Chapter(ch.ID))

	for _, scene := range scenes {
		result, missing := r.checkScene(logger, ch.ID, scene)
		report.Scenes = append(report.Scenes, result)
		if missing != "" {
			report.MissingAssets = append(report.MissingAssets, missing)
		}
		report.MissingFigures = append(report.MissingFigures, r.checkFigures(logger, scene)...)
	}

	report.TotalDuration = lo.SumBy(report.Scenes, func(s SceneResult) float64 { return s.MeasuredDuration })
	report.AllOK = len(report.MissingAssets) == 0
	if report.MissingAssets == nil {
		report.MissingAssets = []string{}
	}

	logger.Info("verification complete",
		logging.String("result", report.Verdict()),
		logging.Float64("total_seconds", report.TotalDuration),
		logging.Int("scenes", len(report.Scenes)),
		logging.Int("missing", len(report.MissingAssets)),
		logging.String(logging.FieldEventType, "verify_complete"),
	)
	return report
}

// checkScene returns the scene result and, when the scene counts as missing,
// the identifier to list under missing assets.
func (r *Runner) checkScene(logger *slog.Logger, chapterID int, scene manifest.Scene) (SceneResult, string) {
	result := SceneResult{Index: scene.Index, Title: scene.Title, AudioFile: scene.TTSFile}
	logger = logger.With(logging.Scene(scene.Index))

	path, err := r.resolver.AudioPath(chapterID, scene)
	if err != nil {
		result.Status = StatusMalformed
		result.Detail = malformedReason(err)
		if strings.TrimSpace(result.AudioFile) == "" {
			result.AudioFile = "<empty>"
		}
		logging.WarnWithContext(logger, "scene audio reference malformed", "asset_reference_malformed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix tts_file in the manifest"),
			logging.String(logging.FieldImpact, "scene counted as missing"),
		)
		return result, fmt.Sprintf("scene %d: %s", scene.Index, result.AudioFile)
	}
	result.AudioPath = path
	result.AudioFile = r.displayName(path)

	if _, err := os.Stat(path); err != nil {
		result.Status = StatusMissing
		if !errors.Is(err, fs.ErrNotExist) {
			result.Detail = err.Error()
		}
		logging.WarnWithContext(logger, "scene audio missing", "audio_missing",
			logging.String("path", path),
			logging.Error(fmt.Errorf("%w: %s", ErrMissingAudioAsset, path)),
			logging.String(logging.FieldErrorHint, "run planreel generate for this chapter"),
			logging.String(logging.FieldImpact, "chapter fails verification"),
		)
		return result, result.AudioFile
	}
	result.Exists = true

	seconds, err := r.probe(path)
	if err != nil {
		result.Status = StatusUnreadable
		result.Detail = "undecodable header"
		logging.WarnWithContext(logger, "scene audio unreadable", "audio_unreadable",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "regenerate the narration audio"),
			logging.String(logging.FieldImpact, "scene contributes 0s to the total"),
		)
		return result, ""
	}
	result.MeasuredDuration = seconds
	result.Status = StatusOK
	logger.Debug("scene audio measured", logging.String("path", path), logging.Float64("seconds", seconds))
	return result, ""
}

// checkFigures resolves each figure id on its own so one malformed id does
// not hide the rest of the scene's figures.
func (r *Runner) checkFigures(logger *slog.Logger, scene manifest.Scene) []MissingFigure {
	var missing []MissingFigure
	seen := make(map[string]struct{}, len(scene.ImageRefs))
	for _, ref := range scene.ImageRefs {
		figures, err := r.resolver.Figures(manifest.Scene{Index: scene.Index, ImageRefs: []string{ref}})
		if err != nil {
			missing = append(missing, MissingFigure{SceneIndex: scene.Index, Ref: ref, Reason: malformedReason(err)})
			logging.WarnWithContext(logger, "figure reference malformed", "asset_reference_malformed",
				logging.Scene(scene.Index),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix image_refs in the manifest"),
				logging.String(logging.FieldImpact, "figure listed as malformed in the report"),
			)
			continue
		}
		for _, fig := range figures {
			if _, dup := seen[fig.Path]; dup {
				continue
			}
			seen[fig.Path] = struct{}{}
			if !fileutil.Exists(fig.Path) {
				missing = append(missing, MissingFigure{SceneIndex: scene.Index, Ref: fig.Ref, Path: r.relativeImage(fig.Path)})
			}
		}
	}
	return missing
}

func (r *Runner) displayName(path string) string {
	if rel, err := filepath.Rel(r.resolver.AudioRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.Base(path)
}

func (r *Runner) relativeImage(path string) string {
	if rel, err := filepath.Rel(r.resolver.ImageRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func malformedReason(err error) string {
	var malformed *assets.MalformedReferenceError
	if errors.As(err, &malformed) {
		return malformed.Reason
	}
	return err.Error()
}

// WriteLog writes the report text to path, replacing any earlier log.
func WriteLog(path string, report Report) error {
	if err := fileutil.WriteFileAtomic(path, []byte(report.Text()), 0o644); err != nil {
		return fmt.Errorf("write verification log: %w", err)
	}
	return nil
}
