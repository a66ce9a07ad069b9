package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"planreel/internal/fileutil"
	"planreel/internal/logging"
	"planreel/internal/manifest"
	"planreel/internal/media/audio"
	"planreel/internal/narration"
	"planreel/internal/reconcile"
	"planreel/internal/sanitize"
	"planreel/internal/verify"
)

// sanitizeStage rewrites narration in place and persists the manifest when
// anything changed. The substitution map is written next to the manifest.
func (p *Pipeline) sanitizeStage(logger *slog.Logger, ch *manifest.Chapter, opts Options) StageResult {
	if !opts.Sanitize {
		return StageResult{Status: StatusSkipped, Detail: "not requested"}
	}

	combined := sanitize.NewMap()
	changed := 0
	for i := range ch.Scenes {
		scene := &ch.Scenes[i]
		clean, substitutions := p.sanitizer.Sanitize(scene.NarrationText)
		combined.Merge(substitutions)
		if clean == scene.NarrationText {
			continue
		}
		scene.NarrationText = clean
		changed++
		logger.Debug("narration sanitized",
			logging.Scene(scene.Index),
			logging.Int("substitutions", substitutions.Len()))
	}

	if changed > 0 {
		if err := p.store.Save(*ch); err != nil {
			return StageResult{Status: FailureStatus(err), Err: fmt.Errorf("save sanitized manifest: %w", err)}
		}
	}
	for _, entry := range combined.Entries() {
		logger.Info("identifier replaced",
			logging.String("original", entry.Original),
			logging.String("replacement", entry.Replacement),
			logging.String("reason", entry.Reason))
	}
	if p.cfg.Sanitizer.WriteMap && combined.Len() > 0 {
		data, err := json.MarshalIndent(combined, "", "  ")
		if err != nil {
			return StageResult{Status: StatusFailed, Err: fmt.Errorf("encode sanitization map: %w", err)}
		}
		if err := fileutil.WriteFileAtomic(p.resolver.SanitizeMapPath(ch.ID), append(data, '\n'), 0o644); err != nil {
			return StageResult{Status: StatusFailed, Err: fmt.Errorf("write sanitization map: %w", err)}
		}
	}
	return StageResult{
		Status: StatusOK,
		Detail: fmt.Sprintf("scenes_changed=%d replacements=%d", changed, combined.Len()),
	}
}

// synthesizeStage produces narration audio for scenes that lack it.
// Failures are scene-local; an authentication failure stops the loop since
// every later request would fail the same way.
func (p *Pipeline) synthesizeStage(ctx context.Context, logger *slog.Logger, ch manifest.Chapter, opts Options, result *ChapterResult) StageResult {
	if opts.SkipTTS {
		return StageResult{Status: StatusSkipped, Detail: "disabled"}
	}
	if p.synth == nil {
		return StageResult{Status: StatusSkipped, Detail: "no tts backend configured"}
	}

	var (
		generated, kept int
		errs            []error
	)
	for _, scene := range ch.Scenes {
		path, err := p.resolver.AudioPath(ch.ID, scene)
		if err != nil {
			errs = append(errs, p.sceneFailure(result, StageSynthesize, scene.Index, err))
			continue
		}
		if !opts.ForceTTS && fileutil.Exists(path) {
			kept++
			continue
		}
		if err := p.synth.Synthesize(ctx, scene.NarrationText, p.voice, path); err != nil {
			errs = append(errs, p.sceneFailure(result, StageSynthesize, scene.Index, err))
			logging.WarnWithContext(logger, "scene synthesis failed", "tts_failed",
				logging.Scene(scene.Index),
				logging.Error(err),
				logging.String(logging.FieldImpact, "scene audio will be reported missing"))
			if Kind(err) == "configuration" || ctx.Err() != nil {
				break
			}
			continue
		}
		generated++
		logger.Info("scene audio written",
			logging.Scene(scene.Index),
			logging.String("path", path),
			logging.Int("words", narration.Words(scene.NarrationText)))
	}

	detail := fmt.Sprintf("generated=%d kept=%d failed=%d", generated, kept, len(errs))
	if len(errs) > 0 {
		return StageResult{Status: FailureStatus(errs[0]), Detail: detail, Err: errors.Join(errs...)}
	}
	return StageResult{Status: StatusOK, Detail: detail}
}

// verifyStage runs the verification pass, writes the chapter log and
// records the run in the history ledger.
func (p *Pipeline) verifyStage(ctx context.Context, logger *slog.Logger, ch manifest.Chapter, result *ChapterResult) StageResult {
	report := p.verifier.Verify(ch)
	report.ManifestPath = p.store.Path(ch.ID)
	result.Report = &report

	logPath := p.resolver.ReportPath(ch.ID)
	if err := verify.WriteLog(logPath, report); err != nil {
		return StageResult{Status: StatusFailed, Err: err}
	}
	if p.history != nil {
		if _, err := p.history.Record(ctx, report); err != nil {
			logging.WarnWithContext(logger, "history record failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run missing from history listing"))
		}
	}

	if !report.AllOK {
		err := fmt.Errorf("%w: %s", verify.ErrMissingAudioAsset, strings.Join(report.MissingAssets, ", "))
		return StageResult{Status: StatusReview, Detail: report.Summary(), Err: err}
	}
	return StageResult{Status: StatusOK, Detail: report.Summary()}
}

// reconcileStage compares the concatenated narration with the rendered
// video. Short narration is padded with trailing silence when configured;
// long narration is flagged and never truncated.
func (p *Pipeline) reconcileStage(ctx context.Context, logger *slog.Logger, ch manifest.Chapter, result *ChapterResult) StageResult {
	if result.Report == nil || !result.Report.AllOK {
		return StageResult{Status: StatusSkipped, Detail: "verification did not pass"}
	}
	video := p.resolver.VideoPath(ch.ID)
	if !fileutil.Exists(video) {
		return StageResult{Status: StatusSkipped, Detail: "no rendered video at " + video}
	}

	videoSeconds, err := p.probeVideo(ctx, video)
	if err != nil {
		return StageResult{Status: FailureStatus(err), Err: err}
	}

	sources := make([]string, 0, len(result.Report.Scenes))
	for _, scene := range result.Report.Scenes {
		sources = append(sources, scene.AudioPath)
	}
	track := p.resolver.NarrationTrackPath(ch.ID)
	if err := audio.Concat(track, sources...); err != nil {
		return StageResult{Status: FailureStatus(err), Err: fmt.Errorf("build narration track: %w", err)}
	}
	narrationSeconds, err := audio.Duration(track)
	if err != nil {
		return StageResult{Status: FailureStatus(err), Err: err}
	}

	outcome, err := reconcile.Reconcile(videoSeconds, narrationSeconds, p.cfg.Reconcile.ToleranceSeconds)
	if err != nil {
		return StageResult{Status: FailureStatus(err), Err: err}
	}
	result.Outcome = &outcome
	result.Narration = track

	switch outcome.Kind {
	case reconcile.NarrationShort:
		if !p.cfg.Reconcile.PadShortNarration {
			return StageResult{Status: StatusOK, Detail: outcome.Describe() + " (padding disabled)"}
		}
		if err := audio.PadSilence(track, track, outcome.PadSeconds); err != nil {
			return StageResult{Status: FailureStatus(err), Err: fmt.Errorf("pad narration: %w", err)}
		}
		logger.Info("narration padded",
			logging.Float64("pad_seconds", outcome.PadSeconds),
			logging.String("path", track))
		return StageResult{Status: StatusOK, Detail: outcome.Describe() + " (padded)"}
	case reconcile.NarrationLong:
		logging.WarnWithContext(logger, "narration longer than video", "narration_long",
			logging.Float64("video_seconds", outcome.Video),
			logging.Float64("narration_seconds", outcome.Narration),
			logging.String(logging.FieldErrorHint, "extend the scene animations and re-render"),
			logging.String(logging.FieldImpact, "mux skipped"))
		return StageResult{Status: StatusReview, Detail: outcome.Describe()}
	}
	return StageResult{Status: StatusOK, Detail: outcome.Describe()}
}

// muxStage writes the chapter deliverable from the reconciled narration.
func (p *Pipeline) muxStage(ctx context.Context, ch manifest.Chapter, opts Options, result *ChapterResult) StageResult {
	switch {
	case opts.SkipMux:
		return StageResult{Status: StatusSkipped, Detail: "disabled"}
	case result.Outcome == nil:
		return StageResult{Status: StatusSkipped, Detail: "nothing reconciled"}
	case result.Outcome.NeedsAttention():
		return StageResult{Status: StatusSkipped, Detail: "narration longer than video"}
	}

	output := p.resolver.DeliverablePath(ch.ID, ch.Title)
	title := fmt.Sprintf("Chapter %d: %s", ch.ID, narration.DisplayTitle(ch.Title))
	if err := p.muxer.Mux(ctx, p.resolver.VideoPath(ch.ID), result.Narration, output, title); err != nil {
		return StageResult{Status: FailureStatus(err), Err: err}
	}
	result.Deliverable = output
	return StageResult{Status: StatusOK, Detail: output}
}

func (p *Pipeline) sceneFailure(result *ChapterResult, stage string, sceneIndex int, err error) error {
	result.Failures = append(result.Failures, SceneFailure{Stage: stage, SceneIndex: sceneIndex, Err: err})
	return fmt.Errorf("scene %d: %w", sceneIndex, err)
}
