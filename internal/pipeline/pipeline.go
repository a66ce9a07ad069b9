package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"planreel/internal/assets"
	"planreel/internal/config"
	"planreel/internal/history"
	"planreel/internal/logging"
	"planreel/internal/manifest"
	"planreel/internal/media/ffprobe"
	"planreel/internal/mux"
	"planreel/internal/sanitize"
	"planreel/internal/tts"
	"planreel/internal/verify"
)

// Options selects which optional stages run.
type Options struct {
	// Sanitize rewrites narration before synthesis.
	Sanitize bool
	// SkipTTS leaves existing audio alone and synthesizes nothing.
	SkipTTS bool
	// ForceTTS regenerates audio that already exists.
	ForceTTS bool
	// SkipMux stops after reconciliation.
	SkipMux bool
}

// Muxer combines a video and a narration track into a deliverable.
type Muxer interface {
	Mux(ctx context.Context, video, narration, output, title string) error
}

// Deps carries the collaborators a pipeline talks to. Nil fields fall back
// to the configured defaults, except Synthesizer and History which disable
// their feature when nil.
type Deps struct {
	Synthesizer tts.Synthesizer
	History     *history.Store
	Muxer       Muxer
	ProbeVideo  func(ctx context.Context, path string) (float64, error)
}

// Pipeline runs chapters through every stage.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *manifest.Store
	resolver   *assets.Resolver
	sanitizer  *sanitize.Sanitizer
	verifier   *verify.Runner
	synth      tts.Synthesizer
	voice      tts.Voice
	history    *history.Store
	muxer      Muxer
	probeVideo func(ctx context.Context, path string) (float64, error)
}

// New wires a pipeline for cfg.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	resolver := assets.NewResolver(cfg)
	_, voice := tts.ConfigFrom(cfg)

	p := &Pipeline{
		cfg:        cfg,
		logger:     logger,
		store:      manifest.NewStore(cfg.Paths.ManifestDir),
		resolver:   resolver,
		sanitizer:  sanitize.New(cfg.Sanitizer.AllowWords...),
		verifier:   verify.NewRunner(resolver, logger),
		synth:      deps.Synthesizer,
		voice:      voice,
		history:    deps.History,
		muxer:      deps.Muxer,
		probeVideo: deps.ProbeVideo,
	}
	if p.muxer == nil {
		p.muxer = mux.NewMuxer(cfg, logger)
	}
	if p.probeVideo == nil {
		binary := cfg.FFprobeBinary()
		p.probeVideo = func(ctx context.Context, path string) (float64, error) {
			return ffprobe.VideoDuration(ctx, binary, path)
		}
	}
	return p
}

// Resolver exposes the asset resolver the pipeline uses.
func (p *Pipeline) Resolver() *assets.Resolver { return p.resolver }

// Store exposes the manifest store the pipeline uses.
func (p *Pipeline) Store() *manifest.Store { return p.store }

// Run processes chapters in order. A chapter failure never stops the
// others; if ctx is cancelled the remaining chapters are reported with the
// cancellation as their fatal error.
func (p *Pipeline) Run(ctx context.Context, chapterIDs []int, opts Options) []ChapterResult {
	results := make([]ChapterResult, 0, len(chapterIDs))
	for _, id := range chapterIDs {
		if err := ctx.Err(); err != nil {
			results = append(results, ChapterResult{ChapterID: id, Fatal: err})
			continue
		}
		results = append(results, p.RunChapter(ctx, id, opts))
	}
	return results
}

// RunChapter runs every stage for one chapter under the chapter lock.
func (p *Pipeline) RunChapter(ctx context.Context, chapterID int, opts Options) ChapterResult {
	return p.withChapter(ctx, chapterID, func(ctx context.Context, ch manifest.Chapter, result *ChapterResult) {
		p.runStage(ctx, result, StageSanitize, func(ctx context.Context, logger *slog.Logger) StageResult {
			return p.sanitizeStage(logger, &ch, opts)
		})
		p.runStage(ctx, result, StageSynthesize, func(ctx context.Context, logger *slog.Logger) StageResult {
			return p.synthesizeStage(ctx, logger, ch, opts, result)
		})
		p.runStage(ctx, result, StageVerify, func(ctx context.Context, logger *slog.Logger) StageResult {
			return p.verifyStage(ctx, logger, ch, result)
		})
		p.runStage(ctx, result, StageReconcile, func(ctx context.Context, logger *slog.Logger) StageResult {
			return p.reconcileStage(ctx, logger, ch, result)
		})
		p.runStage(ctx, result, StageMux, func(ctx context.Context, logger *slog.Logger) StageResult {
			return p.muxStage(ctx, ch, opts, result)
		})
	})
}

// Generate synthesizes a chapter's narration audio without verifying,
// reconciling or muxing it.
func (p *Pipeline) Generate(ctx context.Context, chapterID int, force bool) ChapterResult {
	return p.withChapter(ctx, chapterID, func(ctx context.Context, ch manifest.Chapter, result *ChapterResult) {
		p.runStage(ctx, result, StageSynthesize, func(ctx context.Context, logger *slog.Logger) StageResult {
			return p.synthesizeStage(ctx, logger, ch, Options{ForceTTS: force}, result)
		})
	})
}

// Sanitize rewrites a chapter's narration and saves the manifest.
func (p *Pipeline) Sanitize(ctx context.Context, chapterID int) ChapterResult {
	return p.withChapter(ctx, chapterID, func(ctx context.Context, ch manifest.Chapter, result *ChapterResult) {
		p.runStage(ctx, result, StageSanitize, func(ctx context.Context, logger *slog.Logger) StageResult {
			return p.sanitizeStage(logger, &ch, Options{Sanitize: true})
		})
	})
}

// Verify runs the verification pass alone, writing the chapter log and
// recording the run in history.
func (p *Pipeline) Verify(ctx context.Context, chapterID int) ChapterResult {
	return p.withChapter(ctx, chapterID, func(ctx context.Context, ch manifest.Chapter, result *ChapterResult) {
		p.runStage(ctx, result, StageVerify, func(ctx context.Context, logger *slog.Logger) StageResult {
			return p.verifyStage(ctx, logger, ch, result)
		})
	})
}

// withChapter takes the chapter lock, loads the manifest and hands it to fn.
func (p *Pipeline) withChapter(ctx context.Context, chapterID int, fn func(context.Context, manifest.Chapter, *ChapterResult)) ChapterResult {
	result := ChapterResult{RunID: uuid.NewString(), ChapterID: chapterID}
	ctx = logging.WithChapter(ctx, chapterID)
	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, p.logger)

	lock, err := acquireChapterLock(p.resolver.LockPath(chapterID))
	if err != nil {
		result.Fatal = err
		logging.ErrorWithContext(logger, "chapter skipped", "chapter_locked",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for the other run to finish"))
		return result
	}
	defer func() {
		if err := lock.release(); err != nil {
			logger.Warn("release chapter lock failed", logging.Error(err))
		}
	}()

	logger.Info("chapter started", logging.String(logging.FieldEventType, "chapter_start"))
	started := time.Now()

	ch, ok := p.runLoad(ctx, &result)
	if !ok {
		logger.Info("chapter finished", logging.String("summary", result.Summary()))
		return result
	}
	result.Title = ch.Title

	fn(ctx, ch, &result)

	logger.Info("chapter finished",
		logging.String(logging.FieldEventType, "chapter_complete"),
		logging.Bool("ok", result.OK()),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("summary", result.Summary()))
	return result
}

func (p *Pipeline) runLoad(ctx context.Context, result *ChapterResult) (manifest.Chapter, bool) {
	var ch manifest.Chapter
	p.runStage(ctx, result, StageLoad, func(ctx context.Context, logger *slog.Logger) StageResult {
		loaded, err := p.store.Load(result.ChapterID)
		if err != nil {
			result.Fatal = err
			return StageResult{Status: FailureStatus(err), Err: err}
		}
		ch = loaded
		return StageResult{Status: StatusOK, Detail: p.store.Path(result.ChapterID)}
	})
	return ch, result.Fatal == nil
}

type stageFunc func(ctx context.Context, logger *slog.Logger) StageResult

// runStage stamps the stage onto the logging context, times the stage and
// logs its outcome.
func (p *Pipeline) runStage(ctx context.Context, result *ChapterResult, name string, fn stageFunc) {
	stageCtx := logging.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, p.logger)
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := time.Now()
	stage := fn(stageCtx, logger)
	stage.Stage = name
	stage.Elapsed = time.Since(started)
	result.record(stage)

	attrs := []logging.Attr{
		logging.String("status", string(stage.Status)),
		logging.Duration("elapsed", stage.Elapsed),
	}
	if stage.Detail != "" {
		attrs = append(attrs, logging.String("detail", stage.Detail))
	}
	switch stage.Status {
	case StatusFailed:
		attrs = append(attrs, logging.Error(stage.Err), logging.String("error_kind", Kind(stage.Err)))
		logging.ErrorWithContext(logger, "stage failed", "stage_failed", attrs...)
	case StatusReview:
		if stage.Err != nil {
			attrs = append(attrs, logging.Error(stage.Err), logging.String("error_kind", Kind(stage.Err)))
		}
		logging.WarnWithContext(logger, "stage needs review", "stage_review",
			append(attrs, logging.String(logging.FieldImpact, "chapter deliverable is not ready"))...)
	default:
		logger.Info("stage finished", append(logging.Args(attrs...), logging.String(logging.FieldEventType, "stage_complete"))...)
	}
}
