package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"planreel/internal/config"
	"planreel/internal/manifest"
	"planreel/internal/media/audio"
	"planreel/internal/reconcile"
	"planreel/internal/testsupport"
	"planreel/internal/tts"
)

type fakeSynth struct {
	t       *testing.T
	seconds float64
	calls   []string
	failOn  map[string]error
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, _ tts.Voice, dst string) error {
	f.calls = append(f.calls, filepath.Base(dst))
	if err := f.failOn[filepath.Base(dst)]; err != nil {
		return err
	}
	testsupport.WriteWAV(f.t, dst, f.seconds)
	return nil
}

type fakeMuxer struct {
	calls  int
	output string
	title  string
}

func (m *fakeMuxer) Mux(_ context.Context, video, narration, output, title string) error {
	m.calls++
	m.output = output
	m.title = title
	return os.WriteFile(output, []byte("muxed"), 0o644)
}

type fixture struct {
	cfg      *config.Config
	synth    *fakeSynth
	muxer    *fakeMuxer
	pipeline *Pipeline
}

func newFixture(t *testing.T, videoSeconds float64, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	f := &fixture{
		cfg:   cfg,
		synth: &fakeSynth{t: t, seconds: 1},
		muxer: &fakeMuxer{},
	}
	f.pipeline = New(cfg, nil, Deps{
		Synthesizer: f.synth,
		History:     testsupport.MustOpenHistory(t, cfg),
		Muxer:       f.muxer,
		ProbeVideo: func(context.Context, string) (float64, error) {
			return videoSeconds, nil
		},
	})
	return f
}

func (f *fixture) writeChapter(t *testing.T, ch manifest.Chapter, withVideo bool) {
	t.Helper()
	testsupport.WriteManifest(t, f.cfg.Paths.ManifestDir, ch)
	if withVideo {
		testsupport.WriteFile(t, f.pipeline.Resolver().VideoPath(ch.ID), []byte("video"))
	}
}

func stageStatus(t *testing.T, result ChapterResult, name string) Status {
	t.Helper()
	stage, ok := result.Stage(name)
	if !ok {
		t.Fatalf("stage %s did not run: %+v", name, result.Stages)
	}
	return stage.Status
}

func TestRunChapterEndToEnd(t *testing.T) {
	f := newFixture(t, 4, testsupport.WithTolerance(0.5))
	ch := testsupport.Chapter(1, 2)
	ch.Title = "reading plan sheets"
	f.writeChapter(t, ch, true)

	result := f.pipeline.RunChapter(context.Background(), 1, Options{})
	if !result.OK() {
		t.Fatalf("expected chapter to pass: %s", result.Summary())
	}
	if result.RunID == "" {
		t.Fatal("expected run id")
	}
	if len(f.synth.calls) != 2 {
		t.Fatalf("expected 2 synthesis calls, got %v", f.synth.calls)
	}
	if stageStatus(t, result, StageSanitize) != StatusSkipped {
		t.Fatal("expected sanitize skipped by default")
	}
	if result.Report == nil || !result.Report.AllOK || result.Report.TotalDuration < 1.99 {
		t.Fatalf("unexpected report %+v", result.Report)
	}
	if result.Outcome == nil || result.Outcome.Kind != reconcile.NarrationShort {
		t.Fatalf("expected short narration, got %+v", result.Outcome)
	}
	padded, err := audio.Duration(result.Narration)
	if err != nil {
		t.Fatalf("narration duration: %v", err)
	}
	if padded < 3.99 || padded > 4.01 {
		t.Fatalf("expected narration padded to 4s, got %v", padded)
	}
	if f.muxer.calls != 1 || result.Deliverable != filepath.Join(f.cfg.Paths.OutputDir, "01-reading-plan-sheets.mp4") {
		t.Fatalf("unexpected mux: calls=%d deliverable=%q", f.muxer.calls, result.Deliverable)
	}
	if f.muxer.title != "Chapter 1: Reading Plan Sheets" {
		t.Fatalf("unexpected mux title %q", f.muxer.title)
	}
	if _, err := os.Stat(f.pipeline.Resolver().ReportPath(1)); err != nil {
		t.Fatalf("expected verification log: %v", err)
	}
	if !strings.HasPrefix(result.Summary(), "chapter 01: PASS") {
		t.Fatalf("unexpected summary %q", result.Summary())
	}

	again := f.pipeline.RunChapter(context.Background(), 1, Options{SkipMux: true})
	if len(f.synth.calls) != 2 {
		t.Fatalf("expected existing audio kept, got calls %v", f.synth.calls)
	}
	if stage, _ := again.Stage(StageSynthesize); stage.Detail != "generated=0 kept=2 failed=0" {
		t.Fatalf("unexpected synth detail %q", stage.Detail)
	}
	if stageStatus(t, again, StageMux) != StatusSkipped {
		t.Fatal("expected mux skipped")
	}
}

func TestRunContinuesPastMissingManifest(t *testing.T) {
	f := newFixture(t, 2)
	f.writeChapter(t, testsupport.Chapter(2, 1), false)

	results := f.pipeline.Run(context.Background(), []int{9, 2}, Options{})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	missing := results[0]
	if !errors.Is(missing.Fatal, manifest.ErrMissingManifest) {
		t.Fatalf("expected missing manifest fatal, got %v", missing.Fatal)
	}
	if stageStatus(t, missing, StageLoad) != StatusReview || len(missing.Stages) != 1 {
		t.Fatalf("expected only a load stage in review, got %+v", missing.Stages)
	}
	if !strings.Contains(missing.Summary(), "chapter 09: FAIL") {
		t.Fatalf("unexpected summary %q", missing.Summary())
	}

	if results[1].Fatal != nil || results[1].Report == nil {
		t.Fatalf("expected chapter 2 processed: %+v", results[1])
	}
	if stageStatus(t, results[1], StageReconcile) != StatusSkipped {
		t.Fatal("expected reconcile skipped without rendered video")
	}
}

func TestSkipTTSReportsMissingAudio(t *testing.T) {
	f := newFixture(t, 2)
	f.writeChapter(t, testsupport.Chapter(3, 2), true)
	testsupport.WriteWAV(t, filepath.Join(f.cfg.Paths.AudioDir, "chapter03_scene01.wav"), 1)

	result := f.pipeline.RunChapter(context.Background(), 3, Options{SkipTTS: true})
	if len(f.synth.calls) != 0 {
		t.Fatalf("expected no synthesis, got %v", f.synth.calls)
	}
	verifyStage, _ := result.Stage(StageVerify)
	if verifyStage.Status != StatusReview || Kind(verifyStage.Err) != "not_found" {
		t.Fatalf("unexpected verify stage %+v", verifyStage)
	}
	if len(result.Report.MissingAssets) != 1 || result.Report.MissingAssets[0] != "chapter03_scene02.wav" {
		t.Fatalf("unexpected missing assets %v", result.Report.MissingAssets)
	}
	if stageStatus(t, result, StageReconcile) != StatusSkipped || stageStatus(t, result, StageMux) != StatusSkipped {
		t.Fatal("expected reconcile and mux skipped after failed verification")
	}
	if result.OK() {
		t.Fatal("expected chapter to fail")
	}
}

func TestSceneSynthesisFailureIsLocal(t *testing.T) {
	f := newFixture(t, 2)
	f.synth.failOn = map[string]error{"chapter04_scene01.wav": errors.New("backend hiccup")}
	f.writeChapter(t, testsupport.Chapter(4, 2), false)

	result := f.pipeline.RunChapter(context.Background(), 4, Options{})
	if len(f.synth.calls) != 2 {
		t.Fatalf("expected synthesis to continue after failure, got %v", f.synth.calls)
	}
	if len(result.Failures) != 1 || result.Failures[0].SceneIndex != 1 {
		t.Fatalf("unexpected failures %+v", result.Failures)
	}
	if stageStatus(t, result, StageSynthesize) != StatusFailed {
		t.Fatal("expected synthesize stage failed")
	}
	if result.Report == nil || result.Report.Scenes[1].Status != "OK" {
		t.Fatalf("expected scene 2 verified OK: %+v", result.Report)
	}
}

func TestAuthFailureStopsSynthesis(t *testing.T) {
	f := newFixture(t, 2)
	f.synth.failOn = map[string]error{"chapter05_scene01.wav": &tts.StatusError{StatusCode: 401, Body: "bad key"}}
	f.writeChapter(t, testsupport.Chapter(5, 3), false)

	result := f.pipeline.RunChapter(context.Background(), 5, Options{})
	if len(f.synth.calls) != 1 {
		t.Fatalf("expected synthesis to stop after auth failure, got %v", f.synth.calls)
	}
	if stageStatus(t, result, StageSynthesize) != StatusReview {
		t.Fatal("expected configuration failure to need review")
	}
}

func TestLongNarrationSkipsMux(t *testing.T) {
	f := newFixture(t, 0.5)
	f.writeChapter(t, testsupport.Chapter(6, 3), true)

	result := f.pipeline.RunChapter(context.Background(), 6, Options{})
	if result.Outcome == nil || result.Outcome.Kind != reconcile.NarrationLong {
		t.Fatalf("expected long narration, got %+v", result.Outcome)
	}
	if stageStatus(t, result, StageReconcile) != StatusReview {
		t.Fatal("expected reconcile review")
	}
	if f.muxer.calls != 0 || stageStatus(t, result, StageMux) != StatusSkipped {
		t.Fatal("expected mux skipped for long narration")
	}
	narrationSeconds, err := audio.Duration(result.Narration)
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if narrationSeconds < 2.99 {
		t.Fatalf("narration must never be truncated, got %v", narrationSeconds)
	}
}

func TestSanitizeStagePersistsManifestAndMap(t *testing.T) {
	f := newFixture(t, 2)
	ch := testsupport.Chapter(7, 1)
	ch.Scenes[0].NarrationText = "Begin at Station 12+50 near culvert C-12A and sheet PL204."
	f.writeChapter(t, ch, false)

	result := f.pipeline.RunChapter(context.Background(), 7, Options{Sanitize: true, SkipTTS: true})
	if stageStatus(t, result, StageSanitize) != StatusOK {
		t.Fatalf("expected sanitize ok: %+v", result.Stages)
	}
	saved, err := f.pipeline.Store().Load(7)
	if err != nil {
		t.Fatalf("reload manifest: %v", err)
	}
	text := saved.Scenes[0].NarrationText
	if strings.Contains(text, "12+50") || strings.Contains(text, "PL204") {
		t.Fatalf("expected identifiers removed, got %q", text)
	}
	if !strings.Contains(text, "a station number") {
		t.Fatalf("expected station phrase, got %q", text)
	}

	data, err := os.ReadFile(f.pipeline.Resolver().SanitizeMapPath(7))
	if err != nil {
		t.Fatalf("read sanitization map: %v", err)
	}
	var entries []map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode map: %v", err)
	}
	if len(entries) == 0 || entries[0]["original"] != "12+50" {
		t.Fatalf("unexpected map entries %v", entries)
	}
}

func TestChapterLockBusy(t *testing.T) {
	f := newFixture(t, 2)
	f.writeChapter(t, testsupport.Chapter(8, 1), false)

	holder := flock.New(f.pipeline.Resolver().LockPath(8))
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-acquire lock: %v %v", locked, err)
	}
	defer func() { _ = holder.Unlock() }()

	result := f.pipeline.RunChapter(context.Background(), 8, Options{})
	if !errors.Is(result.Fatal, ErrChapterBusy) || Kind(result.Fatal) != "busy" {
		t.Fatalf("expected busy chapter, got %v", result.Fatal)
	}
	if len(result.Stages) != 0 {
		t.Fatalf("expected no stages to run, got %+v", result.Stages)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	f := newFixture(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := f.pipeline.Run(ctx, []int{1, 2}, Options{})
	if len(results) != 2 || !errors.Is(results[1].Fatal, context.Canceled) {
		t.Fatalf("expected cancelled chapters reported, got %+v", results)
	}
}

func TestGenerateOnlySynthesizes(t *testing.T) {
	f := newFixture(t, 4)
	f.writeChapter(t, testsupport.Chapter(2, 3), false)

	result := f.pipeline.Generate(context.Background(), 2, false)
	if !result.OK() || len(result.Stages) != 2 {
		t.Fatalf("expected load and synthesize only: %s", result.Summary())
	}
	if result.Report != nil || result.Outcome != nil {
		t.Fatalf("expected no verification or reconcile, got %+v", result)
	}
	if len(f.synth.calls) != 3 {
		t.Fatalf("expected 3 synthesis calls, got %v", f.synth.calls)
	}

	forced := f.pipeline.Generate(context.Background(), 2, true)
	if stage, _ := forced.Stage(StageSynthesize); stage.Detail != "generated=3 kept=0 failed=0" {
		t.Fatalf("expected forced regeneration, got %q", stage.Detail)
	}
}

func TestVerifyAndSanitizeEntryPoints(t *testing.T) {
	f := newFixture(t, 4)
	ch := testsupport.Chapter(3, 2)
	ch.Scenes[0].NarrationText = "Begin at STA 12+50 on sheet C-101."
	f.writeChapter(t, ch, false)
	testsupport.WriteWAV(t, filepath.Join(f.cfg.Paths.AudioDir, "chapter03_scene01.wav"), 1)

	verified := f.pipeline.Verify(context.Background(), 3)
	if verified.OK() || verified.Report == nil || len(verified.Report.MissingAssets) != 1 {
		t.Fatalf("expected one missing asset: %s", verified.Summary())
	}
	if len(f.synth.calls) != 0 {
		t.Fatalf("verify must not synthesize, got %v", f.synth.calls)
	}

	sanitized := f.pipeline.Sanitize(context.Background(), 3)
	if !sanitized.OK() {
		t.Fatalf("sanitize failed: %s", sanitized.Summary())
	}
	reloaded, err := f.pipeline.Store().Load(3)
	if err != nil {
		t.Fatalf("reload manifest: %v", err)
	}
	if strings.Contains(reloaded.Scenes[0].NarrationText, "12+50") {
		t.Fatalf("expected station rewritten, got %q", reloaded.Scenes[0].NarrationText)
	}
}
