package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"planreel/internal/history"
	"planreel/internal/testsupport"
	"planreel/internal/verify"
)

func sampleReport(chapter int, ok bool, at time.Time) verify.Report {
	report := verify.Report{
		ChapterID:    chapter,
		Title:        "Reading Plan Sheets",
		ManifestPath: "/m/chapter.json",
		Scenes: []verify.SceneResult{
			{Index: 1, AudioFile: "a.wav", Exists: true, MeasuredDuration: 2.5, Status: verify.StatusOK},
			{Index: 2, AudioFile: "b.wav", Status: verify.StatusMissing},
		},
		TotalDuration: 2.5,
		MissingAssets: []string{"b.wav"},
		CheckedAt:     at,
	}
	if ok {
		report.Scenes[1] = verify.SceneResult{Index: 2, AudioFile: "b.wav", Exists: true, MeasuredDuration: 1, Status: verify.StatusOK}
		report.TotalDuration = 3.5
		report.MissingAssets = []string{}
	}
	report.AllOK = ok
	return report
}

func TestRecordAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if store.Path() != filepath.Join(cfg.Paths.LogDir, history.DatabaseName) {
		t.Fatalf("unexpected database path %q", store.Path())
	}

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	run, err := store.Record(context.Background(), sampleReport(3, false, at))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if run.ID == "" || run.SceneCount != 2 || run.MissingCount != 1 || run.AllOK {
		t.Fatalf("unexpected recorded run %+v", run)
	}

	loaded, err := store.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !loaded.CheckedAt.Equal(at) || loaded.ChapterID != 3 || loaded.ManifestPath != "/m/chapter.json" {
		t.Fatalf("unexpected loaded run %+v", loaded)
	}
	if !strings.Contains(loaded.Report, "result=FAIL") {
		t.Fatalf("expected stored report text, got %q", loaded.Report)
	}
	if len(loaded.Scenes) != 2 || loaded.Scenes[1].Status != "MISSING" || loaded.Scenes[0].Duration != 2.5 {
		t.Fatalf("unexpected scene rows %+v", loaded.Scenes)
	}

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListLatestAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, report := range []verify.Report{
		sampleReport(1, false, base),
		sampleReport(1, true, base.Add(time.Hour)),
		sampleReport(2, true, base.Add(30*time.Minute)),
		sampleReport(1, false, base.Add(500*time.Millisecond)),
	} {
		if _, err := store.Record(ctx, report); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	all, err := store.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CheckedAt.After(all[i-1].CheckedAt) {
			t.Fatalf("runs not newest first: %v then %v", all[i-1].CheckedAt, all[i].CheckedAt)
		}
	}

	chapterOne, err := store.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List chapter: %v", err)
	}
	if len(chapterOne) != 2 || !chapterOne[0].AllOK {
		t.Fatalf("unexpected chapter 1 runs %+v", chapterOne)
	}

	latest, err := store.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !latest.AllOK || len(latest.Scenes) != 2 {
		t.Fatalf("unexpected latest run %+v", latest)
	}
	if _, err := store.Latest(ctx, 9); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown chapter, got %v", err)
	}

	removed, err := store.Prune(ctx, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 pruned runs, got %d", removed)
	}
	remaining, _ := store.List(ctx, 0, 0)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining runs, got %d", len(remaining))
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), sampleReport(5, true, time.Now())); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenHistory(t, cfg)
	runs, err := reopened.List(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d", len(runs))
	}
}
