package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"planreel/internal/verify"
)

// ErrNotFound reports a lookup that matched no run.
var ErrNotFound = errors.New("history: run not found")

// Run is one recorded verification pass.
type Run struct {
	ID            string
	ChapterID     int
	ManifestPath  string
	AllOK         bool
	TotalDuration float64
	SceneCount    int
	MissingCount  int
	Report        string
	CheckedAt     time.Time
	Scenes        []SceneRow
}

// SceneRow is the stored status of one scene within a run.
type SceneRow struct {
	Index     int
	Status    string
	AudioFile string
	Duration  float64
}

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, chapter_id, manifest_path, all_ok, total_duration, scene_count, missing_count, report, checked_at"

// Record stores report as a new run and returns it.
func (s *Store) Record(ctx context.Context, report verify.Report) (Run, error) {
	ctx = ensureContext(ctx)
	checkedAt := report.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}
	run := Run{
		ID:            uuid.NewString(),
		ChapterID:     report.ChapterID,
		ManifestPath:  report.ManifestPath,
		AllOK:         report.AllOK,
		TotalDuration: report.TotalDuration,
		SceneCount:    len(report.Scenes),
		MissingCount:  len(report.MissingAssets),
		Report:        report.Text(),
		CheckedAt:     checkedAt.UTC(),
	}
	for _, scene := range report.Scenes {
		run.Scenes = append(run.Scenes, SceneRow{
			Index:     scene.Index,
			Status:    string(scene.Status),
			AudioFile: scene.AudioFile,
			Duration:  scene.MeasuredDuration,
		})
	}

	err := retryOnBusy(ctx, func() error {
		return s.insert(ctx, run)
	})
	if err != nil {
		return Run{}, fmt.Errorf("record verification run: %w", err)
	}
	return run, nil
}

func (s *Store) insert(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO verification_runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID,
		run.ChapterID,
		run.ManifestPath,
		boolToInt(run.AllOK),
		run.TotalDuration,
		run.SceneCount,
		run.MissingCount,
		run.Report,
		run.CheckedAt.Format(timeLayout),
	)
	if err != nil {
		return err
	}
	for _, scene := range run.Scenes {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO verification_scenes (run_id, scene_index, status, audio_file, duration) VALUES (?, ?, ?, ?, ?)",
			run.ID, scene.Index, scene.Status, scene.AudioFile, scene.Duration,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// List returns the most recent runs, newest first. chapterID 0 lists every
// chapter; limit <= 0 returns all rows. Scene rows are not loaded.
func (s *Store) List(ctx context.Context, chapterID, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + runColumns + " FROM verification_runs"
	var args []any
	if chapterID > 0 {
		query += " WHERE chapter_id = ?"
		args = append(args, chapterID)
	}
	query += " ORDER BY checked_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verification runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get loads one run with its scene rows.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM verification_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get verification run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT scene_index, status, audio_file, duration FROM verification_scenes WHERE run_id = ? ORDER BY scene_index", id)
	if err != nil {
		return Run{}, fmt.Errorf("load scene rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var scene SceneRow
		if err := rows.Scan(&scene.Index, &scene.Status, &scene.AudioFile, &scene.Duration); err != nil {
			return Run{}, fmt.Errorf("scan scene row: %w", err)
		}
		run.Scenes = append(run.Scenes, scene)
	}
	return run, rows.Err()
}

// Latest returns the newest run for a chapter.
func (s *Store) Latest(ctx context.Context, chapterID int) (Run, error) {
	runs, err := s.List(ctx, chapterID, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w: chapter %02d", ErrNotFound, chapterID)
	}
	return s.Get(ctx, runs[0].ID)
}

// Prune deletes runs checked before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM verification_runs WHERE checked_at < ?", cutoff.UTC().Format(timeLayout))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune verification runs: %w", err)
	}
	return removed, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run        Run
		allOK      int
		checkedRaw string
	)
	if err := scanner.Scan(
		&run.ID,
		&run.ChapterID,
		&run.ManifestPath,
		&allOK,
		&run.TotalDuration,
		&run.SceneCount,
		&run.MissingCount,
		&run.Report,
		&checkedRaw,
	); err != nil {
		return Run{}, err
	}
	run.AllOK = allOK != 0
	if parsed, err := time.Parse(timeLayout, checkedRaw); err == nil {
		run.CheckedAt = parsed
	}
	return run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
