package logging

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	// FieldComponent names the subsystem emitting a record.
	FieldComponent = "component"
	// FieldChapter carries the two-digit chapter id ("03").
	FieldChapter = "chapter"
	// FieldScene carries the 1-based scene index within a chapter.
	FieldScene = "scene"
	// FieldStage carries the pipeline stage name.
	FieldStage = "stage"
	// FieldRunID correlates every record emitted during one pipeline run.
	FieldRunID = "run_id"
	// FieldEventType is a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	chapterKey contextKey = iota
	stageKey
	runIDKey
)

// WithChapter stores the chapter number on ctx.
func WithChapter(ctx context.Context, chapter int) context.Context {
	return context.WithValue(ctx, chapterKey, chapter)
}

// WithStage stores the pipeline stage name on ctx.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// WithRunID stores the run correlation id on ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

func contextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var fields []any
	if chapter, ok := ctx.Value(chapterKey).(int); ok {
		fields = append(fields, Chapter(chapter))
	}
	if stage, ok := ctx.Value(stageKey).(string); ok && stage != "" {
		fields = append(fields, String(FieldStage, stage))
	}
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		fields = append(fields, String(FieldRunID, id))
	}
	return fields
}

// WithContext adds the chapter, stage and run id stored on ctx to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

func formatChapter(chapter int) string {
	return fmt.Sprintf("%02d", chapter)
}
