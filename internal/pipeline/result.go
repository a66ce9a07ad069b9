package pipeline

import (
	"fmt"
	"strings"
	"time"

	"planreel/internal/reconcile"
	"planreel/internal/verify"
)

// Stage names.
const (
	StageLoad       = "load"
	StageSanitize   = "sanitize"
	StageSynthesize = "synthesize"
	StageVerify     = "verify"
	StageReconcile  = "reconcile"
	StageMux        = "mux"
)

// Status is the outcome of one stage.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusReview  Status = "review"
	StatusFailed  Status = "failed"
)

// StageResult records one stage execution.
type StageResult struct {
	Stage   string
	Status  Status
	Detail  string
	Err     error
	Elapsed time.Duration
}

// SceneFailure is a scene-local problem recorded during a stage.
type SceneFailure struct {
	Stage      string
	SceneIndex int
	Err        error
}

// ChapterResult collects everything a chapter run produced.
type ChapterResult struct {
	RunID       string
	ChapterID   int
	Title       string
	Stages      []StageResult
	Failures    []SceneFailure
	Report      *verify.Report
	Outcome     *reconcile.Outcome
	Narration   string
	Deliverable string
	// Fatal is set when the chapter stopped before its remaining stages.
	Fatal error
}

// Stage returns the result for name, if that stage ran.
func (r ChapterResult) Stage(name string) (StageResult, bool) {
	for _, stage := range r.Stages {
		if stage.Stage == name {
			return stage, true
		}
	}
	return StageResult{}, false
}

// OK reports whether no stage failed or needs review.
func (r ChapterResult) OK() bool {
	if r.Fatal != nil {
		return false
	}
	for _, stage := range r.Stages {
		if stage.Status == StatusFailed || stage.Status == StatusReview {
			return false
		}
	}
	return true
}

// Summary is the one-line chapter verdict.
func (r ChapterResult) Summary() string {
	verdict := "PASS"
	if !r.OK() {
		verdict = "FAIL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "chapter %02d: %s", r.ChapterID, verdict)
	if r.Fatal != nil {
		fmt.Fprintf(&b, " (%s)", r.Fatal)
		return b.String()
	}
	parts := make([]string, 0, len(r.Stages))
	for _, stage := range r.Stages {
		parts = append(parts, stage.Stage+"="+string(stage.Status))
	}
	b.WriteString(" ")
	b.WriteString(strings.Join(parts, " "))
	if r.Report != nil {
		fmt.Fprintf(&b, " total=%.2fs missing=%d", r.Report.TotalDuration, len(r.Report.MissingAssets))
	}
	if r.Outcome != nil {
		fmt.Fprintf(&b, " reconcile=%s", r.Outcome.Kind)
	}
	return b.String()
}

func (r *ChapterResult) record(stage StageResult) {
	r.Stages = append(r.Stages, stage)
}
