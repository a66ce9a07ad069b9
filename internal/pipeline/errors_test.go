package pipeline

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"planreel/internal/assets"
	"planreel/internal/manifest"
	"planreel/internal/media/audio"
	"planreel/internal/reconcile"
	"planreel/internal/tts"
	"planreel/internal/verify"
)

func TestKindAndFailureStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   string
		status Status
	}{
		{"missing manifest", fmt.Errorf("%w: /m/chapter_01.json", manifest.ErrMissingManifest), "not_found", StatusReview},
		{"parse error", &manifest.ParseError{Path: "x", Err: errors.New("bad json")}, "validation", StatusReview},
		{"malformed reference", &assets.MalformedReferenceError{SceneIndex: 2, Value: "../x.wav"}, "validation", StatusReview},
		{"undecodable", &audio.DecodeError{Path: "a.wav", Err: errors.New("eof")}, "decode", StatusReview},
		{"missing audio", fmt.Errorf("%w: a.wav", verify.ErrMissingAudioAsset), "not_found", StatusReview},
		{"invalid duration", fmt.Errorf("%w: video=-1", reconcile.ErrInvalidDuration), "validation", StatusReview},
		{"auth", &tts.StatusError{StatusCode: 403}, "configuration", StatusReview},
		{"server", &tts.StatusError{StatusCode: 503}, "external", StatusFailed},
		{"busy", fmt.Errorf("%w: lock", ErrChapterBusy), "busy", StatusFailed},
		{"not exist", fmt.Errorf("open: %w", os.ErrNotExist), "not_found", StatusReview},
		{"plain", errors.New("boom"), "external", StatusFailed},
		{"joined", errors.Join(errors.New("boom"), &tts.StatusError{StatusCode: 401}), "configuration", StatusReview},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Kind(tc.err); got != tc.kind {
				t.Fatalf("Kind = %q, want %q", got, tc.kind)
			}
			if got := FailureStatus(tc.err); got != tc.status {
				t.Fatalf("FailureStatus = %q, want %q", got, tc.status)
			}
		})
	}
	if Kind(nil) != "" {
		t.Fatal("expected empty kind for nil error")
	}
}

func TestChapterResultSummary(t *testing.T) {
	result := ChapterResult{ChapterID: 3, Stages: []StageResult{
		{Stage: StageLoad, Status: StatusOK},
		{Stage: StageVerify, Status: StatusReview},
	}}
	if result.OK() {
		t.Fatal("expected review stage to fail the chapter")
	}
	if got := result.Summary(); got != "chapter 03: FAIL load=ok verify=review" {
		t.Fatalf("unexpected summary %q", got)
	}
	result.Stages[1].Status = StatusSkipped
	if !result.OK() {
		t.Fatal("expected skipped stages to pass")
	}
}
