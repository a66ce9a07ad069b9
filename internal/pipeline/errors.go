package pipeline

import (
	"errors"
	"io/fs"

	"planreel/internal/manifest"
	"planreel/internal/media/audio"
	"planreel/internal/media/ffprobe"
	"planreel/internal/reconcile"
	"planreel/internal/tts"
	"planreel/internal/verify"
)

// ErrorClassifier lets errors declare their classification.
type ErrorClassifier interface {
	// ErrorKind returns one of "validation", "configuration", "not_found",
	// "decode", "busy" or "external".
	ErrorKind() string
}

// Kind returns the classification for err. Errors implementing
// ErrorClassifier win; known sentinels are mapped next; anything else is
// "external".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrChapterBusy):
		return "busy"
	case errors.Is(err, manifest.ErrMissingManifest),
		errors.Is(err, verify.ErrMissingAudioAsset),
		errors.Is(err, fs.ErrNotExist):
		return "not_found"
	case errors.Is(err, manifest.ErrInvalidManifest),
		errors.Is(err, manifest.ErrSceneRemoval),
		errors.Is(err, reconcile.ErrInvalidDuration),
		errors.Is(err, tts.ErrEmptyText):
		return "validation"
	case errors.Is(err, audio.ErrUndecodableAudio),
		errors.Is(err, audio.ErrFormatMismatch),
		errors.Is(err, ffprobe.ErrNoDuration):
		return "decode"
	}
	return "external"
}

// FailureStatus maps a stage error to the status recorded for the stage.
// Problems an operator must fix by hand map to StatusReview; everything else
// is StatusFailed and may succeed on a later run.
func FailureStatus(err error) Status {
	switch Kind(err) {
	case "validation", "configuration", "not_found", "decode":
		return StatusReview
	}
	return StatusFailed
}
