// Package reconcile compares the narration length of a chapter with its
// rendered video length.
//
// Narration that falls short of the video is padded with trailing silence.
// Narration that runs long is only flagged: narration is never truncated.
package reconcile

import (
	"errors"
	"fmt"
	"math"
)

// DefaultTolerance is the accepted absolute difference in seconds.
const DefaultTolerance = 2.0

// ErrInvalidDuration reports a negative or non-finite duration input.
var ErrInvalidDuration = errors.New("invalid duration")

// Kind is the reconciliation verdict.
type Kind int

const (
	Aligned Kind = iota
	NarrationShort
	NarrationLong
)

func (k Kind) String() string {
	switch k {
	case Aligned:
		return "aligned"
	case NarrationShort:
		return "narration_short"
	case NarrationLong:
		return "narration_long"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome describes how narration and video compare.
type Outcome struct {
	Kind      Kind    `json:"-"`
	KindName  string  `json:"kind"`
	Video     float64 `json:"video_seconds"`
	Narration float64 `json:"narration_seconds"`
	Tolerance float64 `json:"tolerance_seconds"`
	// Difference is narration minus video.
	Difference float64 `json:"difference_seconds"`
	// PadSeconds is the trailing silence to append; non-zero only for NarrationShort.
	PadSeconds float64 `json:"pad_seconds"`
}

// NeedsAttention reports whether an operator must correct the narration.
func (o Outcome) NeedsAttention() bool { return o.Kind == NarrationLong }

// Describe renders a one-line human summary.
func (o Outcome) Describe() string {
	switch o.Kind {
	case NarrationShort:
		return fmt.Sprintf("narration %.2fs is %.2fs shorter than video %.2fs; pad %.2fs of silence",
			o.Narration, -o.Difference, o.Video, o.PadSeconds)
	case NarrationLong:
		return fmt.Sprintf("narration %.2fs is %.2fs longer than video %.2fs; shorten the narration script",
			o.Narration, o.Difference, o.Video)
	default:
		return fmt.Sprintf("narration %.2fs matches video %.2fs within %.2fs", o.Narration, o.Video, o.Tolerance)
	}
}

// Reconcile classifies narration against video. A difference equal to the
// tolerance is Aligned.
func Reconcile(video, narration, tolerance float64) (Outcome, error) {
	for _, check := range []struct {
		name  string
		value float64
	}{
		{"video", video},
		{"narration", narration},
		{"tolerance", tolerance},
	} {
		if math.IsNaN(check.value) || math.IsInf(check.value, 0) || check.value < 0 {
			return Outcome{}, fmt.Errorf("%w: %s=%v", ErrInvalidDuration, check.name, check.value)
		}
	}

	out := Outcome{
		Video:      video,
		Narration:  narration,
		Tolerance:  tolerance,
		Difference: narration - video,
	}
	switch {
	case math.Abs(out.Difference) <= tolerance:
		out.Kind = Aligned
	case out.Difference < 0:
		out.Kind = NarrationShort
		out.PadSeconds = video - narration
	default:
		out.Kind = NarrationLong
	}
	out.KindName = out.Kind.String()
	return out, nil
}
