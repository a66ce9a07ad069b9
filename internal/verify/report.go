package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Status is the per-scene marker written to the verification log.
type Status string

const (
	StatusOK         Status = "OK"
	StatusMissing    Status = "MISSING"
	StatusUnreadable Status = "UNREADABLE"
	StatusMalformed  Status = "MALFORMED"
)

// SceneResult is the outcome for one scene.
type SceneResult struct {
	Index            int     `json:"index"`
	Title            string  `json:"title"`
	AudioFile        string  `json:"audio_file"`
	AudioPath        string  `json:"audio_path,omitempty"`
	Exists           bool    `json:"exists"`
	MeasuredDuration float64 `json:"measured_duration"`
	Status           Status  `json:"status"`
	Detail           string  `json:"detail,omitempty"`
}

// MissingFigure records a figure image absent from image_dir, or a figure id
// that could not be resolved (Reason set, Path empty).
type MissingFigure struct {
	SceneIndex int    `json:"scene_index"`
	Ref        string `json:"ref"`
	Path       string `json:"path,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Report is the verification result for one chapter. It is built fresh on
// every run and never modified afterwards.
type Report struct {
	ChapterID      int             `json:"chapter_id"`
	Title          string          `json:"title"`
	ManifestPath   string          `json:"manifest_path,omitempty"`
	Scenes         []SceneResult   `json:"scenes"`
	TotalDuration  float64         `json:"total_duration"`
	MissingAssets  []string        `json:"missing_assets"`
	MissingFigures []MissingFigure `json:"missing_figures,omitempty"`
	AllOK          bool            `json:"all_ok"`
	CheckedAt      time.Time       `json:"checked_at"`
}

// Verdict returns PASS or FAIL.
func (r Report) Verdict() string {
	if r.AllOK {
		return "PASS"
	}
	return "FAIL"
}

// CountStatus returns how many scenes carry status.
func (r Report) CountStatus(status Status) int {
	return lo.CountBy(r.Scenes, func(s SceneResult) bool { return s.Status == status })
}

// Summary is the single pass/fail line printed per chapter.
func (r Report) Summary() string {
	return fmt.Sprintf("chapter %02d: %s total=%.2fs scenes=%d missing=%d",
		r.ChapterID, r.Verdict(), r.TotalDuration, len(r.Scenes), len(r.MissingAssets))
}

// Text renders the verification log.
func (r Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verification report: chapter %02d", r.ChapterID)
	if title := strings.TrimSpace(r.Title); title != "" {
		fmt.Fprintf(&b, " (%s)", title)
	}
	b.WriteByte('\n')

	for _, scene := range r.Scenes {
		fmt.Fprintf(&b, "%-12s scene %02d  %s  %.2fs", "["+string(scene.Status)+"]", scene.Index, scene.AudioFile, scene.MeasuredDuration)
		if scene.Detail != "" {
			fmt.Fprintf(&b, "  (%s)", scene.Detail)
		}
		b.WriteByte('\n')
	}

	if len(r.MissingAssets) > 0 {
		b.WriteString("Missing assets:\n")
		for i, missing := range r.MissingAssets {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, missing)
		}
	}
	if len(r.MissingFigures) > 0 {
		b.WriteString("Missing figures:\n")
		for _, fig := range r.MissingFigures {
			if fig.Reason != "" {
				fmt.Fprintf(&b, "  - scene %02d %s -> MALFORMED (%s)\n", fig.SceneIndex, fig.Ref, fig.Reason)
				continue
			}
			fmt.Fprintf(&b, "  - scene %02d %s -> %s\n", fig.SceneIndex, fig.Ref, fig.Path)
		}
	}

	fmt.Fprintf(&b, "TOTAL duration=%.2fs scenes=%d missing=%d result=%s\n",
		r.TotalDuration, len(r.Scenes), len(r.MissingAssets), r.Verdict())
	return b.String()
}
