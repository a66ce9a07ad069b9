package logging

import "strings"

// FormatSubject builds the "Chapter 03 · scene 2 (verify)" prefix used in
// console output. Empty parts are skipped.
func FormatSubject(chapter, scene, stage string) string {
	chapter = strings.TrimSpace(chapter)
	scene = strings.TrimSpace(scene)
	stage = strings.TrimSpace(stage)

	parts := make([]string, 0, 2)
	if chapter != "" {
		parts = append(parts, "Chapter "+chapter)
	}
	if scene != "" {
		parts = append(parts, "scene "+scene)
	}
	subject := strings.Join(parts, " · ")
	switch {
	case subject != "" && stage != "":
		return subject + " (" + stage + ")"
	case stage != "":
		return stage
	default:
		return subject
	}
}
