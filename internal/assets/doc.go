// Package assets derives every on-disk location the pipeline reads or writes
// from manifest fields and configuration alone.
//
// The Resolver is pure: it never touches the filesystem. Scene audio lives at
// audio_dir joined with the scene's tts_file, figures live at
// image_dir/chapterN/figure_N_M.<ext>, and chapter-level outputs (rendered
// video, narration track, deliverable, verification log) follow the naming
// patterns in the [assets] config section. References that cannot be mapped
// onto that layout yield a *MalformedReferenceError naming the scene.
package assets
