// Package ffprobe wraps ffprobe JSON output for rendered chapter videos.
//
// Inspect runs ffprobe and decodes streams and container metadata.
// VideoDuration is the reconcile entry point: it insists on a video stream
// and a finite container duration so narration is never matched against a
// guessed length.
package ffprobe
