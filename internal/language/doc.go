// Package language normalizes narration language settings into the ISO 639-2
// codes ffmpeg writes as stream metadata.
package language
