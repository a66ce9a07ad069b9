// Package logging assembles structured slog loggers and formatting helpers used
// across planreel commands and pipeline stages.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so stage code can tag log lines with
// the chapter, stage, and run id being processed. Warnings go through
// WarnWithContext so every WARN record names its cause, impact, and next step.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
