// Package pipeline runs the per-chapter production stages in order:
// load, sanitize, synthesize, verify, reconcile and mux.
//
// Each stage returns a StageResult. A chapter-fatal failure (the manifest is
// missing or unparsable, or another run holds the chapter lock) ends that
// chapter only; scene-local failures are recorded inline and later stages
// still run where their inputs allow it. Every chapter yields a
// ChapterResult whose Summary is the single pass/fail line operators read.
//
// Failures are classified through the ErrorKind interface so callers can
// tell "fix the manifest" problems from "retry later" problems.
package pipeline
