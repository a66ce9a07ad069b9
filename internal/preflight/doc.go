// Package preflight provides readiness checks for the directories, binaries
// and TTS credentials planreel depends on.
//
// The CLI status command renders every check. The run command calls RunAll
// first and refuses to start when a required directory is unusable, so a
// batch does not fail halfway through on a permissions problem.
package preflight
