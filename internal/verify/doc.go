// Package verify implements the read-only dry run over a chapter's assets.
//
// Runner.Verify walks the scenes of a manifest in index order, resolves each
// scene's narration audio, checks that it exists and measures it from the WAV
// header. Missing files flip the verdict to FAIL; unreadable files are
// reported with a zero duration but still count as present; malformed
// references are reported inline and counted as missing. The runner never
// writes to the manifest or the asset directories and never retries.
//
// Report.Text renders the plain-text log consumed by operators and tooling:
// one marker line per scene, the enumerated missing assets, and a final
// TOTAL line with the summed duration and PASS/FAIL verdict. The text omits
// the check time, so unchanged inputs produce byte-identical logs.
package verify
