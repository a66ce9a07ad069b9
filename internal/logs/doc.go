// Package logs reads planreel.log for the CLI logs command.
//
// It returns the last N matching lines with bounded memory, then optionally
// follows the file for new lines until the context ends. Lines can be
// filtered by chapter and minimum level in both the console and JSON formats.
package logs
