// Package notifications delivers pipeline run summaries to ntfy.
//
// When no topic is configured NewService returns a no-op, so callers never
// branch on whether notifications are enabled. Delivery failures are returned
// to the caller, which logs them; a failed notification never fails a run.
package notifications
