// Package sanitize rewrites narration text so speech synthesis never reads out
// plan codes.
//
// Three passes run in a fixed order over the progressively rewritten text:
// station notation ("170+00"), mixed alphanumeric identifiers ("B12", "4A7")
// and long digit runs. Each match is replaced by a short spoken phrase and the
// substitution is recorded in a Map for auditing. None of the phrases can
// match any pass, so sanitizing already-sanitized text changes nothing.
package sanitize
