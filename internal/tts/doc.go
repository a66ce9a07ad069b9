// Package tts wraps the text-to-speech backend used to voice scene narration.
//
// Client speaks the OpenAI-compatible /audio/speech endpoint through
// go-resty, retrying rate limits and server errors with backoff. Narration
// longer than the per-request character limit is split at sentence
// boundaries, synthesized chunk by chunk, and joined into one WAV. Output
// files are written beside their destination and renamed into place, so the
// verification dry run never observes a half-written file.
//
// Key types:
//   - Synthesizer: the interface pipeline stages depend on
//   - Client: the HTTP implementation
//   - Voice: per-request voice, model and speed
package tts
