// Package audio reads and writes uncompressed WAV narration files.
//
// Probe measures a file from its header alone: duration is the frame count
// divided by the sample rate. Concat joins same-format files (TTS chunks into
// one scene file, scene files into a chapter narration track) and PadSilence
// appends trailing silence when narration runs short of the rendered video.
//
// Key types:
//   - Info: channels, sample rate, bit depth, frame count and duration
//   - DecodeError: a file that exists but whose header cannot be read
package audio
