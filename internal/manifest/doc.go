// Package manifest defines the per-chapter scene manifest and its on-disk store.
//
// A Chapter lists the ordered scenes of one video: narration text, the
// relative path of the synthesized narration audio, an optional target
// duration, and the figures a scene shows. Manifests live as JSON documents
// named chapter_NN.json under paths.manifest_dir.
//
// # Entry Points
//
// Parse: decode and validate manifest JSON, normalising scene order.
// Store.Load / Store.LoadFile: read a chapter, attributing failures to the file.
// Store.Save: write a chapter back; scenes may be added or updated, never removed.
// Store.List: enumerate manifest files in natural chapter order.
package manifest
