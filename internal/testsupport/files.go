package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"planreel/internal/manifest"
)

// WAVSampleRate is the sample rate WriteWAV uses.
const WAVSampleRate = 8000

// WriteWAV writes a mono 16-bit PCM file of the requested length filled with
// a low-amplitude ramp.
func WriteWAV(t testing.TB, path string, seconds float64) {
	t.Helper()
	WriteWAVFormat(t, path, seconds, WAVSampleRate, 1)
}

// WriteWAVFormat writes a 16-bit PCM file with the given rate and channel count.
func WriteWAVFormat(t testing.TB, path string, seconds float64, sampleRate, channels int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	frames := int(seconds * float64(sampleRate))
	data := make([]int, frames*channels)
	for i := range data {
		data[i] = (i % 64) - 32
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("finalize %s: %v", path, err)
	}
}

// WriteFile writes raw bytes, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteManifest encodes ch as chapter_NN.json under dir and returns its path.
func WriteManifest(t testing.TB, dir string, ch manifest.Chapter) string {
	t.Helper()

	data, err := json.MarshalIndent(ch, "", "  ")
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	path := filepath.Join(dir, manifest.FileName(ch.ID))
	WriteFile(t, path, data)
	return path
}

// Chapter builds a manifest with n scenes following the default audio naming
// convention.
func Chapter(id, n int) manifest.Chapter {
	ch := manifest.Chapter{ID: id, Title: "Chapter Under Test", Pages: "1-2"}
	for i := 1; i <= n; i++ {
		ch.Scenes = append(ch.Scenes, manifest.Scene{
			Index:         i,
			Title:         "Scene",
			NarrationText: "Narration for this scene.",
			TTSFile:       sceneAudioName(id, i),
		})
	}
	return ch
}

func sceneAudioName(chapter, scene int) string {
	return fmt.Sprintf("chapter%02d_scene%02d.wav", chapter, scene)
}
