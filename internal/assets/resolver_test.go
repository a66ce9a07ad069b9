package assets

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"planreel/internal/config"
	"planreel/internal/manifest"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.ImageDir = filepath.Join(base, "images")
	cfg.Paths.VideoDir = filepath.Join(base, "renders")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.ReportDir = filepath.Join(base, "reports")
	cfg.Paths.ManifestDir = filepath.Join(base, "manifests")
	cfg.Paths.ScriptDir = filepath.Join(base, "scenes")
	return NewResolver(&cfg)
}

func TestAudioPathVariants(t *testing.T) {
	r := newTestResolver(t)
	want := filepath.Join(r.AudioRoot, "chapter03_scene01.wav")

	for _, value := range []string{
		"chapter03_scene01.wav",
		"./chapter03_scene01.wav",
		"audio/chapter03_scene01.wav",
		filepath.Join(r.AudioRoot, "chapter03_scene01.wav"),
		" chapter03_scene01.WAV ",
	} {
		got, err := r.AudioPath(3, manifest.Scene{Index: 1, TTSFile: value})
		if err != nil {
			t.Fatalf("AudioPath(%q) returned error: %v", value, err)
		}
		if !strings.EqualFold(got, want) {
			t.Fatalf("AudioPath(%q) = %q, want %q", value, got, want)
		}
	}

	nested, err := r.AudioPath(3, manifest.Scene{Index: 2, TTSFile: "ch03/scene02.wav"})
	if err != nil {
		t.Fatalf("nested path: %v", err)
	}
	if nested != filepath.Join(r.AudioRoot, "ch03", "scene02.wav") {
		t.Fatalf("unexpected nested path %q", nested)
	}
}

func TestAudioPathMalformed(t *testing.T) {
	r := newTestResolver(t)
	cases := map[string]string{
		"empty":           "  ",
		"escape":          "../secrets.wav",
		"outside root":    "/tmp/elsewhere/chapter03_scene01.wav",
		"no extension":    "chapter03_scene01",
		"wrong extension": "chapter03_scene01.mp3",
		"root only":       "audio",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.AudioPath(3, manifest.Scene{Index: 4, TTSFile: value})
			if !errors.Is(err, ErrMalformedAssetReference) {
				t.Fatalf("expected malformed reference, got %v", err)
			}
			var malformed *MalformedReferenceError
			if !errors.As(err, &malformed) || malformed.SceneIndex != 4 {
				t.Fatalf("expected error naming scene 4, got %v", err)
			}
		})
	}
}

func TestStrictNaming(t *testing.T) {
	r := newTestResolver(t)
	r.Strict = true
	if _, err := r.AudioPath(3, manifest.Scene{Index: 1, TTSFile: "chapter03_scene01.wav"}); err != nil {
		t.Fatalf("conventional name rejected: %v", err)
	}
	if _, err := r.AudioPath(3, manifest.Scene{Index: 1, TTSFile: "intro.wav"}); !errors.Is(err, ErrMalformedAssetReference) {
		t.Fatalf("expected strict naming failure, got %v", err)
	}
	if got := r.ExpectedAudioName(3, 12); got != "chapter03_scene12.wav" {
		t.Fatalf("unexpected expected name %q", got)
	}
}

func TestFigureResolution(t *testing.T) {
	r := newTestResolver(t)
	for _, ref := range []string{"3-2", "3.2", "Figure 3-2", "fig. 3.2", "figure_3_2", "FIGURE 3 2"} {
		chapter, number, ok := ParseFigureID(ref)
		if !ok || chapter != 3 || number != 2 {
			t.Fatalf("ParseFigureID(%q) = %d, %d, %v", ref, chapter, number, ok)
		}
	}
	for _, ref := range []string{"", "3", "figure", "a-b", "0-1"} {
		if _, _, ok := ParseFigureID(ref); ok {
			t.Fatalf("expected %q to be rejected", ref)
		}
	}

	scene := manifest.Scene{Index: 2, TTSFile: "chapter03_scene02.wav", ImageRefs: []string{"3-2", "Figure 3.2", "3-10"}}
	figures, err := r.Figures(scene)
	if err != nil {
		t.Fatalf("Figures: %v", err)
	}
	if len(figures) != 2 {
		t.Fatalf("expected duplicate figure collapsed, got %+v", figures)
	}
	if figures[0].Path != filepath.Join(r.ImageRoot, "chapter3", "figure_3_2.png") {
		t.Fatalf("unexpected figure path %q", figures[0].Path)
	}
	if figures[1].Path != filepath.Join(r.ImageRoot, "chapter3", "figure_3_10.png") {
		t.Fatalf("unexpected figure path %q", figures[1].Path)
	}
}

func TestResolveJoinsSceneErrors(t *testing.T) {
	r := newTestResolver(t)
	ch := manifest.Chapter{
		ID: 3,
		Scenes: []manifest.Scene{
			{Index: 1, TTSFile: "chapter03_scene01.wav"},
			{Index: 2, TTSFile: ""},
			{Index: 3, TTSFile: "chapter03_scene03.wav", ImageRefs: []string{"nonsense"}},
		},
	}
	resolved, err := r.Resolve(ch)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(resolved.Scenes) != 1 || resolved.Scenes[0].Index != 1 {
		t.Fatalf("expected only scene 1 resolved, got %+v", resolved.Scenes)
	}
	if !strings.Contains(err.Error(), "scene 2") || !strings.Contains(err.Error(), "scene 3") {
		t.Fatalf("expected both scenes named, got %v", err)
	}
}

func TestChapterLevelPaths(t *testing.T) {
	r := newTestResolver(t)
	if got := r.VideoPath(4); got != filepath.Join(r.VideoRoot, "chapter04.mp4") {
		t.Fatalf("unexpected video path %q", got)
	}
	if got := r.DeliverablePath(4, "Reading Cross Sections & Profiles"); got != filepath.Join(r.OutputRoot, "04-reading-cross-sections-and-profiles.mp4") {
		t.Fatalf("unexpected deliverable path %q", got)
	}
	if got := r.DeliverablePath(4, ""); got != filepath.Join(r.OutputRoot, "04-chapter.mp4") {
		t.Fatalf("unexpected fallback deliverable %q", got)
	}
	if got := r.ReportPath(4); got != filepath.Join(r.ReportRoot, "chapter_04_verify.log") {
		t.Fatalf("unexpected report path %q", got)
	}
	if got := r.ScriptPath(4); got != filepath.Join(r.ScriptRoot, "chapter04.py") {
		t.Fatalf("unexpected script path %q", got)
	}
	if got := r.LockPath(4); got != filepath.Join(r.AudioRoot, ".chapter_04.lock") {
		t.Fatalf("unexpected lock path %q", got)
	}
}
