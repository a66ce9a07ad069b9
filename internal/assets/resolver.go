package assets

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gosimple/slug"

	"planreel/internal/config"
	"planreel/internal/manifest"
)

var figurePattern = regexp.MustCompile(`(?i)^(?:fig(?:ure)?[\s._-]*)?(\d+)[\s._-]+(\d+)$`)

// Resolver maps manifest fields onto absolute asset paths.
type Resolver struct {
	AudioRoot       string
	ImageRoot       string
	VideoRoot       string
	OutputRoot      string
	ScriptRoot      string
	ReportRoot      string
	ManifestRoot    string
	AudioPattern    string
	AudioExtensions []string
	ImageExtension  string
	VideoPattern    string
	ScriptPattern   string
	Strict          bool
}

// NewResolver builds a resolver from configuration.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		AudioRoot:       cfg.Paths.AudioDir,
		ImageRoot:       cfg.Paths.ImageDir,
		VideoRoot:       cfg.Paths.VideoDir,
		OutputRoot:      cfg.Paths.OutputDir,
		ScriptRoot:      cfg.Paths.ScriptDir,
		ReportRoot:      cfg.Paths.ReportDir,
		ManifestRoot:    cfg.Paths.ManifestDir,
		AudioPattern:    cfg.Assets.AudioNamePattern,
		AudioExtensions: append([]string(nil), cfg.Assets.AudioExtensions...),
		ImageExtension:  cfg.Assets.ImageExtension,
		VideoPattern:    cfg.Assets.VideoNamePattern,
		ScriptPattern:   cfg.Render.ScriptPattern,
		Strict:          cfg.Assets.StrictNaming,
	}
}

// Figure is a resolved image reference.
type Figure struct {
	Ref     string `json:"ref"`
	Chapter int    `json:"chapter"`
	Number  int    `json:"number"`
	Path    string `json:"path"`
}

// SceneAssets holds the resolved locations for one scene.
type SceneAssets struct {
	Index   int      `json:"index"`
	Audio   string   `json:"audio"`
	Figures []Figure `json:"figures,omitempty"`
}

// Resolved holds the resolved locations for every well-formed scene of a chapter.
type Resolved struct {
	ChapterID int           `json:"chapter_id"`
	Scenes    []SceneAssets `json:"scenes"`
}

// Resolve resolves every scene. Scenes with malformed references are left
// out of the result and their errors are joined into the returned error.
func (r *Resolver) Resolve(ch manifest.Chapter) (Resolved, error) {
	out := Resolved{ChapterID: ch.ID, Scenes: make([]SceneAssets, 0, len(ch.Scenes))}
	var errs []error
	for _, scene := range ch.Scenes {
		resolved, err := r.ResolveScene(ch.ID, scene)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Scenes = append(out.Scenes, resolved)
	}
	return out, errors.Join(errs...)
}

// ResolveScene resolves one scene's audio path and figure paths.
func (r *Resolver) ResolveScene(chapterID int, scene manifest.Scene) (SceneAssets, error) {
	audio, err := r.AudioPath(chapterID, scene)
	if err != nil {
		return SceneAssets{}, err
	}
	figures, err := r.Figures(scene)
	if err != nil {
		return SceneAssets{}, err
	}
	return SceneAssets{Index: scene.Index, Audio: audio, Figures: figures}, nil
}

// AudioPath returns the absolute narration audio path for a scene.
func (r *Resolver) AudioPath(chapterID int, scene manifest.Scene) (string, error) {
	malformed := func(reason string) error {
		return &MalformedReferenceError{SceneIndex: scene.Index, Value: scene.TTSFile, Reason: reason}
	}

	value := strings.TrimSpace(strings.ReplaceAll(scene.TTSFile, `\`, "/"))
	if value == "" {
		return "", malformed("empty audio path")
	}
	root := filepath.Clean(r.AudioRoot)

	var rel string
	if filepath.IsAbs(value) {
		candidate, err := filepath.Rel(root, filepath.Clean(value))
		if err != nil || candidate == ".." || strings.HasPrefix(candidate, "../") {
			return "", malformed("absolute path outside audio root")
		}
		rel = candidate
	} else {
		rel = stripRootPrefix(filepath.Clean(value), filepath.Base(root))
	}

	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", malformed("path escapes audio root")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(rel), "."))
	if !r.allowedAudioExtension(ext) {
		return "", malformed(fmt.Sprintf("unsupported audio extension %q", ext))
	}
	if r.Strict {
		stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		if want := r.audioStem(chapterID, scene.Index); stem != want {
			return "", malformed(fmt.Sprintf("expected file name %s", want))
		}
	}
	return filepath.Join(root, rel), nil
}

// Figures resolves the scene's image references, collapsing ids that name
// the same figure ("3-2" and "Figure 3.2").
func (r *Resolver) Figures(scene manifest.Scene) ([]Figure, error) {
	if len(scene.ImageRefs) == 0 {
		return nil, nil
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	figures := make([]Figure, 0, len(scene.ImageRefs))
	for _, ref := range scene.ImageRefs {
		chapter, number, ok := ParseFigureID(ref)
		if !ok {
			return nil, &MalformedReferenceError{SceneIndex: scene.Index, Value: ref, Reason: "unrecognised figure id"}
		}
		path := r.FigurePath(chapter, number)
		if !seen.Add(path) {
			continue
		}
		figures = append(figures, Figure{Ref: ref, Chapter: chapter, Number: number, Path: path})
	}
	return figures, nil
}

// FigurePath returns image_dir/chapterN/figure_N_M.<ext>.
func (r *Resolver) FigurePath(chapter, number int) string {
	name := fmt.Sprintf("figure_%d_%d.%s", chapter, number, r.imageExtension())
	return filepath.Join(r.ImageRoot, fmt.Sprintf("chapter%d", chapter), name)
}

// ParseFigureID accepts "3-2", "3.2", "Figure 3-2", "fig. 3.2" and "figure_3_2".
func ParseFigureID(ref string) (chapter, number int, ok bool) {
	match := figurePattern.FindStringSubmatch(strings.TrimSpace(ref))
	if match == nil {
		return 0, 0, false
	}
	chapter, err := strconv.Atoi(match[1])
	if err != nil || chapter <= 0 {
		return 0, 0, false
	}
	number, err = strconv.Atoi(match[2])
	if err != nil || number <= 0 {
		return 0, 0, false
	}
	return chapter, number, true
}

// ExpectedAudioName returns the conventional audio file name for a scene,
// using the first configured audio extension.
func (r *Resolver) ExpectedAudioName(chapterID, sceneIndex int) string {
	ext := "wav"
	if len(r.AudioExtensions) > 0 {
		ext = r.AudioExtensions[0]
	}
	return r.audioStem(chapterID, sceneIndex) + "." + ext
}

// VideoPath returns the rendered chapter video location.
func (r *Resolver) VideoPath(chapterID int) string {
	return filepath.Join(r.VideoRoot, fmt.Sprintf(r.VideoPattern, chapterID))
}

// ScriptPath returns the renderer scene script for a chapter.
func (r *Resolver) ScriptPath(chapterID int) string {
	return filepath.Join(r.ScriptRoot, fmt.Sprintf(r.ScriptPattern, chapterID))
}

// NarrationTrackPath returns the concatenated chapter narration track.
func (r *Resolver) NarrationTrackPath(chapterID int) string {
	return filepath.Join(r.AudioRoot, fmt.Sprintf("chapter%02d_narration.wav", chapterID))
}

// DeliverablePath returns output_dir/NN-<slug>.mp4 for a chapter.
func (r *Resolver) DeliverablePath(chapterID int, title string) string {
	name := slug.Make(title)
	if name == "" {
		name = "chapter"
	}
	return filepath.Join(r.OutputRoot, fmt.Sprintf("%02d-%s.mp4", chapterID, name))
}

// ReportPath returns the plain-text verification log for a chapter.
func (r *Resolver) ReportPath(chapterID int) string {
	return filepath.Join(r.ReportRoot, fmt.Sprintf("chapter_%02d_verify.log", chapterID))
}

// SanitizeMapPath returns the audit file written next to the manifest.
func (r *Resolver) SanitizeMapPath(chapterID int) string {
	return filepath.Join(r.ManifestRoot, fmt.Sprintf("chapter_%02d.sanitize.json", chapterID))
}

// LockPath returns the chapter lock file.
func (r *Resolver) LockPath(chapterID int) string {
	return filepath.Join(r.AudioRoot, fmt.Sprintf(".chapter_%02d.lock", chapterID))
}

func (r *Resolver) audioStem(chapterID, sceneIndex int) string {
	return fmt.Sprintf(r.AudioPattern, chapterID, sceneIndex)
}

func (r *Resolver) allowedAudioExtension(ext string) bool {
	if ext == "" {
		return false
	}
	if len(r.AudioExtensions) == 0 {
		return ext == "wav"
	}
	for _, allowed := range r.AudioExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (r *Resolver) imageExtension() string {
	if r.ImageExtension == "" {
		return "png"
	}
	return r.ImageExtension
}

// stripRootPrefix removes a leading path element equal to the audio root's
// base name, so "audio/chapter03_scene01.wav" stored against an audio root
// ending in "audio" resolves inside that root rather than below it.
func stripRootPrefix(rel, rootBase string) string {
	rel = strings.TrimPrefix(rel, "./")
	if rootBase == "" || rootBase == "." || rootBase == "/" {
		return rel
	}
	if rel == rootBase {
		return "."
	}
	if strings.HasPrefix(rel, rootBase+"/") {
		return strings.TrimPrefix(rel, rootBase+"/")
	}
	return rel
}
