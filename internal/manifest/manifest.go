package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Chapter is one chapter manifest. Scenes are kept in ascending index order.
type Chapter struct {
	ID            int               `json:"chapter_id"`
	Title         string            `json:"title"`
	Pages         string            `json:"pages,omitempty"`
	ContentSource string            `json:"content_source,omitempty"`
	Scenes        []Scene           `json:"scenes"`
	Figures       map[string]string `json:"figures,omitempty"`
}

// Scene is one segment of a chapter video.
type Scene struct {
	Index         int      `json:"index"`
	Title         string   `json:"title"`
	NarrationText string   `json:"narration_text"`
	TTSFile       string   `json:"tts_file"`
	Duration      *float64 `json:"duration,omitempty"`
	ImageRefs     []string `json:"image_refs,omitempty"`
}

// UnmarshalJSON accepts both "tts_file" and the older "tts_file_path" key.
func (s *Scene) UnmarshalJSON(data []byte) error {
	type plain Scene
	var raw struct {
		plain
		TTSFilePath string `json:"tts_file_path"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Scene(raw.plain)
	if strings.TrimSpace(s.TTSFile) == "" {
		s.TTSFile = raw.TTSFilePath
	}
	return nil
}

// TargetSeconds returns the authoring hint for the scene length, if any.
func (s Scene) TargetSeconds() (float64, bool) {
	if s.Duration == nil || *s.Duration <= 0 {
		return 0, false
	}
	return *s.Duration, true
}

// Parse decodes manifest JSON, sorts scenes by index, collapses duplicate
// image references and validates the result.
func Parse(data []byte) (Chapter, error) {
	ch, err := decode(data)
	if err != nil {
		return Chapter{}, err
	}
	if err := ch.Validate(); err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

func decode(data []byte) (Chapter, error) {
	var ch Chapter
	if err := json.Unmarshal(data, &ch); err != nil {
		return Chapter{}, err
	}
	ch.normalize()
	return ch, nil
}

// Encode serialises the chapter as indented JSON with a trailing newline.
func (c Chapter) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Validate checks the structural invariants of a chapter.
func (c Chapter) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("%w: chapter_id must be positive", ErrInvalidManifest)
	}
	if len(c.Scenes) == 0 {
		return fmt.Errorf("%w: chapter %d has no scenes", ErrInvalidManifest, c.ID)
	}
	seen := make(map[int]struct{}, len(c.Scenes))
	for _, scene := range c.Scenes {
		if scene.Index <= 0 {
			return fmt.Errorf("%w: scene index %d must be positive", ErrInvalidManifest, scene.Index)
		}
		if _, dup := seen[scene.Index]; dup {
			return fmt.Errorf("%w: duplicate scene index %d", ErrInvalidManifest, scene.Index)
		}
		seen[scene.Index] = struct{}{}
	}
	return nil
}

// Scene returns the scene with the given index.
func (c *Chapter) Scene(index int) *Scene {
	if c == nil {
		return nil
	}
	for i := range c.Scenes {
		if c.Scenes[i].Index == index {
			return &c.Scenes[i]
		}
	}
	return nil
}

// TargetSeconds sums the duration hints of every scene that declares one.
func (c Chapter) TargetSeconds() float64 {
	total := 0.0
	for _, scene := range c.Scenes {
		if secs, ok := scene.TargetSeconds(); ok {
			total += secs
		}
	}
	return total
}

func (c *Chapter) normalize() {
	sort.SliceStable(c.Scenes, func(i, j int) bool {
		return c.Scenes[i].Index < c.Scenes[j].Index
	})
	for i := range c.Scenes {
		c.Scenes[i].TTSFile = strings.TrimSpace(c.Scenes[i].TTSFile)
		c.Scenes[i].ImageRefs = uniqueRefs(c.Scenes[i].ImageRefs)
	}
}

func uniqueRefs(refs []string) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
