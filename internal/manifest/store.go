package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/maruel/natural"

	"planreel/internal/fileutil"
)

var fileNamePattern = regexp.MustCompile(`^chapter_(\d+)\.json$`)

// Store reads and writes chapter manifests under a single root directory.
type Store struct {
	root string
}

// NewStore returns a store rooted at dir (normally paths.manifest_dir).
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the manifest directory.
func (s *Store) Root() string { return s.root }

// Path returns the manifest location for a chapter.
func (s *Store) Path(chapterID int) string {
	return filepath.Join(s.root, FileName(chapterID))
}

// FileName formats the manifest file name for a chapter.
func FileName(chapterID int) string {
	return fmt.Sprintf("chapter_%02d.json", chapterID)
}

// ChapterIDFromPath extracts the chapter number from a chapter_NN.json name.
func ChapterIDFromPath(path string) (int, bool) {
	match := fileNamePattern.FindStringSubmatch(filepath.Base(path))
	if match == nil {
		return 0, false
	}
	id, err := strconv.Atoi(match[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Load reads the manifest for chapterID.
func (s *Store) Load(chapterID int) (Chapter, error) {
	return s.LoadFile(s.Path(chapterID))
}

// LoadFile reads the manifest at path. An absent file yields an error
// wrapping ErrMissingManifest; decode and validation failures are returned as
// *ParseError naming the path.
func (s *Store) LoadFile(path string) (Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Chapter{}, fmt.Errorf("%w: %s", ErrMissingManifest, path)
		}
		return Chapter{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	ch, err := decode(data)
	if err != nil {
		return Chapter{}, &ParseError{Path: path, Err: err}
	}
	if ch.ID == 0 {
		if id, ok := ChapterIDFromPath(path); ok {
			ch.ID = id
		}
	}
	if err := ch.Validate(); err != nil {
		return Chapter{}, &ParseError{Path: path, Err: err}
	}
	return ch, nil
}

// Save writes the chapter manifest atomically. When a manifest already
// exists, every scene index it declares must still be present.
func (s *Store) Save(ch Chapter) error {
	ch.normalize()
	if err := ch.Validate(); err != nil {
		return err
	}
	path := s.Path(ch.ID)
	existing, err := s.LoadFile(path)
	switch {
	case err == nil:
		for _, scene := range existing.Scenes {
			if ch.Scene(scene.Index) == nil {
				return fmt.Errorf("%w: chapter %d scene %d", ErrSceneRemoval, ch.ID, scene.Index)
			}
		}
	case errors.Is(err, ErrMissingManifest):
	default:
		return err
	}
	data, err := ch.Encode()
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// List returns every chapter_NN.json under the root in natural order, so
// chapter_2 sorts before chapter_10.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list manifests: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !fileNamePattern.MatchString(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(s.root, entry.Name()))
	}
	sort.Sort(natural.StringSlice(paths))
	return paths, nil
}

// ChapterIDs returns the chapter numbers of every manifest under the root.
func (s *Store) ChapterIDs() ([]int, error) {
	paths, err := s.List()
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(paths))
	for _, path := range paths {
		if id, ok := ChapterIDFromPath(path); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
