package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrChapterBusy reports that another run holds the chapter lock.
var ErrChapterBusy = errors.New("chapter is locked by another run")

// chapterLock is an exclusive advisory lock on one chapter's files.
type chapterLock struct {
	path string
	lock *flock.Flock
}

// acquireChapterLock takes the lock without waiting.
func acquireChapterLock(path string) (*chapterLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire chapter lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChapterBusy, path)
	}
	return &chapterLock{path: path, lock: lock}, nil
}

func (l *chapterLock) release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
