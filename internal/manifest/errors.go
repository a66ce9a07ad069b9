package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingManifest reports a chapter whose manifest file does not exist.
	ErrMissingManifest = errors.New("manifest not found")
	// ErrInvalidManifest reports a manifest that decodes but breaks an invariant.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrSceneRemoval reports a save that would drop an existing scene.
	ErrSceneRemoval = errors.New("manifest scenes cannot be removed")
)

// ParseError attributes a decode or validation failure to a manifest file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure for pipeline status mapping.
func (e *ParseError) ErrorKind() string { return "validation" }
