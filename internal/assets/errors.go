package assets

import (
	"errors"
	"fmt"
)

// ErrMalformedAssetReference is matched by every *MalformedReferenceError.
var ErrMalformedAssetReference = errors.New("malformed asset reference")

// MalformedReferenceError reports a scene path or figure id that does not fit
// the expected naming layout.
type MalformedReferenceError struct {
	SceneIndex int
	Value      string
	Reason     string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("scene %d: malformed asset reference %q: %s", e.SceneIndex, e.Value, e.Reason)
}

func (e *MalformedReferenceError) Is(target error) bool {
	return target == ErrMalformedAssetReference
}

// ErrorKind classifies the failure for pipeline status mapping.
func (e *MalformedReferenceError) ErrorKind() string { return "validation" }
