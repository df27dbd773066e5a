// Package eye defines the capability an OCT domain object must offer to the
// converters (construct from a volume, save, load) and ships the Knot backend,
// a self-contained on-disk format for such objects.
package eye

import (
	"errors"

	"octconverter/internal/models"
)

var (
	// ErrInvalidFormat is returned when a file or blob is not an EYE volume.
	ErrInvalidFormat = errors.New("invalid eye format")

	// ErrUnsupportedVersion is returned for EYE files newer than this reader.
	ErrUnsupportedVersion = errors.New("unsupported eye format version")
)

// Object is an in-memory eye scan.
type Object interface {
	// Volume returns the scan samples. The result is owned by the object.
	Volume() *models.Volume

	// Save persists the object to path.
	Save(path string) error
}

// Backend constructs and restores Objects. Host applications swap in their own
// implementation; Knot is the built-in one.
type Backend interface {
	// New wraps a volume in an Object
	New(vol *models.Volume) (Object, error)

	// Load restores an Object previously written with Object.Save
	Load(path string) (Object, error)
}
