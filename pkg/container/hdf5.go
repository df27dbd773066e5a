// Package container stores eye objects in HDF5 files.
//
// The volume is written to the root dataset "volume" as a flat uint8 array.
// Its logical shape is kept in the int64 attribute "shape" and the string
// attribute "kind" marks the dataset as an eye scan.
package container

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"octconverter/internal/models"
	"octconverter/pkg/eye"
)

const (
	// DatasetName is the dataset holding the samples.
	DatasetName = "volume"

	// KindEye is the value of the "kind" attribute.
	KindEye = "eye"

	attrShape = "shape"
	attrKind  = "kind"
)

var (
	// ErrMissingDataset is returned when the file has no eye dataset.
	ErrMissingDataset = errors.New("eye dataset not found")

	// ErrBadShape is returned when the stored shape disagrees with the data.
	ErrBadShape = errors.New("stored shape does not match dataset")
)

// Save writes obj into the open, writable file f.
func Save(f *hdf5.File, obj eye.Object) error {
	if obj == nil || obj.Volume() == nil {
		return errors.New("container: nil eye object")
	}
	vol := obj.Volume()

	shape := make([]int64, len(vol.Shape))
	for i, d := range vol.Shape {
		shape[i] = int64(d)
	}

	_, err := f.Root().CreateDataset(DatasetName, vol.Data,
		hdf5.WithAttribute(attrShape, shape),
		hdf5.WithAttribute(attrKind, KindEye),
	)
	if err != nil {
		return fmt.Errorf("container: create dataset %q: %w", DatasetName, err)
	}
	return nil
}

// Load reads the eye dataset from f and rebuilds the object with backend.
func Load(f *hdf5.File, backend eye.Backend) (eye.Object, error) {
	ds, err := f.OpenDataset(DatasetName)
	if err != nil {
		return nil, fmt.Errorf("container: %w: %w", ErrMissingDataset, err)
	}

	if attr := ds.Attr(attrKind); attr != nil {
		kind, err := attr.ReadScalarString()
		if err != nil {
			return nil, fmt.Errorf("container: read %q attribute: %w", attrKind, err)
		}
		if kind != KindEye {
			return nil, fmt.Errorf("container: %w: kind %q", ErrMissingDataset, kind)
		}
	}

	data, err := ds.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("container: read %q: %w", DatasetName, err)
	}

	attr := ds.Attr(attrShape)
	if attr == nil {
		return nil, fmt.Errorf("container: %w: no %q attribute", ErrBadShape, attrShape)
	}
	stored, err := attr.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("container: read %q attribute: %w", attrShape, err)
	}
	shape := make([]int, len(stored))
	for i, d := range stored {
		shape[i] = int(d)
	}

	vol, err := models.NewVolume(data, shape...)
	if err != nil {
		return nil, fmt.Errorf("container: %w: %w", ErrBadShape, err)
	}
	return backend.New(vol)
}

// SaveFile creates (or truncates) the HDF5 file at path and saves obj into it.
func SaveFile(path string, obj eye.Object) (err error) {
	f, err := hdf5.Create(path)
	if err != nil {
		return fmt.Errorf("container: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("container: close %s: %w", path, cerr)
		}
	}()

	return Save(f, obj)
}

// LoadFile opens the HDF5 file at path and loads the eye object from it.
func LoadFile(path string, backend eye.Backend) (eye.Object, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w", path, err)
	}
	defer f.Close()

	return Load(f, backend)
}
