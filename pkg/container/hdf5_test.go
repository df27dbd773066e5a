package container

import (
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octconverter/internal/models"
	"octconverter/pkg/eye"
)

func newObject(t *testing.T, shape ...int) eye.Object {
	t.Helper()
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]uint8, n)
	for i := range data {
		data[i] = uint8(i * 3)
	}
	vol, err := models.NewVolume(data, shape...)
	require.NoError(t, err)

	obj, err := eye.NewKnot().New(vol)
	require.NoError(t, err)
	return obj
}

func TestSaveLoadFileRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
	}{
		{"single channel", []int{3, 8, 6}},
		{"multi channel", []int{2, 4, 5, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scan.hdf5")
			obj := newObject(t, tt.shape...)

			require.NoError(t, SaveFile(path, obj))

			loaded, err := LoadFile(path, eye.NewKnot())
			require.NoError(t, err)
			assert.Equal(t, tt.shape, loaded.Volume().Shape)
			assert.True(t, obj.Volume().Equal(loaded.Volume()))
		})
	}
}

func TestSaveWritesAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.hdf5")
	require.NoError(t, SaveFile(path, newObject(t, 2, 3, 4)))

	f, err := hdf5.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset(DatasetName)
	require.NoError(t, err)

	kind, err := ds.Attr(attrKind).ReadScalarString()
	require.NoError(t, err)
	assert.Equal(t, KindEye, kind)

	shape, err := ds.Attr(attrShape).ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, shape)
	assert.Equal(t, uint64(24), ds.NumElements())
}

func TestLoadMissingDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.hdf5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("unrelated", []float64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = LoadFile(path, eye.NewKnot())
	assert.ErrorIs(t, err, ErrMissingDataset)
}

func TestLoadShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hdf5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset(DatasetName, []uint8{1, 2, 3, 4},
		hdf5.WithAttribute(attrShape, []int64{1, 2, 3}),
		hdf5.WithAttribute(attrKind, KindEye))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = LoadFile(path, eye.NewKnot())
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.hdf5"), eye.NewKnot())
	assert.Error(t, err)
}

func TestSaveNilObject(t *testing.T) {
	assert.Error(t, SaveFile(filepath.Join(t.TempDir(), "nil.hdf5"), nil))
}
