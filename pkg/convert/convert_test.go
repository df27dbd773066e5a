package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octconverter/pkg/binreader"
	"octconverter/pkg/eye"
)

func writeSequentialBin(t *testing.T, dir, name string, n int) string {
	t.Helper()
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func smallParams(path, prototype string) binreader.Params {
	return binreader.Params{
		Path:        path,
		NumSlices:   2,
		Width:       4,
		Height:      3,
		NumChannels: 1,
		Prototype:   prototype,
	}
}

func newConverter(buf *bytes.Buffer) *Converter {
	return New(eye.NewKnot(), slog.New(slog.NewTextHandler(buf, nil)))
}

func TestLoadEyeFromBin(t *testing.T) {
	dir := t.TempDir()
	path := writeSequentialBin(t, dir, "scan.bin", 24)

	obj, err := New(eye.NewKnot(), nil).LoadEyeFromBin(smallParams(path, binreader.PrototypeZeiss))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, obj.Volume().Shape)
}

func TestLoadEyeFromBinPropagatesErrors(t *testing.T) {
	dir := t.TempDir()
	c := New(eye.NewKnot(), nil)

	_, err := c.LoadEyeFromBin(smallParams(filepath.Join(dir, "missing.bin"), "other"))
	assert.ErrorIs(t, err, binreader.ErrFileNotFound)

	short := writeSequentialBin(t, dir, "short.bin", 10)
	err = c.SaveBin2Eye(smallParams(short, "other"), filepath.Join(dir, "out.eye"))
	assert.ErrorIs(t, err, binreader.ErrShapeMismatch)
	assert.NoFileExists(t, filepath.Join(dir, "out.eye"))
}

func TestFullConversionChain(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	c := newConverter(&logs)

	src := writeSequentialBin(t, dir, "scan.bin", 24)
	eyePath := filepath.Join(dir, "scan.eye")
	require.NoError(t, c.SaveBin2Eye(smallParams(src, "other"), eyePath))

	// eye -> bin
	rawPath := c.SaveEye2Bin(eyePath, filepath.Join(dir, "export.bin"))
	assert.Equal(t, filepath.Join(dir, "export_structure.bin"), rawPath)
	raw, err := os.ReadFile(rawPath)
	require.NoError(t, err)
	orig, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, orig, raw)

	// eye -> hdf5 -> eye
	h5Path := filepath.Join(dir, "scan.hdf5")
	require.True(t, c.SaveEye2HDF5(eyePath, h5Path))
	fromH5 := c.LoadEyeFromHDF5(h5Path)
	require.NotNil(t, fromH5)
	assert.Equal(t, []int{2, 4, 3}, fromH5.Volume().Shape)
	assert.Equal(t, orig, fromH5.Volume().Data)

	// eye -> blob -> eye
	blobPath := filepath.Join(dir, "scan.blob")
	require.True(t, c.SaveEye2Blob(eyePath, blobPath))
	fromBlob := c.LoadEyeFromBlob(blobPath)
	require.NotNil(t, fromBlob)
	assert.True(t, fromH5.Volume().Equal(fromBlob.Volume()))

	assert.NotContains(t, logs.String(), "level=ERROR")
}

func TestWrappersSwallowAndLog(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.eye")

	tests := []struct {
		name string
		run  func(c *Converter) bool
	}{
		{"eye2bin", func(c *Converter) bool { return c.SaveEye2Bin(missing, filepath.Join(dir, "x.bin")) != "" }},
		{"eye2hdf5", func(c *Converter) bool { return c.SaveEye2HDF5(missing, filepath.Join(dir, "x.hdf5")) }},
		{"hdf52eye", func(c *Converter) bool { return c.LoadEyeFromHDF5(filepath.Join(dir, "x.hdf5")) != nil }},
		{"eye2blob", func(c *Converter) bool { return c.SaveEye2Blob(missing, filepath.Join(dir, "x.blob")) }},
		{"blob2eye", func(c *Converter) bool { return c.LoadEyeFromBlob(filepath.Join(dir, "x.blob")) != nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			ok := tt.run(newConverter(&logs))
			assert.False(t, ok)
			assert.Contains(t, logs.String(), "level=ERROR")
		})
	}
}

func TestLoadEyeFromBlobRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.blob")
	require.NoError(t, os.WriteFile(path, []byte("not a blob"), 0644))

	var logs bytes.Buffer
	assert.Nil(t, newConverter(&logs).LoadEyeFromBlob(path))
	assert.Contains(t, logs.String(), "invalid eye format")
}

func TestStructurePath(t *testing.T) {
	tests := map[string]string{
		"out.bin":          "out_structure.bin",
		"out":              "out_structure.bin",
		"dir/scan.v2.bin":  "dir/scan.v2_structure.bin",
		"/abs/path/volume": "/abs/path/volume_structure.bin",
	}
	for in, want := range tests {
		assert.Equal(t, want, StructurePath(in), in)
	}
}

func TestConvertBatch(t *testing.T) {
	dir := t.TempDir()
	c := New(eye.NewKnot(), nil)

	var jobs []Job
	for i := 0; i < 6; i++ {
		src := writeSequentialBin(t, dir, fmt.Sprintf("scan%d.bin", i), 24)
		jobs = append(jobs, Job{Params: smallParams(src, binreader.PrototypeZeiss), Dst: src + ".eye"})
	}

	require.NoError(t, c.ConvertBatch(context.Background(), jobs, 3))
	for _, job := range jobs {
		obj, err := c.Backend().Load(job.Dst)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3, 4}, obj.Volume().Shape)
	}
}

func TestConvertBatchFailure(t *testing.T) {
	dir := t.TempDir()
	c := New(eye.NewKnot(), nil)

	good := writeSequentialBin(t, dir, "good.bin", 24)
	short := writeSequentialBin(t, dir, "short.bin", 3)
	jobs := []Job{
		{Params: smallParams(good, "other"), Dst: filepath.Join(dir, "good.eye")},
		{Params: smallParams(short, "other"), Dst: filepath.Join(dir, "short.eye")},
	}

	err := c.ConvertBatch(context.Background(), jobs, 1)
	assert.ErrorIs(t, err, binreader.ErrShapeMismatch)
	assert.Contains(t, err.Error(), "short.bin")
}

func TestConvertBatchCancelled(t *testing.T) {
	dir := t.TempDir()
	src := writeSequentialBin(t, dir, "scan.bin", 24)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(eye.NewKnot(), nil).ConvertBatch(ctx, []Job{{Params: smallParams(src, "other"), Dst: src + ".eye"}}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
