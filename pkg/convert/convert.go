// Package convert composes the BIN reader, the eye backend and the HDF5
// container into file-to-file conversions.
//
// Conversions starting from a BIN file return their errors. Conversions
// starting from an existing EYE, HDF5 or blob file log failures and return a
// zero result instead, so callers must treat an empty path, false or nil as
// failure.
package convert

import (
	"context"
	"encoding"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"octconverter/internal/logging"
	"octconverter/pkg/binreader"
	"octconverter/pkg/container"
	"octconverter/pkg/eye"
)

// StructureSuffix is appended to the stem of the target of SaveEye2Bin.
const StructureSuffix = "_structure.bin"

// Converter runs conversions with one eye backend.
type Converter struct {
	backend eye.Backend
	logger  *slog.Logger
}

// New creates a converter. A nil logger discards output.
func New(backend eye.Backend, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Converter{backend: backend, logger: logger}
}

// Backend returns the eye backend in use.
func (c *Converter) Backend() eye.Backend {
	return c.backend
}

// LoadEyeFromBin reads a BIN file and wraps the volume in an eye object.
func (c *Converter) LoadEyeFromBin(params binreader.Params) (eye.Object, error) {
	if params.Logger == nil {
		params.Logger = c.logger
	}
	r, err := binreader.NewReader(params)
	if err != nil {
		return nil, err
	}
	vol, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return c.backend.New(vol)
}

// SaveBin2Eye converts the BIN file described by params into an EYE file at dst.
func (c *Converter) SaveBin2Eye(params binreader.Params, dst string) error {
	obj, err := c.LoadEyeFromBin(params)
	if err != nil {
		return err
	}
	if err := obj.Save(dst); err != nil {
		return err
	}
	c.logger.Info("saved eye volume", "src", params.Path, "dst", dst)
	return nil
}

// StructurePath returns the file SaveEye2Bin writes for binPath: the path
// without its extension followed by StructureSuffix.
func StructurePath(binPath string) string {
	return strings.TrimSuffix(binPath, filepath.Ext(binPath)) + StructureSuffix
}

// SaveEye2Bin writes the raw samples of an EYE file to StructurePath(binPath)
// and returns that path, or "" on failure.
func (c *Converter) SaveEye2Bin(eyePath, binPath string) string {
	obj, err := c.backend.Load(eyePath)
	if err != nil {
		c.logger.Error("eye to bin conversion failed", "src", eyePath, "error", err)
		return ""
	}

	dataPath := StructurePath(binPath)
	if err := os.WriteFile(dataPath, obj.Volume().Data, 0644); err != nil {
		c.logger.Error("eye to bin conversion failed", "src", eyePath, "dst", dataPath, "error", err)
		return ""
	}

	c.logger.Info("saved raw structure", "src", eyePath, "dst", dataPath)
	return dataPath
}

// SaveEye2HDF5 stores an EYE file in an HDF5 container. It reports success.
func (c *Converter) SaveEye2HDF5(eyePath, hdf5Path string) bool {
	obj, err := c.backend.Load(eyePath)
	if err != nil {
		c.logger.Error("eye to hdf5 conversion failed", "src", eyePath, "error", err)
		return false
	}
	if err := container.SaveFile(hdf5Path, obj); err != nil {
		c.logger.Error("eye to hdf5 conversion failed", "src", eyePath, "dst", hdf5Path, "error", err)
		return false
	}
	c.logger.Info("saved hdf5 container", "src", eyePath, "dst", hdf5Path)
	return true
}

// LoadEyeFromHDF5 restores an eye object from an HDF5 container, or nil.
func (c *Converter) LoadEyeFromHDF5(hdf5Path string) eye.Object {
	obj, err := container.LoadFile(hdf5Path, c.backend)
	if err != nil {
		c.logger.Error("loading eye from hdf5 failed", "src", hdf5Path, "error", err)
		return nil
	}
	return obj
}

// SaveEye2Blob serializes an EYE file into a single binary blob at blobPath.
func (c *Converter) SaveEye2Blob(eyePath, blobPath string) bool {
	obj, err := c.backend.Load(eyePath)
	if err != nil {
		c.logger.Error("eye to blob conversion failed", "src", eyePath, "error", err)
		return false
	}
	b, err := marshalObject(obj)
	if err != nil {
		c.logger.Error("eye to blob conversion failed", "src", eyePath, "error", err)
		return false
	}
	if err := os.WriteFile(blobPath, b, 0644); err != nil {
		c.logger.Error("eye to blob conversion failed", "src", eyePath, "dst", blobPath, "error", err)
		return false
	}
	c.logger.Info("saved eye blob", "src", eyePath, "dst", blobPath, "bytes", len(b))
	return true
}

// LoadEyeFromBlob restores an eye object from a blob written by SaveEye2Blob, or nil.
func (c *Converter) LoadEyeFromBlob(blobPath string) eye.Object {
	b, err := os.ReadFile(blobPath)
	if err != nil {
		c.logger.Error("loading eye from blob failed", "src", blobPath, "error", err)
		return nil
	}
	vol, err := eye.Decode(b)
	if err != nil {
		c.logger.Error("loading eye from blob failed", "src", blobPath, "error", err)
		return nil
	}
	obj, err := c.backend.New(vol)
	if err != nil {
		c.logger.Error("loading eye from blob failed", "src", blobPath, "error", err)
		return nil
	}
	return obj
}

func marshalObject(obj eye.Object) ([]byte, error) {
	if m, ok := obj.(encoding.BinaryMarshaler); ok {
		return m.MarshalBinary()
	}
	return eye.Encode(obj.Volume(), eye.CompressionNone)
}

// Job is one BIN to EYE conversion.
type Job struct {
	Params binreader.Params
	Dst    string
}

// ConvertBatch runs SaveBin2Eye for every job with at most workers running at
// once. The first failure cancels the jobs that have not started yet and is
// returned.
func (c *Converter) ConvertBatch(ctx context.Context, jobs []Job, workers int) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := c.SaveBin2Eye(job.Params, job.Dst); err != nil {
				return fmt.Errorf("convert %s: %w", job.Params.Path, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
