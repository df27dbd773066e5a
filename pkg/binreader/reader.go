// Package binreader interprets raw OCT sensor dumps (".bin" files) as shaped
// volumes. A BIN file carries no metadata: an optional header is skipped and
// the remaining bytes are unsigned 8-bit samples in row-major order, with the
// shape supplied entirely by the caller.
package binreader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"octconverter/internal/models"
)

// PrototypeZeiss is the acquisition prototype whose single-channel slices are
// rotated a quarter turn clockwise on read.
const PrototypeZeiss = "zeiss"

var (
	// ErrFileNotFound is returned by NewReader when the source path does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrShapeMismatch is returned by ReadData when the file holds fewer
	// samples than the configured shape needs.
	ErrShapeMismatch = errors.New("cannot reshape array")
)

// Params holds the layout of a BIN file. Values are used verbatim.
type Params struct {
	// Path is the BIN file to read
	Path string

	// HeaderSize is the number of leading bytes to skip
	HeaderSize int64

	// NumSlices is the number of 2D slices (B-scans) in the volume
	NumSlices int

	// Width and Height are the per-slice dimensions
	Width  int
	Height int

	// NumChannels is the number of samples per pixel
	NumChannels int

	// Prototype tags the acquisition device. Only PrototypeZeiss changes
	// the output orientation.
	Prototype string

	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger
}

// DefaultParams returns the reader defaults for the given path.
func DefaultParams(path string) Params {
	return Params{
		Path:        path,
		HeaderSize:  0,
		NumSlices:   100,
		Width:       1000,
		Height:      512,
		NumChannels: 3,
		Prototype:   PrototypeZeiss,
	}
}

// NumElements is the sample count read from the file. It fails with
// ErrShapeMismatch when a dimension is negative or the count overflows int.
func (p Params) NumElements() (int, error) {
	shape := []int{p.NumSlices, p.Width, p.Height, p.NumChannels}
	n, ok := models.ShapeSize(shape)
	if !ok {
		return 0, fmt.Errorf("%w: no sample count fits shape %s", ErrShapeMismatch, models.FormatShape(shape))
	}
	return n, nil
}

// Reader reads one BIN file with a fixed layout.
type Reader struct {
	params Params
	logger *slog.Logger
}

// NewReader creates a reader for params.Path. It fails if the file does not
// exist; no data is read.
func NewReader(params Params) (*Reader, error) {
	if _, err := os.Stat(params.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrFileNotFound, params.Path, err)
		}
		return nil, fmt.Errorf("stat %s: %w", params.Path, err)
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Reader{params: params, logger: logger}, nil
}

// Params returns the reader configuration.
func (r *Reader) Params() Params {
	return r.params
}

// ReadData reads the file and returns a freshly allocated volume.
//
// Multi-channel data has shape (slices, width, height, channels). Single
// channel data has shape (slices, width, height), or (slices, height, width)
// for the zeiss prototype, whose slices are each rotated 90 degrees clockwise.
func (r *Reader) ReadData() (*models.Volume, error) {
	p := r.params

	// The element count includes the channel axis in both branches.
	numElements, err := p.NumElements()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p.Path, err)
	}

	if p.HeaderSize > 0 {
		if _, err := f.Seek(p.HeaderSize, io.SeekStart); err != nil {
			return nil, fmt.Errorf("skip header of %d bytes: %w", p.HeaderSize, err)
		}
	}

	// never allocate more than the file holds past the header
	available := max(info.Size()-max(p.HeaderSize, 0), 0)
	data, err := readSamples(f, int(min(int64(numElements), available)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.Path, err)
	}

	r.logger.Debug("read bin samples",
		"path", p.Path,
		"header", p.HeaderSize,
		"samples", len(data),
		"expected", numElements)

	if p.NumChannels > 1 {
		return reshape(data, p.NumSlices, p.Width, p.Height, p.NumChannels)
	}

	vol, err := reshape(data, p.NumSlices, p.Width, p.Height)
	if err != nil {
		return nil, err
	}

	if p.Prototype == PrototypeZeiss {
		r.logger.Debug("rotating slices clockwise", "prototype", p.Prototype, "slices", p.NumSlices)
		return vol.RotateSlicesClockwise()
	}

	return vol, nil
}

// readSamples reads up to n bytes. A short file yields a short buffer, which
// the reshape step then rejects.
func readSamples(r io.Reader, n int) ([]uint8, error) {
	buf := make([]uint8, n)
	read, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:read], nil
}

func reshape(data []uint8, shape ...int) (*models.Volume, error) {
	n, ok := models.ShapeSize(shape)
	if !ok || n != len(data) {
		return nil, fmt.Errorf("%w of size %d into shape %s", ErrShapeMismatch, len(data), models.FormatShape(shape))
	}
	return models.NewVolume(data, shape...)
}
