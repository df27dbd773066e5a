package models

import (
	"fmt"
	"math"
	"strings"
)

// Volume represents a volumetric scan held as unsigned 8-bit samples.
type Volume struct {
	// Data is the volume data as a 1D array in row-major order
	// (the last axis of Shape varies fastest)
	Data []uint8

	// Shape is (slices, rows, cols) for single-channel volumes and
	// (slices, rows, cols, channels) for multi-channel volumes
	Shape []int
}

// NewVolume wraps data with the given shape. The data length must equal the
// product of the shape.
func NewVolume(data []uint8, shape ...int) (*Volume, error) {
	if len(shape) < 3 || len(shape) > 4 {
		return nil, fmt.Errorf("volume must have rank 3 or 4, got %d", len(shape))
	}
	n, ok := ShapeSize(shape)
	if !ok {
		return nil, fmt.Errorf("invalid shape %s", FormatShape(shape))
	}
	if n != len(data) {
		return nil, fmt.Errorf("cannot reshape array of size %d into shape %s", len(data), FormatShape(shape))
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Volume{Data: data, Shape: s}, nil
}

// ShapeSize returns the number of elements of shape. It reports false when a
// dimension is negative or the count overflows int.
func ShapeSize(shape []int) (int, bool) {
	empty := false
	for _, d := range shape {
		if d < 0 {
			return 0, false
		}
		empty = empty || d == 0
	}
	if empty {
		return 0, true
	}
	n := 1
	for _, d := range shape {
		if n > math.MaxInt/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

// Rank returns the number of axes.
func (v *Volume) Rank() int {
	return len(v.Shape)
}

// NumSlices returns the length of the first axis.
func (v *Volume) NumSlices() int {
	return v.Shape[0]
}

// Rows returns the length of the second axis.
func (v *Volume) Rows() int {
	return v.Shape[1]
}

// Cols returns the length of the third axis.
func (v *Volume) Cols() int {
	return v.Shape[2]
}

// Channels returns the channel count, 1 for rank-3 volumes.
func (v *Volume) Channels() int {
	if len(v.Shape) == 4 {
		return v.Shape[3]
	}
	return 1
}

// SliceLen is the number of samples in one slice including channels.
func (v *Volume) SliceLen() int {
	return v.Rows() * v.Cols() * v.Channels()
}

// Slice returns the samples of slice i. The returned slice aliases Data.
func (v *Volume) Slice(i int) []uint8 {
	n := v.SliceLen()
	return v.Data[i*n : (i+1)*n]
}

// At returns the sample at the given index. idx must have one entry per axis.
func (v *Volume) At(idx ...int) uint8 {
	off := 0
	for axis, i := range idx {
		off = off*v.Shape[axis] + i
	}
	return v.Data[off]
}

// Equal reports whether both volumes have the same shape and samples.
func (v *Volume) Equal(o *Volume) bool {
	if o == nil || len(v.Shape) != len(o.Shape) || len(v.Data) != len(o.Data) {
		return false
	}
	for i := range v.Shape {
		if v.Shape[i] != o.Shape[i] {
			return false
		}
	}
	for i := range v.Data {
		if v.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// RotateSlicesClockwise rotates every (rows, cols) slice of a single-channel
// volume a quarter turn clockwise and restacks them, giving shape
// (slices, cols, rows).
func (v *Volume) RotateSlicesClockwise() (*Volume, error) {
	if v.Rank() != 3 {
		return nil, fmt.Errorf("slice rotation needs a rank 3 volume, got shape %s", FormatShape(v.Shape))
	}
	slices, rows, cols := v.Shape[0], v.Shape[1], v.Shape[2]
	out := make([]uint8, len(v.Data))
	n := rows * cols
	for s := 0; s < slices; s++ {
		RotateClockwise(out[s*n:(s+1)*n], v.Data[s*n:(s+1)*n], rows, cols)
	}
	return &Volume{Data: out, Shape: []int{slices, cols, rows}}, nil
}

// RotateClockwise writes the quarter-turn clockwise rotation of the
// rows x cols matrix src into dst, which is then cols x rows.
func RotateClockwise(dst, src []uint8, rows, cols int) {
	for i := 0; i < cols; i++ {
		for j := 0; j < rows; j++ {
			dst[i*rows+j] = src[(rows-1-j)*cols+i]
		}
	}
}

// FormatShape renders a shape as "(a, b, c)".
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
