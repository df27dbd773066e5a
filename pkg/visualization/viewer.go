package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"octconverter/internal/models"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

// Viewer renders 2D previews of an OCT volume.
//
// Axes follow the volume layout (slices, rows, cols): "z" selects a slice,
// "y" a row across all slices and "x" a column across all slices.
// Multi-channel volumes are previewed through their first channel.
type Viewer struct {
	vol     *models.Volume
	quality int
}

// NewViewer creates a viewer over vol. quality <= 0 selects DefaultQuality.
func NewViewer(vol *models.Volume, quality int) *Viewer {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Viewer{vol: vol, quality: quality}
}

func (v *Viewer) sample(s, r, c int) uint8 {
	ch := v.vol.Channels()
	idx := ((s*v.vol.Rows()+r)*v.vol.Cols() + c) * ch
	return v.vol.Data[idx]
}

// axisLen returns the number of positions along axis.
func (v *Viewer) axisLen(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return v.vol.Cols(), nil
	case "y", "Y":
		return v.vol.Rows(), nil
	case "z", "Z":
		return v.vol.NumSlices(), nil
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

// ExtractSlice extracts a 2D grayscale image at position along axis
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	n, err := v.axisLen(axis)
	if err != nil {
		return nil, err
	}
	if position >= n {
		return nil, fmt.Errorf("position %d exceeds %s-axis length %d", position, axis, n)
	}

	slices, rows, cols := v.vol.NumSlices(), v.vol.Rows(), v.vol.Cols()
	var img *image.Gray

	switch axis {
	case "x", "X":
		// rows by slices
		img = image.NewGray(image.Rect(0, 0, slices, rows))
		for r := 0; r < rows; r++ {
			for s := 0; s < slices; s++ {
				img.SetGray(s, r, color.Gray{Y: v.sample(s, r, position)})
			}
		}

	case "y", "Y":
		// slices by cols
		img = image.NewGray(image.Rect(0, 0, cols, slices))
		for s := 0; s < slices; s++ {
			for c := 0; c < cols; c++ {
				img.SetGray(c, s, color.Gray{Y: v.sample(s, position, c)})
			}
		}

	default:
		// one B-scan
		img = image.NewGray(image.Rect(0, 0, cols, rows))
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				img.SetGray(c, r, color.Gray{Y: v.sample(position, r, c)})
			}
		}
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: v.quality})
}

// SaveSliceSequence extracts and saves every slice along the specified axis
// and returns the number of images written.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) (int, error) {
	maxPos, err := v.axisLen(axis)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return pos, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%04d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}

	return maxPos, nil
}
