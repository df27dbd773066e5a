// Package inspect computes intensity statistics of OCT volumes.
package inspect

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"octconverter/internal/models"
)

// Summary holds the intensity statistics of a volume
type Summary struct {
	Shape []int

	Min, Max uint8

	// Mean and StdDev are taken over every sample (all channels)
	Mean   float64
	StdDev float64

	// Entropy is the Shannon entropy of the 256-bin histogram in bits
	Entropy float64

	// SliceMeans holds the mean intensity of each slice
	SliceMeans []float64
}

// levels are the 256 possible sample values, shared as histogram abscissae
var levels = func() []float64 {
	x := make([]float64, 256)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}()

func histogram(data []uint8) []float64 {
	h := make([]float64, 256)
	for _, v := range data {
		h[v]++
	}
	return h
}

// Summarize computes a Summary of vol.
func Summarize(vol *models.Volume) (*Summary, error) {
	if vol == nil || len(vol.Data) == 0 {
		return nil, errors.New("inspect: empty volume")
	}

	hist := histogram(vol.Data)
	mean, std := stat.MeanStdDev(levels, hist)

	s := &Summary{
		Shape:  append([]int(nil), vol.Shape...),
		Mean:   mean,
		StdDev: std,
	}

	for i, c := range hist {
		if c > 0 {
			s.Min = uint8(i)
			break
		}
	}
	for i := len(hist) - 1; i >= 0; i-- {
		if hist[i] > 0 {
			s.Max = uint8(i)
			break
		}
	}

	p := make([]float64, len(hist))
	total := float64(len(vol.Data))
	for i, c := range hist {
		p[i] = c / total
	}
	s.Entropy = stat.Entropy(p) / math.Ln2

	s.SliceMeans = make([]float64, vol.NumSlices())
	if vol.SliceLen() > 0 {
		for i := range s.SliceMeans {
			s.SliceMeans[i] = stat.Mean(levels, histogram(vol.Slice(i)))
		}
	}

	return s, nil
}
