package eye

import (
	"errors"
	"fmt"
	"os"

	"octconverter/internal/models"
)

// Knot is the built-in Backend. Volumes are stored in the EYEV format with
// the configured payload compression.
type Knot struct {
	compression Compression
}

// Option configures a Knot backend.
type Option func(*Knot)

// WithCompression sets the payload compression used by Save.
func WithCompression(c Compression) Option {
	return func(k *Knot) {
		k.compression = c
	}
}

// NewKnot creates a Knot backend. Saves are ZSTD-compressed by default.
func NewKnot(opts ...Option) *Knot {
	k := &Knot{compression: CompressionZSTD}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Compression returns the payload compression used by Save.
func (k *Knot) Compression() Compression {
	return k.compression
}

// New wraps vol. The volume is not copied.
func (k *Knot) New(vol *models.Volume) (Object, error) {
	if vol == nil {
		return nil, errors.New("eye: nil volume")
	}
	if _, err := models.NewVolume(vol.Data, vol.Shape...); err != nil {
		return nil, fmt.Errorf("eye: %w", err)
	}
	return &KnotVolume{compression: k.compression, vol: vol}, nil
}

// Load reads an EYEV file.
func (k *Knot) Load(path string) (Object, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("eye: load %s: %w", path, err)
	}
	vol, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("eye: load %s: %w", path, err)
	}
	return &KnotVolume{compression: k.compression, vol: vol}, nil
}

// KnotVolume is the Object produced by Knot.
type KnotVolume struct {
	compression Compression
	vol         *models.Volume
}

// Volume returns the wrapped samples.
func (v *KnotVolume) Volume() *models.Volume {
	return v.vol
}

// Save writes the volume to path, replacing any existing file.
func (v *KnotVolume) Save(path string) error {
	b, err := Encode(v.vol, v.compression)
	if err != nil {
		return fmt.Errorf("eye: save %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("eye: save %s: %w", path, err)
	}
	return nil
}

// MarshalBinary returns the uncompressed EYEV encoding.
func (v *KnotVolume) MarshalBinary() ([]byte, error) {
	return Encode(v.vol, CompressionNone)
}

// UnmarshalBinary replaces the volume with one decoded from b.
func (v *KnotVolume) UnmarshalBinary(b []byte) error {
	vol, err := Decode(b)
	if err != nil {
		return err
	}
	v.vol = vol
	return nil
}
