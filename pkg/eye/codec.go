package eye

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"octconverter/internal/models"
)

// Compression selects how the sample payload is stored.
type Compression uint8

const (
	// CompressionNone stores samples as is.
	CompressionNone Compression = 0
	// CompressionLZ4 stores samples as one LZ4 block (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD stores samples as one ZSTD frame (better ratio).
	CompressionZSTD Compression = 2
)

// String returns the config/flag name of c.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (must be none, lz4 or zstd)", s)
	}
}

// File layout, little endian:
//
//	magic "EYEV" | version u8 | compression u8 | rank u8 | dims u32 x rank | payload
const (
	formatMagic   = "EYEV"
	formatVersion = 1
	fixedHeader   = len(formatMagic) + 3
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Encode serializes vol with the given payload compression. An LZ4 block that
// would not be smaller than the samples is stored uncompressed.
func Encode(vol *models.Volume, c Compression) ([]byte, error) {
	if vol == nil {
		return nil, fmt.Errorf("%w: nil volume", ErrInvalidFormat)
	}
	if vol.Rank() > 255 {
		return nil, fmt.Errorf("%w: rank %d too large", ErrInvalidFormat, vol.Rank())
	}
	for _, d := range vol.Shape {
		if d < 0 || uint64(d) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: dimension %d does not fit the header", ErrInvalidFormat, d)
		}
	}

	payload, c, err := compress(vol.Data, c)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, fixedHeader+4*vol.Rank()+len(payload))
	buf = append(buf, formatMagic...)
	buf = append(buf, formatVersion, byte(c), byte(vol.Rank()))
	for _, d := range vol.Shape {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d))
	}
	return append(buf, payload...), nil
}

// Decode parses bytes written by Encode.
func Decode(b []byte) (*models.Volume, error) {
	if len(b) < fixedHeader || string(b[:len(formatMagic)]) != formatMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidFormat)
	}
	version, c, rank := b[4], Compression(b[5]), int(b[6])
	if version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	off := fixedHeader
	if len(b) < off+4*rank {
		return nil, fmt.Errorf("%w: truncated shape", ErrInvalidFormat)
	}
	shape := make([]int, rank)
	for i := range shape {
		shape[i] = int(binary.LittleEndian.Uint32(b[off:]))
		off += 4
	}
	size, ok := models.ShapeSize(shape)
	if !ok {
		return nil, fmt.Errorf("%w: shape %s is too large", ErrInvalidFormat, models.FormatShape(shape))
	}

	data, err := decompress(b[off:], c, size)
	if err != nil {
		return nil, err
	}

	vol, err := models.NewVolume(data, shape...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return vol, nil
}

func compress(data []byte, c Compression) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return data, c, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, c, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 || n >= len(data) {
			// incompressible
			return data, CompressionNone, nil
		}
		return dst[:n], c, nil
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, c, fmt.Errorf("zstd encoder: %w", err)
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), c, nil
	default:
		return nil, c, fmt.Errorf("unknown compression %d", uint8(c))
	}
}

func decompress(payload []byte, c Compression, size int) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch c {
	case CompressionNone:
		data = make([]byte, len(payload))
		copy(data, payload)
	case CompressionLZ4:
		// an LZ4 block expands at most 255x
		if size > 255*len(payload)+16 {
			return nil, fmt.Errorf("%w: shape needs %d samples from a %d byte lz4 block", ErrInvalidFormat, size, len(payload))
		}
		data = make([]byte, size)
		var n int
		n, err = lz4.UncompressBlock(payload, data)
		data = data[:max(n, 0)]
	case CompressionZSTD:
		var dec *zstd.Decoder
		dec, err = getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		data, err = dec.DecodeAll(payload, nil)
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidFormat, uint8(c))
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrInvalidFormat, c, err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: payload holds %d samples, shape needs %d", ErrInvalidFormat, len(data), size)
	}
	return data, nil
}
