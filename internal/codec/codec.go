// Package codec provides the tile encoders used by peer sessions.
//
// Encoders are black boxes behind the Backend interface: a tile goes in,
// bytes come out. Four schemes exist:
//   - raw: packed ARGB32 rows
//   - bitmap: LZ4 block compression of the packed rows
//   - planar: pixels split into B, G, R and A planes, then LZ4
//   - zstd: zstd compression of the packed rows
//
// ErrIncompressible means the output would not be smaller than the input;
// callers send the tile raw instead. Any other error skips the tile.
package codec

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
)

var (
	// ErrIncompressible is returned when compression does not shrink the tile
	ErrIncompressible = errors.New("tile is incompressible")
	// ErrEncodeFailure wraps backend failures that skip a tile
	ErrEncodeFailure = errors.New("tile encode failed")
	// ErrBackendOpen is returned while the guard has tripped
	ErrBackendOpen = errors.New("codec backend disabled after repeated failures")
	// ErrUnknownScheme is returned for an unrecognised scheme
	ErrUnknownScheme = errors.New("unknown codec scheme")
)

// Scheme identifies a tile encoding
type Scheme uint8

const (
	SchemeRaw Scheme = iota
	SchemeBitmap
	SchemePlanar
	SchemeZstd
)

// String returns the scheme name
func (s Scheme) String() string {
	switch s {
	case SchemeRaw:
		return "raw"
	case SchemeBitmap:
		return "bitmap"
	case SchemePlanar:
		return "planar"
	case SchemeZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// ParseScheme parses a scheme name
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "raw":
		return SchemeRaw, nil
	case "bitmap":
		return SchemeBitmap, nil
	case "planar":
		return SchemePlanar, nil
	case "zstd":
		return SchemeZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// Backend encodes one tile
type Backend interface {
	Scheme() Scheme
	Encode(tile *framebuffer.FrameBuffer) ([]byte, error)
}

// NewBackend returns the built-in backend for a scheme
func NewBackend(s Scheme) (Backend, error) {
	switch s {
	case SchemeRaw:
		return rawBackend{}, nil
	case SchemeBitmap:
		return bitmapBackend{}, nil
	case SchemePlanar:
		return planarBackend{}, nil
	case SchemeZstd:
		return zstdBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownScheme, s)
	}
}

type rawBackend struct{}

func (rawBackend) Scheme() Scheme { return SchemeRaw }

func (rawBackend) Encode(tile *framebuffer.FrameBuffer) ([]byte, error) {
	return tile.Packed(tile.Bounds()), nil
}

type bitmapBackend struct{}

func (bitmapBackend) Scheme() Scheme { return SchemeBitmap }

func (bitmapBackend) Encode(tile *framebuffer.FrameBuffer) ([]byte, error) {
	return compressLZ4(tile.Packed(tile.Bounds()))
}

type planarBackend struct{}

func (planarBackend) Scheme() Scheme { return SchemePlanar }

func (planarBackend) Encode(tile *framebuffer.FrameBuffer) ([]byte, error) {
	return compressLZ4(splitPlanes(tile.Packed(tile.Bounds())))
}

type zstdBackend struct{}

func (zstdBackend) Scheme() Scheme { return SchemeZstd }

func (zstdBackend) Encode(tile *framebuffer.FrameBuffer) ([]byte, error) {
	data := tile.Packed(tile.Bounds())
	out := zstdEncoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return nil, ErrIncompressible
	}
	return out, nil
}

// zstd encoder and decoder are safe for concurrent use and reused
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 || n >= len(data) {
		return nil, ErrIncompressible
	}
	return dst[:n], nil
}

// splitPlanes groups the bytes of each BGRA pixel by position
func splitPlanes(data []byte) []byte {
	n := len(data) / framebuffer.BytesPerPixel
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		out[i] = data[i*4]
		out[n+i] = data[i*4+1]
		out[2*n+i] = data[i*4+2]
		out[3*n+i] = data[i*4+3]
	}
	return out
}

func joinPlanes(data []byte) []byte {
	n := len(data) / framebuffer.BytesPerPixel
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		out[i*4] = data[i]
		out[i*4+1] = data[n+i]
		out[i*4+2] = data[2*n+i]
		out[i*4+3] = data[3*n+i]
	}
	return out
}

// Decode reverses Encode for a scheme; size is the packed tile byte length
func Decode(s Scheme, data []byte, size int) ([]byte, error) {
	switch s {
	case SchemeRaw:
		if len(data) != size {
			return nil, fmt.Errorf("raw tile: got %d bytes, expected %d", len(data), size)
		}
		return data, nil
	case SchemeBitmap:
		return decompressLZ4(data, size)
	case SchemePlanar:
		planes, err := decompressLZ4(data, size)
		if err != nil {
			return nil, err
		}
		return joinPlanes(planes), nil
	case SchemeZstd:
		out, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownScheme, s)
	}
}

func decompressLZ4(data []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, size)
	}
	return dst, nil
}
