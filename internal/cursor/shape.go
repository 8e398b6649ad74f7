// Package cursor models pointer shapes and the per-viewer cursor cache.
//
// Shapes are identified by a BLAKE3 digest of their pixels and hotspot so
// that identical images map to the same cache slot no matter which window
// produced them.
package cursor

import (
	"encoding/binary"
	"image"

	"github.com/zeebo/blake3"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
)

// Key identifies a cursor image
type Key [32]byte

// Kind names the standard shapes the window manager requests
type Kind uint8

const (
	KindDefault Kind = iota
	KindMove
	KindResizeNS
	KindResizeEW
	KindResizeNWSE
	KindResizeNESW
	KindHidden
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindMove:
		return "move"
	case KindResizeNS:
		return "ns-resize"
	case KindResizeEW:
		return "ew-resize"
	case KindResizeNWSE:
		return "nwse-resize"
	case KindResizeNESW:
		return "nesw-resize"
	case KindHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// Shape is a cursor image with its hotspot
type Shape struct {
	Kind    Kind
	Hotspot image.Point
	Image   *framebuffer.FrameBuffer
	key     Key
	hashed  bool
}

// NewShape builds a shape and computes its key
func NewShape(kind Kind, hotspot image.Point, img *framebuffer.FrameBuffer) *Shape {
	s := &Shape{Kind: kind, Hotspot: hotspot, Image: img}
	s.Key()
	return s
}

// Hidden reports whether the shape hides the pointer
func (s *Shape) Hidden() bool {
	return s == nil || s.Kind == KindHidden || s.Image == nil || s.Image.Width == 0
}

// Key returns the content digest of the shape
func (s *Shape) Key() Key {
	if s.hashed {
		return s.key
	}
	h := blake3.New()
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(s.Hotspot.X))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(s.Hotspot.Y))
	if s.Image != nil {
		binary.LittleEndian.PutUint32(hdr[8:], uint32(s.Image.Width))
		binary.LittleEndian.PutUint32(hdr[12:], uint32(s.Image.Height))
	}
	h.Write(hdr[:])
	if s.Image != nil {
		h.Write(s.Image.Pix)
	}
	copy(s.key[:], h.Sum(nil))
	s.hashed = true
	return s.key
}

// Provider supplies cursor images for the standard kinds
type Provider interface {
	Shape(kind Kind) *Shape
}

// Builtin draws simple procedural cursors. Shapes are built once.
type Builtin struct {
	shapes map[Kind]*Shape
}

// NewBuiltin creates the procedural cursor set
func NewBuiltin() *Builtin {
	b := &Builtin{shapes: make(map[Kind]*Shape)}
	b.shapes[KindDefault] = NewShape(KindDefault, image.Pt(0, 0), arrow(16))
	b.shapes[KindMove] = NewShape(KindMove, image.Pt(8, 8), cross(17, true, true))
	b.shapes[KindResizeNS] = NewShape(KindResizeNS, image.Pt(8, 8), cross(17, false, true))
	b.shapes[KindResizeEW] = NewShape(KindResizeEW, image.Pt(8, 8), cross(17, true, false))
	b.shapes[KindResizeNWSE] = NewShape(KindResizeNWSE, image.Pt(8, 8), diagonal(17, false))
	b.shapes[KindResizeNESW] = NewShape(KindResizeNESW, image.Pt(8, 8), diagonal(17, true))
	b.shapes[KindHidden] = &Shape{Kind: KindHidden}
	return b
}

// Shape implements Provider
func (b *Builtin) Shape(kind Kind) *Shape {
	if s, ok := b.shapes[kind]; ok {
		return s
	}
	return b.shapes[KindDefault]
}

const (
	black = 0xFF000000
	white = 0xFFFFFFFF
)

func arrow(size int) *framebuffer.FrameBuffer {
	img := framebuffer.MustNew(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x <= y && x < size*2/3; x++ {
			c := uint32(white)
			if x == 0 || x == y || y == size-1 {
				c = black
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func cross(size int, horizontal, vertical bool) *framebuffer.FrameBuffer {
	img := framebuffer.MustNew(size, size)
	mid := size / 2
	for i := 0; i < size; i++ {
		if horizontal {
			img.Set(i, mid, black)
			img.Set(i, mid-1, white)
			img.Set(i, mid+1, white)
		}
		if vertical {
			img.Set(mid, i, black)
			img.Set(mid-1, i, white)
			img.Set(mid+1, i, white)
		}
	}
	return img
}

func diagonal(size int, rising bool) *framebuffer.FrameBuffer {
	img := framebuffer.MustNew(size, size)
	for i := 0; i < size; i++ {
		x := i
		if rising {
			x = size - 1 - i
		}
		img.Set(x, i, black)
		img.Set(x+1, i, white)
		img.Set(x-1, i, white)
	}
	return img
}
