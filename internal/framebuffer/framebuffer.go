// Package framebuffer implements the pixel store used for the desktop image,
// the compositor shadow copies and per-window content.
//
// Pixel format is fixed: 32-bit premultiplied ARGB, stored little-endian
// (B, G, R, A byte order in memory).
package framebuffer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
)

const (
	// BytesPerPixel is the size of one ARGB32 pixel
	BytesPerPixel = 4
	// MaxDimension bounds the width and the height of a frame buffer
	MaxDimension = 16384
	// MaxArea bounds the pixel count of a frame buffer (256 MiB of pixels)
	MaxArea = 1 << 26
)

// ErrTooLarge is returned for sizes beyond MaxDimension or MaxArea
var ErrTooLarge = errors.New("frame buffer too large")

// FrameBuffer is a rectangular pixel array anchored at (0,0)
type FrameBuffer struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// New allocates a zeroed (transparent black) frame buffer
func New(width, height int) (*FrameBuffer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid frame buffer size %dx%d", width, height)
	}
	if err := CheckSize(width, height); err != nil {
		return nil, err
	}
	stride := width * BytesPerPixel
	return &FrameBuffer{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}, nil
}

// CheckSize reports ErrTooLarge for sizes New would refuse to allocate
func CheckSize(width, height int) error {
	if width > MaxDimension || height > MaxDimension || width*height > MaxArea {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, width, height)
	}
	return nil
}

// MustNew is New for sizes known to be valid
func MustNew(width, height int) *FrameBuffer {
	fb, err := New(width, height)
	if err != nil {
		panic(err)
	}
	return fb
}

// Bounds returns the frame buffer rectangle
func (f *FrameBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Size returns width and height as a point
func (f *FrameBuffer) Size() image.Point {
	return image.Pt(f.Width, f.Height)
}

// offset returns the byte offset of pixel (x, y)
func (f *FrameBuffer) offset(x, y int) int {
	return y*f.Stride + x*BytesPerPixel
}

// At returns the ARGB value at (x, y), or 0 outside the buffer
func (f *FrameBuffer) At(x, y int) uint32 {
	if !image.Pt(x, y).In(f.Bounds()) {
		return 0
	}
	o := f.offset(x, y)
	return uint32(f.Pix[o]) | uint32(f.Pix[o+1])<<8 | uint32(f.Pix[o+2])<<16 | uint32(f.Pix[o+3])<<24
}

// Set writes one ARGB pixel; out-of-bounds writes are ignored
func (f *FrameBuffer) Set(x, y int, argb uint32) {
	if !image.Pt(x, y).In(f.Bounds()) {
		return
	}
	o := f.offset(x, y)
	f.Pix[o] = byte(argb)
	f.Pix[o+1] = byte(argb >> 8)
	f.Pix[o+2] = byte(argb >> 16)
	f.Pix[o+3] = byte(argb >> 24)
}

// Row returns the bytes of line y restricted to [x0, x1)
func (f *FrameBuffer) Row(y, x0, x1 int) []byte {
	return f.Pix[f.offset(x0, y):f.offset(x1, y)]
}

// Fill paints r (clipped to the buffer) with a single ARGB colour
func (f *FrameBuffer) Fill(r image.Rectangle, argb uint32) {
	r = r.Intersect(f.Bounds())
	if r.Empty() {
		return
	}
	px := [BytesPerPixel]byte{byte(argb), byte(argb >> 8), byte(argb >> 16), byte(argb >> 24)}
	first := f.Row(r.Min.Y, r.Min.X, r.Max.X)
	for i := 0; i < len(first); i += BytesPerPixel {
		copy(first[i:], px[:])
	}
	for y := r.Min.Y + 1; y < r.Max.Y; y++ {
		copy(f.Row(y, r.Min.X, r.Max.X), first)
	}
}

// Blit copies src's srcRect so that srcRect.Min lands on dst.
// Both sides are clipped to their buffers.
func (f *FrameBuffer) Blit(dst image.Point, src *FrameBuffer, srcRect image.Rectangle) {
	srcRect = srcRect.Intersect(src.Bounds())
	delta := dst.Sub(srcRect.Min)
	dstRect := srcRect.Add(delta).Intersect(f.Bounds())
	if dstRect.Empty() {
		return
	}
	srcRect = dstRect.Sub(delta)
	for y := 0; y < dstRect.Dy(); y++ {
		copy(
			f.Row(dstRect.Min.Y+y, dstRect.Min.X, dstRect.Max.X),
			src.Row(srcRect.Min.Y+y, srcRect.Min.X, srcRect.Max.X),
		)
	}
}

// Copy returns a new buffer holding the pixels of r (clipped)
func (f *FrameBuffer) Copy(r image.Rectangle) *FrameBuffer {
	r = r.Intersect(f.Bounds())
	out := MustNew(r.Dx(), r.Dy())
	out.Blit(image.Point{}, f, r)
	return out
}

// Clone returns a deep copy of the buffer
func (f *FrameBuffer) Clone() *FrameBuffer {
	out := &FrameBuffer{Width: f.Width, Height: f.Height, Stride: f.Stride, Pix: make([]byte, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}

// EqualRect reports whether f at r holds the same bytes as other at r.Add(otherOffset)
func (f *FrameBuffer) EqualRect(r image.Rectangle, other *FrameBuffer, otherOffset image.Point) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		a := f.Row(y, r.Min.X, r.Max.X)
		b := other.Row(y+otherOffset.Y, r.Min.X+otherOffset.X, r.Max.X+otherOffset.X)
		if !bytes.Equal(a, b) {
			return false
		}
	}
	return true
}

// Packed returns the pixels of r as a tightly packed byte slice
func (f *FrameBuffer) Packed(r image.Rectangle) []byte {
	r = r.Intersect(f.Bounds())
	out := make([]byte, 0, r.Dx()*r.Dy()*BytesPerPixel)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		out = append(out, f.Row(y, r.Min.X, r.Max.X)...)
	}
	return out
}

// ByteArea returns the storage size of r in this pixel format
func ByteArea(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy() * BytesPerPixel
}
