package framebuffer

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNegative(t *testing.T) {
	_, err := New(-1, 10)
	require.Error(t, err)
}

func TestNewRejectsOversized(t *testing.T) {
	_, err := New(MaxDimension+1, 1)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = New(MaxDimension, MaxDimension)
	assert.ErrorIs(t, err, ErrTooLarge, "area cap applies even when both sides fit")

	fb, err := New(MaxDimension, 16)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(MaxDimension, 16), fb.Size())
}

func TestSetAt(t *testing.T) {
	fb := MustNew(4, 4)
	fb.Set(1, 2, 0xFF112233)
	assert.Equal(t, uint32(0xFF112233), fb.At(1, 2))
	// BGRA byte order
	assert.Equal(t, []byte{0x33, 0x22, 0x11, 0xFF}, fb.Row(2, 1, 2))

	fb.Set(10, 10, 0xFFFFFFFF)
	assert.Equal(t, uint32(0), fb.At(10, 10))
}

func TestFillClips(t *testing.T) {
	fb := MustNew(8, 8)
	fb.Fill(image.Rect(-4, -4, 2, 2), 0xFF0000FF)
	assert.Equal(t, uint32(0xFF0000FF), fb.At(0, 0))
	assert.Equal(t, uint32(0xFF0000FF), fb.At(1, 1))
	assert.Equal(t, uint32(0), fb.At(2, 2))
}

func TestBlitAndEqualRect(t *testing.T) {
	src := MustNew(4, 4)
	src.Fill(src.Bounds(), 0xFF00FF00)
	dst := MustNew(10, 10)
	dst.Blit(image.Pt(8, 8), src, src.Bounds())

	assert.Equal(t, uint32(0xFF00FF00), dst.At(9, 9))
	assert.Equal(t, uint32(0), dst.At(7, 7))
	assert.True(t, dst.EqualRect(image.Rect(8, 8, 10, 10), src, image.Pt(-8, -8)))
}

func TestCopyAndPacked(t *testing.T) {
	fb := MustNew(6, 6)
	fb.Fill(image.Rect(2, 2, 4, 4), 0xFFABCDEF)
	sub := fb.Copy(image.Rect(2, 2, 4, 4))
	assert.Equal(t, 2, sub.Width)
	assert.Equal(t, uint32(0xFFABCDEF), sub.At(1, 1))

	packed := fb.Packed(image.Rect(2, 2, 4, 4))
	assert.Len(t, packed, 2*2*BytesPerPixel)
	assert.Equal(t, sub.Pix, packed)
}
