// Package geom provides the rectangle arithmetic shared by the compositor,
// the window manager and the peer sessions.
//
// Rectangles are image.Rectangle values (half-open, Min inclusive, Max
// exclusive). Region holds a set of non-overlapping rectangles and is the
// representation of every dirty area in the system.
package geom

import "image"

// Area returns the pixel count of r
func Area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// Subtract returns a minus b as up to four non-overlapping rectangles.
//
// The split is band-first: full-width bands above and below b, then the
// left and right slivers beside it.
func Subtract(a, b image.Rectangle) []image.Rectangle {
	i := a.Intersect(b)
	if i.Empty() {
		if a.Empty() {
			return nil
		}
		return []image.Rectangle{a}
	}

	out := make([]image.Rectangle, 0, 4)
	if a.Min.Y < i.Min.Y {
		out = append(out, image.Rect(a.Min.X, a.Min.Y, a.Max.X, i.Min.Y))
	}
	if i.Max.Y < a.Max.Y {
		out = append(out, image.Rect(a.Min.X, i.Max.Y, a.Max.X, a.Max.Y))
	}
	if a.Min.X < i.Min.X {
		out = append(out, image.Rect(a.Min.X, i.Min.Y, i.Min.X, i.Max.Y))
	}
	if i.Max.X < a.Max.X {
		out = append(out, image.Rect(i.Max.X, i.Min.Y, a.Max.X, i.Max.Y))
	}
	return out
}

// Tiles partitions r into tiles of at most size×size, starting at r.Min.
// Tiles on the right and bottom edges are clipped to r.
func Tiles(r image.Rectangle, size int) []image.Rectangle {
	if r.Empty() || size <= 0 {
		return nil
	}
	cols := (r.Dx() + size - 1) / size
	rows := (r.Dy() + size - 1) / size
	out := make([]image.Rectangle, 0, cols*rows)
	for y := r.Min.Y; y < r.Max.Y; y += size {
		for x := r.Min.X; x < r.Max.X; x += size {
			out = append(out, image.Rect(x, y, min(x+size, r.Max.X), min(y+size, r.Max.Y)))
		}
	}
	return out
}

// Bands splits r into horizontal bands of at most rows lines each
func Bands(r image.Rectangle, rows int) []image.Rectangle {
	if r.Empty() {
		return nil
	}
	if rows <= 0 || rows >= r.Dy() {
		return []image.Rectangle{r}
	}
	out := make([]image.Rectangle, 0, (r.Dy()+rows-1)/rows)
	for y := r.Min.Y; y < r.Max.Y; y += rows {
		out = append(out, image.Rect(r.Min.X, y, r.Max.X, min(y+rows, r.Max.Y)))
	}
	return out
}

// Grow returns r with each side pushed outwards by the given margins
func Grow(r image.Rectangle, m Margins) image.Rectangle {
	return image.Rect(r.Min.X-m.Left, r.Min.Y-m.Top, r.Max.X+m.Right, r.Max.Y+m.Bottom)
}

// Shrink returns r with each side pulled inwards by the given margins
func Shrink(r image.Rectangle, m Margins) image.Rectangle {
	return image.Rect(r.Min.X+m.Left, r.Min.Y+m.Top, r.Max.X-m.Right, r.Max.Y-m.Bottom)
}

// Margins describes per-side extents, e.g. window decoration thickness
type Margins struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Center returns the centre point of r
func Center(r image.Rectangle) image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}
