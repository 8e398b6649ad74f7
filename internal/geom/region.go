package geom

import "image"

// Region is a set of non-overlapping rectangles.
//
// The zero value is an empty region ready to use. Rectangles are kept in
// insertion order; adding a rectangle only appends the parts not already
// covered.
type Region struct {
	rects []image.Rectangle
}

// NewRegion creates a region covering the given rectangles
func NewRegion(rects ...image.Rectangle) Region {
	var r Region
	for _, rect := range rects {
		r.Add(rect)
	}
	return r
}

// Add unions rect into the region
func (r *Region) Add(rect image.Rectangle) {
	rect = rect.Canon()
	if rect.Empty() {
		return
	}

	pieces := []image.Rectangle{rect}
	for _, existing := range r.rects {
		if !existing.Overlaps(rect) {
			continue
		}
		next := pieces[:0:0]
		for _, p := range pieces {
			next = append(next, Subtract(p, existing)...)
		}
		pieces = next
		if len(pieces) == 0 {
			return
		}
	}
	r.rects = append(r.rects, pieces...)
}

// AddRegion unions every rectangle of other into the region
func (r *Region) AddRegion(other Region) {
	for _, rect := range other.rects {
		r.Add(rect)
	}
}

// Subtract removes rect from the region
func (r *Region) Subtract(rect image.Rectangle) {
	rect = rect.Canon()
	if rect.Empty() || len(r.rects) == 0 {
		return
	}

	out := make([]image.Rectangle, 0, len(r.rects))
	for _, existing := range r.rects {
		out = append(out, Subtract(existing, rect)...)
	}
	r.rects = out
}

// SubtractRegion removes every rectangle of other from the region
func (r *Region) SubtractRegion(other Region) {
	for _, rect := range other.rects {
		r.Subtract(rect)
	}
}

// Intersect returns the part of the region inside rect
func (r Region) Intersect(rect image.Rectangle) Region {
	var out Region
	for _, existing := range r.rects {
		if i := existing.Intersect(rect); !i.Empty() {
			// Pieces of a non-overlapping set stay non-overlapping after clipping.
			out.rects = append(out.rects, i)
		}
	}
	return out
}

// Translate returns the region shifted by delta
func (r Region) Translate(delta image.Point) Region {
	out := Region{rects: make([]image.Rectangle, len(r.rects))}
	for i, rect := range r.rects {
		out.rects[i] = rect.Add(delta)
	}
	return out
}

// Rects returns a copy of the rectangles in the region
func (r Region) Rects() []image.Rectangle {
	out := make([]image.Rectangle, len(r.rects))
	copy(out, r.rects)
	return out
}

// Len returns the number of rectangles
func (r Region) Len() int {
	return len(r.rects)
}

// Empty reports whether the region covers no pixels
func (r Region) Empty() bool {
	return len(r.rects) == 0
}

// Clear empties the region
func (r *Region) Clear() {
	r.rects = nil
}

// Clone returns an independent copy
func (r Region) Clone() Region {
	return Region{rects: r.Rects()}
}

// Bounds returns the smallest rectangle containing the region
func (r Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Area returns the number of pixels covered
func (r Region) Area() int {
	total := 0
	for _, rect := range r.rects {
		total += Area(rect)
	}
	return total
}

// Contains reports whether p lies inside the region
func (r Region) Contains(p image.Point) bool {
	for _, rect := range r.rects {
		if p.In(rect) {
			return true
		}
	}
	return false
}

// Covers reports whether rect is entirely inside the region
func (r Region) Covers(rect image.Rectangle) bool {
	rest := NewRegion(rect)
	rest.SubtractRegion(r)
	return rest.Empty()
}
