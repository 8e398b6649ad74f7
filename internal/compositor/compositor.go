// Package compositor reduces coarse repaint regions to the tiles whose
// pixels actually changed since they were last transmitted.
//
// Each monitor owns a shadow image holding the previously sent pixels.
// Reduce compares the live desktop against the shadow tile by tile and
// returns only the tiles that differ, copying them into the shadow as it
// goes. The cost is bounded by the invalidated area, not the desktop area.
package compositor

import (
	"image"
	"sort"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/geom"
)

// TileSize is the edge length of a change-detection tile
const TileSize = 64

// Sentinel fills a reset shadow. Alpha 0 with non-zero colour is not a valid
// premultiplied pixel, so no live content can ever match it.
const Sentinel uint32 = 0x00FF00FF

// shadow is the cached previous frame of one monitor
type shadow struct {
	rect  image.Rectangle
	image *framebuffer.FrameBuffer
}

// Compositor tracks shadow images for every monitor of one desktop
type Compositor struct {
	tileSize int
	shadows  map[int]*shadow
}

// New creates a compositor with the standard tile size
func New() *Compositor {
	return NewWithTileSize(TileSize)
}

// NewWithTileSize creates a compositor with a custom tile size
func NewWithTileSize(size int) *Compositor {
	if size <= 0 {
		size = TileSize
	}
	return &Compositor{
		tileSize: size,
		shadows:  make(map[int]*shadow),
	}
}

// TileSize returns the tile edge length in use
func (c *Compositor) TileSize() int {
	return c.tileSize
}

// ResizeMonitor (re)allocates the shadow for a monitor and fills it with the
// sentinel, so the next Reduce over it reports a full change.
func (c *Compositor) ResizeMonitor(index int, rect image.Rectangle) error {
	img, err := framebuffer.New(rect.Dx(), rect.Dy())
	if err != nil {
		return err
	}
	img.Fill(img.Bounds(), Sentinel)
	c.shadows[index] = &shadow{rect: rect, image: img}
	return nil
}

// RemoveMonitor drops a monitor's shadow
func (c *Compositor) RemoveMonitor(index int) {
	delete(c.shadows, index)
}

// Invalidate resets every shadow to the sentinel
func (c *Compositor) Invalidate() {
	for _, s := range c.shadows {
		s.image.Fill(s.image.Bounds(), Sentinel)
	}
}

// Reduce returns the subset of region whose pixels in live differ from the
// shadow. Regions no larger than one tile are returned unchanged; their
// pixels are still copied into the shadow.
func (c *Compositor) Reduce(region geom.Region, live *framebuffer.FrameBuffer) geom.Region {
	if region.Empty() {
		return geom.Region{}
	}
	if region.Area() <= c.tileSize*c.tileSize {
		c.Sync(region, live)
		return region.Clone()
	}

	var out geom.Region
	for _, rect := range region.Rects() {
		for _, tile := range geom.Tiles(rect, c.tileSize) {
			if c.diffTile(tile, live) {
				out.Add(tile)
			}
		}
	}
	return out
}

// diffTile compares one tile against every shadow it overlaps, updating the
// shadows, and reports whether any part changed.
func (c *Compositor) diffTile(tile image.Rectangle, live *framebuffer.FrameBuffer) bool {
	tile = tile.Intersect(live.Bounds())
	changed := false
	for _, idx := range c.indices() {
		s := c.shadows[idx]
		part := tile.Intersect(s.rect)
		if part.Empty() {
			continue
		}
		local := part.Sub(s.rect.Min)
		if live.EqualRect(part, s.image, s.rect.Min.Mul(-1)) {
			continue
		}
		s.image.Blit(local.Min, live, part)
		changed = true
	}
	return changed
}

// Sync copies the live pixels of region into the shadows without diffing
func (c *Compositor) Sync(region geom.Region, live *framebuffer.FrameBuffer) {
	for _, rect := range region.Rects() {
		for _, s := range c.shadows {
			part := rect.Intersect(s.rect).Intersect(live.Bounds())
			if part.Empty() {
				continue
			}
			s.image.Blit(part.Min.Sub(s.rect.Min), live, part)
		}
	}
}

// indices returns monitor indices in ascending order for deterministic output
func (c *Compositor) indices() []int {
	out := make([]int, 0, len(c.shadows))
	for idx := range c.shadows {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
