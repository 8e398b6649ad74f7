// Package display reconciles viewer-proposed monitor layouts with the
// desktop's monitor set.
//
// Viewers describe monitors in their own coordinate space, which may have
// negative offsets. Normalize moves the layout so the smallest X and Y land
// on zero; the result is the local geometry. Remote geometry keeps the
// viewer's origin and always has the same size as the local one.
package display

import (
	"errors"
	"fmt"
	"image"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
)

const (
	// MaxMonitors bounds the number of monitors in one layout
	MaxMonitors = 16
	// MaxCoordinate bounds every viewer coordinate in absolute value
	MaxCoordinate = 1 << 20
)

var (
	// ErrEmptyLayout is returned for a layout without monitors
	ErrEmptyLayout = errors.New("layout has no monitors")
	// ErrInvalidLayout is returned for degenerate or oversized layouts
	ErrInvalidLayout = errors.New("invalid monitor layout")
)

// Entry is one monitor of a proposed layout, in viewer coordinates
type Entry struct {
	Rect    image.Rectangle
	Primary bool
}

// Monitor is one screen of the desktop
type Monitor struct {
	Index   int
	Name    string
	Local   image.Rectangle
	Remote  image.Rectangle
	Primary bool
}

// Plan describes how to move from the current monitor set to a proposed one
type Plan struct {
	// Monitors is the resulting monitor set, numbered 0..n-1
	Monitors []Monitor
	Added    []int
	Removed  []int
	Changed  []int
	// Bounds is the union of all local geometries
	Bounds        image.Rectangle
	BoundsChanged bool
}

// Empty reports whether applying the plan changes nothing
func (p Plan) Empty() bool {
	return len(p.Added) == 0 && len(p.Removed) == 0 && len(p.Changed) == 0 && !p.BoundsChanged
}

// Validate checks a proposed layout
func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return ErrEmptyLayout
	}
	if len(entries) > MaxMonitors {
		return fmt.Errorf("%w: %d monitors exceeds %d", ErrInvalidLayout, len(entries), MaxMonitors)
	}
	for i, e := range entries {
		if e.Rect.Dx() <= 0 || e.Rect.Dy() <= 0 {
			return fmt.Errorf("%w: monitor %d has size %dx%d", ErrInvalidLayout, i, e.Rect.Dx(), e.Rect.Dy())
		}
		if !inRange(e.Rect.Min) || !inRange(e.Rect.Max) {
			return fmt.Errorf("%w: monitor %d at %v is out of range", ErrInvalidLayout, i, e.Rect)
		}
	}
	return nil
}

func inRange(p image.Point) bool {
	return p.X >= -MaxCoordinate && p.X <= MaxCoordinate && p.Y >= -MaxCoordinate && p.Y <= MaxCoordinate
}

// Normalize translates the layout so that the minimum X and Y are zero
func Normalize(entries []Entry) []image.Rectangle {
	if len(entries) == 0 {
		return nil
	}
	origin := entries[0].Rect.Min
	for _, e := range entries[1:] {
		origin.X = min(origin.X, e.Rect.Min.X)
		origin.Y = min(origin.Y, e.Rect.Min.Y)
	}
	out := make([]image.Rectangle, len(entries))
	for i, e := range entries {
		out[i] = e.Rect.Sub(origin)
	}
	return out
}

// Bounds returns the union of the monitors' local geometries
func Bounds(monitors []Monitor) image.Rectangle {
	var b image.Rectangle
	for _, m := range monitors {
		b = b.Union(m.Local)
	}
	return b
}

// Single builds a one-monitor layout of the given size
func Single(width, height int) []Monitor {
	r := image.Rect(0, 0, width, height)
	return []Monitor{{Index: 0, Name: Name(0), Local: r, Remote: r, Primary: true}}
}

// Name returns the screen name for an index
func Name(index int) string {
	return fmt.Sprintf("screen-%d", index)
}

// Reconcile compares the current monitors with a proposed layout.
// Reapplying the layout that produced current yields an empty plan.
func Reconcile(current []Monitor, proposed []Entry) (Plan, error) {
	if err := Validate(proposed); err != nil {
		return Plan{}, err
	}

	local := Normalize(proposed)
	primary := -1
	for i, e := range proposed {
		if e.Primary {
			primary = i
			break
		}
	}
	if primary < 0 {
		primary = 0
	}

	plan := Plan{Monitors: make([]Monitor, len(proposed))}
	for i, e := range proposed {
		m := Monitor{
			Index:   i,
			Name:    Name(i),
			Local:   local[i],
			Remote:  e.Rect,
			Primary: i == primary,
		}
		plan.Monitors[i] = m

		if i >= len(current) {
			plan.Added = append(plan.Added, i)
			continue
		}
		if cur := current[i]; cur.Local != m.Local || cur.Remote != m.Remote || cur.Primary != m.Primary {
			plan.Changed = append(plan.Changed, i)
		}
	}
	for i := len(proposed); i < len(current); i++ {
		plan.Removed = append(plan.Removed, i)
	}

	plan.Bounds = Bounds(plan.Monitors)
	if err := framebuffer.CheckSize(plan.Bounds.Dx(), plan.Bounds.Dy()); err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}
	plan.BoundsChanged = plan.Bounds.Size() != Bounds(current).Size()
	return plan, nil
}

// MonitorAt returns the index of the monitor containing p, or -1
func MonitorAt(monitors []Monitor, p image.Point) int {
	for _, m := range monitors {
		if p.In(m.Local) {
			return m.Index
		}
	}
	return -1
}

// Nearest returns the index of the monitor whose centre is closest to r's centre
func Nearest(monitors []Monitor, r image.Rectangle) int {
	best, bestDist := -1, 0
	cx, cy := r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2
	for _, m := range monitors {
		if r.Overlaps(m.Local) {
			return m.Index
		}
		mx, my := m.Local.Min.X+m.Local.Dx()/2, m.Local.Min.Y+m.Local.Dy()/2
		d := (mx-cx)*(mx-cx) + (my-cy)*(my-cy)
		if best < 0 || d < bestDist {
			best, bestDist = m.Index, d
		}
	}
	return best
}
