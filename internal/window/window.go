package window

import (
	"image"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/geom"
	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/theme"
)

// ID identifies a window; allocated monotonically by the window manager
type ID uint32

// State is the window sizing state
type State uint8

const (
	StateNormal State = iota
	StateMaximized
	StateMinimized
	StateFullScreen
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateMaximized:
		return "maximized"
	case StateMinimized:
		return "minimized"
	case StateFullScreen:
		return "fullscreen"
	default:
		return "unknown"
	}
}

// ContentProvider supplies a window's rendered pixels. The buffer is owned
// by the provider and read only; it is sized to the inner geometry.
type ContentProvider interface {
	Pixels() *framebuffer.FrameBuffer
}

// InputSink receives events routed to a window
type InputSink interface {
	HandleInput(ev input.Event)
	Activated(active bool)
	CloseRequested()
}

// Host is the non-owning back reference a window uses for upward calls
type Host interface {
	PushDirtyArea(region geom.Region)
}

// Options configures a new window
type Options struct {
	Title     string
	Geometry  image.Rectangle // inner (content) geometry
	MinSize   image.Point     // minimum inner size
	Decorated bool
	Modal     bool
	Content   ContentProvider
	Sink      InputSink
}

// Window is one top-level window on the desktop
type Window struct {
	id         ID
	host       Host
	title      string
	inner      image.Rectangle
	margins    geom.Margins
	minSize    image.Point
	visible    bool
	modal      bool
	state      State
	restore    image.Rectangle
	monitor    int
	content    ContentProvider
	sink       InputSink
	decoration *Decoration
}

// New creates a hidden window. Decorated windows get their margins from th.
func New(id ID, host Host, th theme.Theme, opts Options) *Window {
	w := &Window{
		id:      id,
		host:    host,
		title:   opts.Title,
		inner:   opts.Geometry.Canon(),
		minSize: opts.MinSize,
		modal:   opts.Modal,
		content: opts.Content,
		sink:    opts.Sink,
	}
	if opts.Decorated {
		w.margins = MarginsFor(th)
		w.decoration = NewDecoration(th, opts.Title, w.Outer().Size())
	}
	return w
}

// ID returns the window identifier
func (w *Window) ID() ID {
	return w.id
}

// Title returns the window title
func (w *Window) Title() string {
	return w.title
}

// Inner returns the content geometry in desktop coordinates
func (w *Window) Inner() image.Rectangle {
	return w.inner
}

// Outer returns the geometry including decoration margins
func (w *Window) Outer() image.Rectangle {
	return geom.Grow(w.inner, w.margins)
}

// Margins returns the decoration margins (zero when undecorated)
func (w *Window) Margins() geom.Margins {
	return w.margins
}

// MinSize returns the minimum inner size
func (w *Window) MinSize() image.Point {
	return w.minSize
}

// Visible reports whether the window is shown
func (w *Window) Visible() bool {
	return w.visible && w.state != StateMinimized
}

// Modal reports whether the window blocks focus changes
func (w *Window) Modal() bool {
	return w.modal
}

// State returns the sizing state
func (w *Window) State() State {
	return w.state
}

// RestoreGeometry returns the inner geometry saved before maximizing
func (w *Window) RestoreGeometry() image.Rectangle {
	return w.restore
}

// Monitor returns the index of the monitor the window was last placed on
func (w *Window) Monitor() int {
	return w.monitor
}

// SetMonitor records the monitor the window belongs to
func (w *Window) SetMonitor(index int) {
	w.monitor = index
}

// Decoration returns the decoration, or nil
func (w *Window) Decoration() *Decoration {
	return w.decoration
}

// Content returns the content provider
func (w *Window) Content() ContentProvider {
	return w.content
}

// Sink returns the input sink, or nil
func (w *Window) Sink() InputSink {
	return w.sink
}

// exposed returns the outer geometry if the window is visible
func (w *Window) exposed() geom.Region {
	if !w.Visible() {
		return geom.Region{}
	}
	return geom.NewRegion(w.Outer())
}

// SetGeometry moves/resizes the inner geometry, damaging old and new areas
func (w *Window) SetGeometry(inner image.Rectangle) {
	inner = inner.Canon()
	if inner == w.inner {
		return
	}
	damage := w.exposed()
	w.inner = inner
	if w.decoration != nil {
		w.decoration.SetSize(w.Outer().Size())
	}
	damage.AddRegion(w.exposed())
	w.push(damage)
}

// SetOuterGeometry sets the geometry in outer terms
func (w *Window) SetOuterGeometry(outer image.Rectangle) {
	w.SetGeometry(geom.Shrink(outer, w.margins))
}

// InnerFor converts an outer rectangle to the matching inner rectangle
func (w *Window) InnerFor(outer image.Rectangle) image.Rectangle {
	return geom.Shrink(outer, w.margins)
}

// SetVisible shows or hides the window
func (w *Window) SetVisible(visible bool) {
	if visible == w.visible {
		return
	}
	damage := w.exposed()
	w.visible = visible
	damage.AddRegion(w.exposed())
	w.push(damage)
}

// SetState changes the sizing state. For maximized/fullscreen the caller
// supplies the target inner geometry; restoring to normal reapplies the
// geometry saved when the window left the normal state.
func (w *Window) SetState(state State, target image.Rectangle) {
	if state == w.state && (target.Empty() || target == w.inner) {
		return
	}
	prev := w.state
	damage := w.exposed()

	if prev == StateNormal && state != StateNormal {
		w.restore = w.inner
	}
	w.state = state
	switch state {
	case StateNormal:
		if !w.restore.Empty() {
			w.inner = w.restore
		}
	case StateMaximized, StateFullScreen:
		if !target.Empty() {
			w.inner = target
		}
	}
	if w.decoration != nil {
		w.decoration.SetSize(w.Outer().Size())
	}
	damage.AddRegion(w.exposed())
	w.push(damage)
}

// SetTitle changes the title and repaints the decoration
func (w *Window) SetTitle(title string) {
	if title == w.title {
		return
	}
	w.title = title
	if w.decoration != nil {
		w.decoration.SetTitle(title)
		w.RepaintDecoration()
	}
}

// SetTheme restyles the decoration; margins follow the theme
func (w *Window) SetTheme(th theme.Theme) {
	if w.decoration == nil {
		return
	}
	damage := w.exposed()
	w.margins = MarginsFor(th)
	w.decoration.SetTheme(th)
	w.decoration.SetSize(w.Outer().Size())
	damage.AddRegion(w.exposed())
	w.push(damage)
}

// Repaint marks part of the content dirty; r is in inner-local coordinates.
// An empty r repaints the whole content area.
func (w *Window) Repaint(r image.Rectangle) {
	if r.Empty() {
		r = image.Rectangle{Max: w.inner.Size()}
	}
	w.push(geom.NewRegion(r.Add(w.inner.Min).Intersect(w.inner)).Intersect(w.Outer()))
}

// RepaintDecoration marks the decoration ring dirty
func (w *Window) RepaintDecoration() {
	if w.decoration == nil {
		return
	}
	ring := geom.NewRegion(w.Outer())
	ring.Subtract(w.inner)
	w.push(ring)
}

func (w *Window) push(damage geom.Region) {
	if w.host == nil || damage.Empty() {
		return
	}
	w.host.PushDirtyArea(damage)
}
