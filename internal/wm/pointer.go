package wm

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/cursor"
	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/window"
)

// DragMode is the pointer routing state
type DragMode uint8

const (
	Idle DragMode = iota
	DraggingMove
	DraggingResize
)

// String returns the mode name
func (d DragMode) String() string {
	switch d {
	case DraggingMove:
		return "dragging-move"
	case DraggingResize:
		return "dragging-resize"
	default:
		return "idle"
	}
}

type pointerState struct {
	mode   DragMode
	edge   window.Grab
	target *window.Window
	last   image.Point

	// entered window and, independently, the decoration widget under the pointer
	entered       *window.Window
	widgetWindow  *window.Window
	widget        window.Widget
	pressedWindow *window.Window
}

func (p *pointerState) forget(w *window.Window) {
	if p.target == w {
		p.mode, p.edge, p.target = Idle, window.GrabNone, nil
	}
	if p.entered == w {
		p.entered = nil
	}
	if p.widgetWindow == w {
		p.widgetWindow, p.widget = nil, window.WidgetNone
	}
	if p.pressedWindow == w {
		p.pressedWindow = nil
	}
}

// DragMode returns the current pointer state and resize edge
func (m *Manager) DragMode() (DragMode, window.Grab) {
	return m.pointer.mode, m.pointer.edge
}

// HandlePointer routes a pointer event in desktop coordinates
func (m *Manager) HandlePointer(ev input.PointerEvent) {
	if m.pointer.mode != Idle {
		m.handleDrag(ev)
		return
	}

	w := m.WindowAt(ev.Pos)
	m.trackEnter(w, ev)
	m.trackWidget(w, ev.Pos)

	switch ev.Kind {
	case input.PointerPress:
		m.handlePress(w, ev)
	case input.PointerRelease:
		m.handleRelease(w, ev)
	case input.PointerMove, input.PointerWheel:
		m.updateShape(w, ev.Pos)
		m.route(w, ev)
	}
}

func (m *Manager) handlePress(w *window.Window, ev input.PointerEvent) {
	if w == nil {
		return
	}
	if !m.SetFocusWindow(w) {
		// A modal window elsewhere holds focus.
		return
	}
	if ev.Button == input.ButtonLeft && w.Decoration() != nil && !ev.Pos.In(w.Inner()) {
		d := w.Decoration()
		local := ev.Pos.Sub(w.Outer().Min)
		if d.WidgetAt(local) == window.WidgetCloseButton {
			d.SetPressed(window.WidgetCloseButton)
			m.pointer.pressedWindow = w
			return
		}
		if g := d.GrabAt(local); g != window.GrabNone {
			m.beginDrag(w, g, ev.Pos)
			return
		}
	}
	m.route(w, ev)
}

func (m *Manager) handleRelease(w *window.Window, ev input.PointerEvent) {
	if pw := m.pointer.pressedWindow; pw != nil && ev.Button == input.ButtonLeft {
		m.pointer.pressedWindow = nil
		d := pw.Decoration()
		armed := d != nil && d.Pressed() == window.WidgetCloseButton
		if d != nil {
			d.SetPressed(window.WidgetNone)
		}
		if armed && w == pw && d.WidgetAt(ev.Pos.Sub(pw.Outer().Min)) == window.WidgetCloseButton {
			if s := pw.Sink(); s != nil {
				s.CloseRequested()
			}
		}
		return
	}
	m.route(w, ev)
}

// route delivers the event to the window content when the pointer is inside it
func (m *Manager) route(w *window.Window, ev input.PointerEvent) {
	if w == nil || w.Sink() == nil || !ev.Pos.In(w.Inner()) {
		return
	}
	local := ev.Local(w.Inner().Min)
	w.Sink().HandleInput(input.Event{Pointer: &local})
}

func (m *Manager) trackEnter(w *window.Window, ev input.PointerEvent) {
	if w == m.pointer.entered {
		return
	}
	if prev := m.pointer.entered; prev != nil && prev.Sink() != nil {
		leave := input.PointerEvent{Kind: input.PointerLeave, Pos: ev.Pos, Buttons: ev.Buttons}.Local(prev.Inner().Min)
		prev.Sink().HandleInput(input.Event{Pointer: &leave})
	}
	m.pointer.entered = w
	if w != nil && w.Sink() != nil {
		enter := input.PointerEvent{Kind: input.PointerEnter, Pos: ev.Pos, Buttons: ev.Buttons}.Local(w.Inner().Min)
		w.Sink().HandleInput(input.Event{Pointer: &enter})
	}
}

func (m *Manager) trackWidget(w *window.Window, p image.Point) {
	widget := window.WidgetNone
	if w != nil && w.Decoration() != nil && !p.In(w.Inner()) {
		widget = w.Decoration().WidgetAt(p.Sub(w.Outer().Min))
	}
	if widget == window.WidgetNone {
		w = nil
	}
	if w == m.pointer.widgetWindow && widget == m.pointer.widget {
		return
	}

	if prev := m.pointer.widgetWindow; prev != nil {
		if prev.Decoration().SetHovered(window.WidgetNone) {
			prev.RepaintDecoration()
		}
	}
	m.pointer.widgetWindow, m.pointer.widget = w, widget
	if w != nil && w.Decoration().SetHovered(widget) {
		w.RepaintDecoration()
	}
}

func (m *Manager) beginDrag(w *window.Window, g window.Grab, p image.Point) {
	m.pointer.mode = DraggingResize
	if g == window.GrabMove {
		m.pointer.mode = DraggingMove
	}
	m.pointer.edge = g
	m.pointer.target = w
	m.pointer.last = p
	m.setShape(shapeFor(g))
}

func (m *Manager) endDrag() {
	m.pointer.mode = Idle
	m.pointer.edge = window.GrabNone
	m.pointer.target = nil
	m.setShape(cursor.KindDefault)
}

// handleDrag applies pointer deltas to the target window. Content routing
// and enter/leave tracking are suspended until the drag ends.
func (m *Manager) handleDrag(ev input.PointerEvent) {
	released := ev.Kind == input.PointerRelease && ev.Button == input.ButtonLeft
	if released || ev.Buttons&input.ButtonLeft == 0 {
		m.endDrag()
		m.updateShape(m.WindowAt(ev.Pos), ev.Pos)
		return
	}
	if ev.Kind != input.PointerMove {
		return
	}

	w := m.pointer.target
	delta := ev.Pos.Sub(m.pointer.last)
	if delta == (image.Point{}) {
		return
	}
	outer := w.Outer()
	if m.pointer.mode == DraggingMove {
		outer = outer.Add(delta)
	} else {
		outer = resize(outer, m.pointer.edge, delta)
	}

	if err := m.validate(w, outer); err != nil {
		m.log.Debug("Drag rejected",
			zap.Uint32("window", uint32(w.ID())),
			zap.Stringer("mode", m.pointer.mode),
			zap.Error(err))
		return
	}
	w.SetOuterGeometry(outer)
	m.pointer.last = ev.Pos
}

func resize(r image.Rectangle, g window.Grab, d image.Point) image.Rectangle {
	left, top, right, bottom := g.Edges()
	if left {
		r.Min.X += d.X
	}
	if right {
		r.Max.X += d.X
	}
	if top {
		r.Min.Y += d.Y
	}
	if bottom {
		r.Max.Y += d.Y
	}
	return r
}

// validate checks a proposed outer geometry: the inner size must respect
// the window minimum and the window must stay on some monitor.
func (m *Manager) validate(w *window.Window, outer image.Rectangle) error {
	inner := w.InnerFor(outer)
	minSize := w.MinSize()
	if inner.Dx() < max(minSize.X, 1) || inner.Dy() < max(minSize.Y, 1) {
		return fmt.Errorf("%w: inner size %v below minimum %v", ErrGeometryRejected, inner.Size(), minSize)
	}
	if err := framebuffer.CheckSize(outer.Dx(), outer.Dy()); err != nil {
		return fmt.Errorf("%w: %w", ErrGeometryRejected, err)
	}
	for _, mon := range m.monitors {
		if outer.Overlaps(mon.Local) {
			return nil
		}
	}
	return fmt.Errorf("%w: %v is off every monitor", ErrGeometryRejected, outer)
}

func (m *Manager) updateShape(w *window.Window, p image.Point) {
	kind := cursor.KindDefault
	if w != nil && w.Decoration() != nil && !p.In(w.Inner()) {
		kind = shapeFor(w.Decoration().GrabAt(p.Sub(w.Outer().Min)))
	}
	m.setShape(kind)
}

func (m *Manager) setShape(kind cursor.Kind) {
	if kind == m.shape {
		return
	}
	m.shape = kind
	shape := m.cursors.Shape(kind)
	for _, l := range m.cursorListeners {
		l.CursorChanged(shape)
	}
}

func shapeFor(g window.Grab) cursor.Kind {
	switch g {
	case window.GrabMove:
		return cursor.KindMove
	case window.GrabTop, window.GrabBottom:
		return cursor.KindResizeNS
	case window.GrabLeft, window.GrabRight:
		return cursor.KindResizeEW
	case window.GrabTopLeft, window.GrabBottomRight:
		return cursor.KindResizeNWSE
	case window.GrabTopRight, window.GrabBottomLeft:
		return cursor.KindResizeNESW
	default:
		return cursor.KindDefault
	}
}
