package wm

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/window"
)

func press(p image.Point) input.PointerEvent {
	return input.PointerEvent{Kind: input.PointerPress, Pos: p, Button: input.ButtonLeft, Buttons: input.ButtonLeft}
}

func drag(p image.Point) input.PointerEvent {
	return input.PointerEvent{Kind: input.PointerMove, Pos: p, Buttons: input.ButtonLeft}
}

func release(p image.Point) input.PointerEvent {
	return input.PointerEvent{Kind: input.PointerRelease, Pos: p, Button: input.ButtonLeft}
}

func decorated(m *Manager, sink window.InputSink) *window.Window {
	return m.AddWindow(window.Options{
		Title:     "drag me",
		Geometry:  image.Rect(100, 100, 400, 300),
		MinSize:   image.Pt(100, 80),
		Decorated: true,
		Sink:      sink,
	})
}

func titleBarPoint(w *window.Window) image.Point {
	o := w.Outer()
	return image.Pt(o.Min.X+20, o.Min.Y+w.Margins().Top/2+2)
}

func TestDragMove(t *testing.T) {
	m := newManager(t)
	s := &recordingSink{}
	w := decorated(m, s)
	start := titleBarPoint(w)
	inner := w.Inner()

	m.HandlePointer(press(start))
	mode, _ := m.DragMode()
	require.Equal(t, DraggingMove, mode)

	m.HandlePointer(drag(start.Add(image.Pt(30, 20))))
	assert.Equal(t, inner.Add(image.Pt(30, 20)), w.Inner())

	m.HandlePointer(release(start.Add(image.Pt(30, 20))))
	mode, _ = m.DragMode()
	assert.Equal(t, Idle, mode)
	assert.NotContains(t, s.pointerKinds(), input.PointerPress, "drag presses never reach content")
}

func TestDragResizeBelowMinimumIsRejected(t *testing.T) {
	m := newManager(t)
	w := decorated(m, nil)
	o := w.Outer()
	edge := image.Pt(o.Max.X-1, (o.Min.Y+o.Max.Y)/2)

	m.HandlePointer(press(edge))
	mode, grab := m.DragMode()
	require.Equal(t, DraggingResize, mode)
	require.Equal(t, window.GrabRight, grab)

	before := w.Inner()
	m.HandlePointer(drag(edge.Sub(image.Pt(250, 0))))
	assert.Equal(t, before, w.Inner())

	m.HandlePointer(drag(edge.Sub(image.Pt(50, 0))))
	assert.Equal(t, before.Dx()-50, w.Inner().Dx())
}

func TestDragOffScreenIsRejected(t *testing.T) {
	m := newManager(t)
	w := decorated(m, nil)
	start := titleBarPoint(w)
	before := w.Inner()

	m.HandlePointer(press(start))
	m.HandlePointer(drag(start.Add(image.Pt(5000, 5000))))
	assert.Equal(t, before, w.Inner())
}

func TestDragResizePastFrameBufferLimitIsRejected(t *testing.T) {
	m := newManager(t)
	w := decorated(m, nil)
	o := w.Outer()
	edge := image.Pt(o.Max.X-1, (o.Min.Y+o.Max.Y)/2)
	before := w.Inner()

	m.HandlePointer(press(edge))
	m.HandlePointer(drag(edge.Add(image.Pt(1<<30, 0))))
	assert.Equal(t, before, w.Inner())
}

func TestLosingPrimaryButtonEndsDrag(t *testing.T) {
	m := newManager(t)
	w := decorated(m, nil)
	start := titleBarPoint(w)

	m.HandlePointer(press(start))
	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: start.Add(image.Pt(10, 0))})
	mode, _ := m.DragMode()
	assert.Equal(t, Idle, mode)
}

func TestEnterLeaveFireOnce(t *testing.T) {
	m := newManager(t)
	s := &recordingSink{}
	m.AddWindow(window.Options{Geometry: image.Rect(0, 0, 100, 100), Sink: s})

	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: image.Pt(10, 10)})
	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: image.Pt(20, 20)})
	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: image.Pt(500, 500)})
	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: image.Pt(600, 500)})

	assert.Equal(t, []input.PointerKind{
		input.PointerEnter, input.PointerMove, input.PointerMove, input.PointerLeave,
	}, s.pointerKinds())
}

func TestContentEventsAreWindowLocal(t *testing.T) {
	m := newManager(t)
	s := &recordingSink{}
	m.AddWindow(window.Options{Geometry: image.Rect(100, 100, 200, 200), Sink: s})

	m.HandlePointer(press(image.Pt(110, 120)))
	last := s.events[len(s.events)-1].Pointer
	require.NotNil(t, last)
	assert.Equal(t, input.PointerPress, last.Kind)
	assert.Equal(t, image.Pt(10, 20), last.Pos)
}

func TestWidgetHoverTracksCloseButton(t *testing.T) {
	m := newManager(t)
	w := decorated(m, nil)
	d := w.Decoration()
	closeAt := d.WidgetRects()[window.WidgetCloseButton].Min.Add(w.Outer().Min).Add(image.Pt(2, 2))

	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: closeAt})
	assert.Equal(t, window.WidgetCloseButton, d.Hovered())

	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: image.Pt(900, 700)})
	assert.Equal(t, window.WidgetNone, d.Hovered())
}

func TestCloseButtonClick(t *testing.T) {
	m := newManager(t)
	s := &recordingSink{}
	w := decorated(m, s)
	closeAt := w.Decoration().WidgetRects()[window.WidgetCloseButton].Min.Add(w.Outer().Min).Add(image.Pt(2, 2))

	m.HandlePointer(press(closeAt))
	m.HandlePointer(release(closeAt))
	assert.Equal(t, 1, s.closeReqs)

	// Releasing elsewhere disarms the button.
	m.HandlePointer(press(closeAt))
	m.HandlePointer(release(image.Pt(900, 700)))
	assert.Equal(t, 1, s.closeReqs)
}
