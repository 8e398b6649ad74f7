package wm

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/rdesk/internal/compositor"
	"github.com/GriffinCanCode/rdesk/internal/cursor"
	"github.com/GriffinCanCode/rdesk/internal/display"
	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/geom"
	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/window"
)

type solid struct {
	fb *framebuffer.FrameBuffer
}

func newSolid(w, h int, argb uint32) *solid {
	fb := framebuffer.MustNew(w, h)
	fb.Fill(fb.Bounds(), argb)
	return &solid{fb: fb}
}

func (s *solid) Pixels() *framebuffer.FrameBuffer { return s.fb }

type recordingSink struct {
	events    []input.Event
	active    []bool
	closeReqs int
}

func (s *recordingSink) HandleInput(ev input.Event) { s.events = append(s.events, ev) }
func (s *recordingSink) Activated(active bool)     { s.active = append(s.active, active) }
func (s *recordingSink) CloseRequested()            { s.closeReqs++ }

func (s *recordingSink) pointerKinds() []input.PointerKind {
	var out []input.PointerKind
	for _, ev := range s.events {
		if ev.Pointer != nil {
			out = append(out, ev.Pointer.Kind)
		}
	}
	return out
}

type cursorRecorder struct {
	kinds []cursor.Kind
}

func (c *cursorRecorder) CursorChanged(shape *cursor.Shape) {
	c.kinds = append(c.kinds, shape.Kind)
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(Config{Width: 1024, Height: 768}, nil)
	require.NoError(t, err)
	// Drain the initial full-desktop frame.
	_, ok := m.Tick(true)
	require.True(t, ok)
	return m
}

func addPlain(m *Manager, r image.Rectangle, argb uint32) *window.Window {
	return m.AddWindow(window.Options{
		Geometry: r,
		Content:  newSolid(r.Dx(), r.Dy(), argb),
	})
}

func TestNewMarksDesktopDirty(t *testing.T) {
	m, err := New(Config{Width: 320, Height: 200}, nil)
	require.NoError(t, err)

	frame, ok := m.Tick(false)
	require.True(t, ok)
	assert.Equal(t, uint64(1), frame.Seq)
	assert.Equal(t, image.Rect(0, 0, 320, 200), frame.Dirty.Bounds())
	assert.True(t, frame.Tiles.Empty())

	_, ok = m.Tick(true)
	assert.False(t, ok, "nothing is dirty after a tick")
}

func TestNewRejectsInvalidDesktop(t *testing.T) {
	_, err := New(Config{Width: -1, Height: 10}, nil)
	assert.Error(t, err)
}

func TestStackOperations(t *testing.T) {
	m := newManager(t)
	a := addPlain(m, image.Rect(0, 0, 100, 100), 0xFFFF0000)
	b := addPlain(m, image.Rect(50, 50, 150, 150), 0xFF00FF00)

	assert.Equal(t, []*window.Window{b, a}, m.Windows())
	assert.Equal(t, a.ID()+1, b.ID())

	m.Raise(a)
	assert.Equal(t, []*window.Window{a, b}, m.Windows())
	m.Lower(a)
	assert.Equal(t, []*window.Window{b, a}, m.Windows())

	m.Tick(false)
	m.DropWindow(b)
	assert.Equal(t, []*window.Window{a}, m.Windows())
	assert.True(t, m.Pending().Covers(b.Outer()))

	m.DropWindow(b)
	assert.Len(t, m.Windows(), 1)
}

func TestRaiseThenWindowAt(t *testing.T) {
	m := newManager(t)
	a := addPlain(m, image.Rect(0, 0, 200, 200), 0xFFFF0000)
	b := addPlain(m, image.Rect(100, 100, 300, 300), 0xFF00FF00)
	c := addPlain(m, image.Rect(150, 0, 250, 50), 0xFF0000FF)

	assert.Equal(t, b, m.WindowAt(image.Pt(150, 150)))
	m.Raise(a)

	// Every point of a that was not under c (above a in the original order)
	// now hits a.
	for y := 0; y < 200; y += 10 {
		for x := 0; x < 200; x += 10 {
			p := image.Pt(x, y)
			if p.In(c.Outer()) {
				continue
			}
			require.Equal(t, a, m.WindowAt(p), "point %v", p)
		}
	}
	assert.Nil(t, m.WindowAt(image.Pt(900, 700)))
}

func TestHiddenWindowIsNotHit(t *testing.T) {
	m := newManager(t)
	a := addPlain(m, image.Rect(0, 0, 100, 100), 0xFFFF0000)
	a.SetVisible(false)
	assert.Nil(t, m.WindowAt(image.Pt(10, 10)))
}

func TestComposeFrontWindowWins(t *testing.T) {
	m := newManager(t)
	r := image.Rect(100, 100, 300, 300)
	addPlain(m, r, 0xFF00FF00)
	a := addPlain(m, r, 0xFFFF0000)
	require.Equal(t, a, m.Windows()[0])

	m.PushDirtyArea(geom.NewRegion(r))
	frame, ok := m.Tick(true)
	require.True(t, ok)

	for y := r.Min.Y; y < r.Max.Y; y += 7 {
		for x := r.Min.X; x < r.Max.X; x += 7 {
			require.Equal(t, uint32(0xFFFF0000), frame.Desktop.At(x, y))
		}
	}
	assert.Equal(t, uint32(m.Theme().Palette.Background), frame.Desktop.At(10, 10))
}

func TestRepaintScenarioTileCount(t *testing.T) {
	m := newManager(t)
	w := addPlain(m, image.Rect(128, 128, 428, 328), 0xFF3366CC)
	m.Tick(true)

	w.Content().(*solid).fb.Fill(image.Rect(0, 0, 300, 200), 0xFFCC6633)
	w.Repaint(image.Rectangle{})

	frame, ok := m.Tick(true)
	require.True(t, ok)
	assert.Equal(t, []image.Rectangle{w.Outer()}, frame.Dirty.Rects())

	tiles := geom.Tiles(w.Outer(), compositor.TileSize)
	assert.Len(t, tiles, 5*4)
	assert.Equal(t, len(tiles), frame.Tiles.Len())
	assert.Equal(t, geom.Area(w.Outer()), frame.Tiles.Area())
}

func TestDirtyIsClippedToMonitors(t *testing.T) {
	m := newManager(t)
	m.PushDirtyArea(geom.NewRegion(image.Rect(1000, 700, 2000, 2000)))
	frame, ok := m.Tick(false)
	require.True(t, ok)
	assert.Equal(t, image.Rect(1000, 700, 1024, 768), frame.Dirty.Bounds())

	m.PushDirtyArea(geom.NewRegion(image.Rect(2000, 2000, 2100, 2100)))
	_, ok = m.Tick(false)
	assert.False(t, ok)
}

func TestFocusAndModal(t *testing.T) {
	m := newManager(t)
	sa, sb := &recordingSink{}, &recordingSink{}
	a := m.AddWindow(window.Options{Geometry: image.Rect(0, 0, 100, 100), Sink: sa, Decorated: true})
	b := m.AddWindow(window.Options{Geometry: image.Rect(200, 200, 300, 300), Sink: sb, Modal: true})

	assert.True(t, m.SetFocusWindow(a))
	assert.Equal(t, a, m.Windows()[0])
	assert.Equal(t, []bool{true}, sa.active)

	assert.True(t, m.SetFocusWindow(b))
	assert.Equal(t, []bool{true, false}, sa.active)
	assert.Equal(t, []bool{true}, sb.active)

	assert.False(t, m.SetFocusWindow(a), "modal focus window keeps focus")
	assert.Equal(t, b, m.FocusWindow())
	assert.Equal(t, b, m.Windows()[0])
}

func TestHandleKeyGoesToFocus(t *testing.T) {
	m := newManager(t)
	s := &recordingSink{}
	w := m.AddWindow(window.Options{Geometry: image.Rect(0, 0, 100, 100), Sink: s})

	m.HandleKey(0x1E, 0)
	assert.Empty(t, s.events)

	m.SetFocusWindow(w)
	m.HandleKey(0x1E, 0)
	require.Len(t, s.events, 1)
	require.NotNil(t, s.events[0].Key)
	assert.Equal(t, "a", s.events[0].Key.Text)
}

func TestApplyLayoutIsIdempotent(t *testing.T) {
	m := newManager(t)
	layout := []display.Entry{
		{Rect: image.Rect(-100, 0, 700, 600), Primary: true},
		{Rect: image.Rect(700, 0, 1500, 600)},
	}

	plan, err := m.ApplyLayout(layout)
	require.NoError(t, err)
	assert.True(t, plan.BoundsChanged)
	assert.Equal(t, image.Rect(0, 0, 800, 600), m.Monitors()[0].Local)
	assert.Equal(t, image.Rect(800, 0, 1600, 600), m.Monitors()[1].Local)
	assert.Equal(t, image.Pt(1600, 600), m.Desktop().Size())
	assert.True(t, m.Pending().Covers(m.Desktop().Bounds()))

	frame, ok := m.Tick(true)
	require.True(t, ok)
	assert.Equal(t, frame.Dirty.Area(), frame.Tiles.Area(), "fresh shadows report everything")

	again, err := m.ApplyLayout(layout)
	require.NoError(t, err)
	assert.True(t, again.Empty())
	assert.True(t, m.Pending().Empty())
}

func TestApplyLayoutFollowsMaximizedWindows(t *testing.T) {
	m := newManager(t)
	w := m.AddWindow(window.Options{Geometry: image.Rect(10, 40, 200, 200), Decorated: true})
	m.SetWindowState(w, window.StateMaximized)
	assert.Equal(t, image.Rect(0, 0, 1024, 768), w.Outer())

	_, err := m.ApplyLayout([]display.Entry{{Rect: image.Rect(0, 0, 1280, 800)}})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1280, 800), w.Outer())

	m.SetWindowState(w, window.StateNormal)
	assert.Equal(t, image.Rect(10, 40, 200, 200), w.Inner())
}

func TestApplyLayoutPullsBackOrphans(t *testing.T) {
	m := newManager(t)
	_, err := m.ApplyLayout([]display.Entry{
		{Rect: image.Rect(0, 0, 800, 600)},
		{Rect: image.Rect(800, 0, 1600, 600)},
	})
	require.NoError(t, err)

	w := addPlain(m, image.Rect(1000, 100, 1100, 200), 0xFF000000)
	require.Equal(t, 1, w.Monitor())

	_, err = m.ApplyLayout([]display.Entry{{Rect: image.Rect(0, 0, 800, 600)}})
	require.NoError(t, err)
	assert.True(t, w.Outer().Overlaps(m.Monitors()[0].Local))
}

func TestCursorListener(t *testing.T) {
	m := newManager(t)
	rec := &cursorRecorder{}
	m.OnCursor(rec)
	w := m.AddWindow(window.Options{Geometry: image.Rect(100, 100, 400, 300), Decorated: true})

	right := image.Pt(w.Outer().Max.X-1, 200)
	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: right})
	m.HandlePointer(input.PointerEvent{Kind: input.PointerMove, Pos: image.Pt(200, 200)})

	assert.Equal(t, []cursor.Kind{cursor.KindResizeEW, cursor.KindDefault}, rec.kinds)
}
