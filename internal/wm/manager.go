package wm

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/compositor"
	"github.com/GriffinCanCode/rdesk/internal/cursor"
	"github.com/GriffinCanCode/rdesk/internal/display"
	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/geom"
	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/theme"
	"github.com/GriffinCanCode/rdesk/internal/window"
)

// ErrGeometryRejected is returned by the geometry validator. It never
// reaches viewers; the window keeps its last valid geometry.
var ErrGeometryRejected = errors.New("geometry rejected")

// Config configures a Manager
type Config struct {
	Width      int
	Height     int
	Theme      theme.Theme
	Translator input.Translator
	Cursors    cursor.Provider
	TileSize   int
}

// CursorListener is notified when the pointer shape changes
type CursorListener interface {
	CursorChanged(shape *cursor.Shape)
}

// MonitorListener is notified after a layout change was applied
type MonitorListener interface {
	MonitorsChanged(plan display.Plan)
}

// Frame is the output of one frame tick
type Frame struct {
	Seq uint64
	// Dirty is the composed region, clipped to the monitors
	Dirty geom.Region
	// Tiles is the compositor-reduced region; empty unless tiles were requested
	Tiles    geom.Region
	Desktop  *framebuffer.FrameBuffer
	Monitors []display.Monitor
}

// Manager owns the window stack, the desktop image and the compositor
type Manager struct {
	log        *zap.Logger
	theme      theme.Theme
	translator input.Translator
	cursors    cursor.Provider

	desktop    *framebuffer.FrameBuffer
	compositor *compositor.Compositor
	monitors   []display.Monitor

	stack   []*window.Window
	nextID  window.ID
	pending geom.Region
	seq     uint64
	focus   *window.Window

	pointer pointerState
	shape   cursor.Kind

	cursorListeners  []CursorListener
	monitorListeners []MonitorListener
}

// New creates a Manager with a single monitor of the configured size.
// Failing to allocate the desktop is the only fatal error.
func New(cfg Config, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Theme.Name == "" {
		cfg.Theme = theme.Default()
	}
	if cfg.Translator == nil {
		cfg.Translator = input.NewUSTranslator()
	}
	if cfg.Cursors == nil {
		cfg.Cursors = cursor.NewBuiltin()
	}

	desktop, err := framebuffer.New(cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("allocate desktop: %w", err)
	}
	m := &Manager{
		log:        log.Named("wm"),
		theme:      cfg.Theme,
		translator: cfg.Translator,
		cursors:    cfg.Cursors,
		desktop:    desktop,
		compositor: compositor.NewWithTileSize(cfg.TileSize),
		monitors:   display.Single(cfg.Width, cfg.Height),
		nextID:     1,
	}
	if err := m.compositor.ResizeMonitor(0, m.monitors[0].Local); err != nil {
		return nil, fmt.Errorf("allocate shadow: %w", err)
	}
	m.desktop.Fill(m.desktop.Bounds(), uint32(m.theme.Palette.Background))
	m.pending.Add(m.desktop.Bounds())
	return m, nil
}

// OnCursor registers a cursor listener
func (m *Manager) OnCursor(l CursorListener) {
	m.cursorListeners = append(m.cursorListeners, l)
}

// OnMonitors registers a monitor listener
func (m *Manager) OnMonitors(l MonitorListener) {
	m.monitorListeners = append(m.monitorListeners, l)
}

// Desktop returns the composed desktop image
func (m *Manager) Desktop() *framebuffer.FrameBuffer {
	return m.desktop
}

// Monitors returns a copy of the monitor set
func (m *Manager) Monitors() []display.Monitor {
	return slices.Clone(m.monitors)
}

// Theme returns the decoration theme
func (m *Manager) Theme() theme.Theme {
	return m.theme
}

// Cursor returns the current pointer shape
func (m *Manager) Cursor() *cursor.Shape {
	return m.cursors.Shape(m.shape)
}

// Windows returns the stack, front first
func (m *Manager) Windows() []*window.Window {
	return slices.Clone(m.stack)
}

// Window returns the window with the given id
func (m *Manager) Window(id window.ID) (*window.Window, bool) {
	for _, w := range m.stack {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// FocusWindow returns the focused window, or nil
func (m *Manager) FocusWindow() *window.Window {
	return m.focus
}

// PushDirtyArea accumulates region into the pending dirty region
func (m *Manager) PushDirtyArea(region geom.Region) {
	m.pending.AddRegion(region)
}

// Pending returns a copy of the pending dirty region
func (m *Manager) Pending() geom.Region {
	return m.pending.Clone()
}

// Invalidate marks the whole desktop dirty
func (m *Manager) Invalidate() {
	m.pending.Add(m.desktop.Bounds())
}

// AddWindow creates a window, puts it on top of the stack and shows it
func (m *Manager) AddWindow(opts window.Options) *window.Window {
	w := window.New(m.nextID, m, m.theme, opts)
	m.nextID++
	w.SetMonitor(max(display.Nearest(m.monitors, w.Outer()), 0))
	m.stack = slices.Insert(m.stack, 0, w)
	w.SetVisible(true)
	m.log.Debug("Window added", zap.Uint32("window", uint32(w.ID())), zap.String("title", w.Title()))
	return w
}

// DropWindow removes a window from the stack
func (m *Manager) DropWindow(w *window.Window) {
	i := slices.Index(m.stack, w)
	if i < 0 {
		return
	}
	if w.Visible() {
		m.pending.Add(w.Outer())
	}
	m.stack = slices.Delete(m.stack, i, i+1)

	if m.focus == w {
		m.focus = nil
	}
	m.pointer.forget(w)
	m.log.Debug("Window dropped", zap.Uint32("window", uint32(w.ID())))
}

// Raise moves a window to the front
func (m *Manager) Raise(w *window.Window) {
	m.restack(w, 0)
}

// Lower moves a window to the back
func (m *Manager) Lower(w *window.Window) {
	m.restack(w, len(m.stack)-1)
}

func (m *Manager) restack(w *window.Window, to int) {
	i := slices.Index(m.stack, w)
	if i < 0 || i == to {
		return
	}
	m.stack = slices.Delete(m.stack, i, i+1)
	m.stack = slices.Insert(m.stack, to, w)
	if w.Visible() {
		m.pending.Add(w.Outer())
	}
}

// WindowAt returns the topmost visible window whose outer geometry contains p
func (m *Manager) WindowAt(p image.Point) *window.Window {
	for _, w := range m.stack {
		if w.Visible() && p.In(w.Outer()) {
			return w
		}
	}
	return nil
}

// SetFocusWindow raises w and makes it the focus window. A modal focus
// window keeps focus against any other candidate; it returns false then.
func (m *Manager) SetFocusWindow(w *window.Window) bool {
	if w == m.focus {
		if w != nil {
			m.Raise(w)
		}
		return true
	}
	if m.focus != nil && m.focus.Modal() && w != m.focus {
		return false
	}

	prev := m.focus
	m.focus = w
	if prev != nil {
		activate(prev, false)
	}
	if w != nil {
		m.Raise(w)
		activate(w, true)
	}
	return true
}

func activate(w *window.Window, active bool) {
	if d := w.Decoration(); d != nil && d.SetActive(active) {
		w.RepaintDecoration()
	}
	if s := w.Sink(); s != nil {
		s.Activated(active)
	}
}

// HandleKey translates a raw scan code and routes it to the focus window
func (m *Manager) HandleKey(scanCode uint16, flags input.KeyFlags) {
	ev := m.translator.Translate(scanCode, flags)
	if m.focus == nil || m.focus.Sink() == nil {
		return
	}
	m.focus.Sink().HandleInput(input.Event{Key: &ev})
}

// Tick composes the pending dirty region. With needTiles the compositor
// reduces it to changed tiles; otherwise the shadows are only synced.
// It reports false when nothing was dirty.
func (m *Manager) Tick(needTiles bool) (Frame, bool) {
	if m.pending.Empty() {
		return Frame{}, false
	}
	var dirty geom.Region
	for _, mon := range m.monitors {
		dirty.AddRegion(m.pending.Intersect(mon.Local))
	}
	m.pending.Clear()
	if dirty.Empty() {
		return Frame{}, false
	}

	m.compose(dirty)
	m.seq++
	frame := Frame{
		Seq:      m.seq,
		Dirty:    dirty,
		Desktop:  m.desktop,
		Monitors: m.Monitors(),
	}
	if needTiles {
		frame.Tiles = m.compositor.Reduce(dirty, m.desktop)
	} else {
		m.compositor.Sync(dirty, m.desktop)
	}
	return frame, true
}

// compose paints dirty front to back: decoration, then content, then
// background for whatever no window covers.
func (m *Manager) compose(dirty geom.Region) {
	todo := dirty.Clone()
	bg := uint32(m.theme.Palette.Background)

	for _, w := range m.stack {
		if todo.Empty() {
			break
		}
		if !w.Visible() {
			continue
		}
		outer, inner := w.Outer(), w.Inner()
		if !todo.Bounds().Overlaps(outer) {
			continue
		}

		if d := w.Decoration(); d != nil {
			img := d.Image()
			ring := geom.NewRegion(outer)
			ring.Subtract(inner)
			for _, band := range ring.Rects() {
				for _, r := range todo.Intersect(band).Rects() {
					m.desktop.Blit(r.Min, img, r.Sub(outer.Min))
				}
				todo.Subtract(band)
			}
		}

		var pix *framebuffer.FrameBuffer
		if c := w.Content(); c != nil {
			pix = c.Pixels()
		}
		for _, r := range todo.Intersect(inner).Rects() {
			src := r.Sub(inner.Min)
			if pix == nil || !src.In(pix.Bounds()) {
				m.desktop.Fill(r, bg)
			}
			if pix != nil {
				m.desktop.Blit(r.Min, pix, src)
			}
		}
		todo.Subtract(inner)
	}

	for _, r := range todo.Rects() {
		m.desktop.Fill(r, bg)
	}
}
