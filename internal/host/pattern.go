package host

import (
	"image"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/window"
	"github.com/GriffinCanCode/rdesk/internal/wm"
)

var bars = []uint32{
	0xFFC0C0C0, 0xFFC0C000, 0xFF00C0C0, 0xFF00C000,
	0xFFC000C0, 0xFFC00000, 0xFF0000C0, 0xFF101010,
}

const (
	blockSize  = 32
	blockColor = 0xFFFFFFFF
	blockStep  = 4
)

// pattern is an animated colour-bar window. A white block sweeps across
// the bars so every frame carries a little damage.
type pattern struct {
	desktop *wm.Manager
	win     *window.Window
	fb      *framebuffer.FrameBuffer
	block   image.Rectangle
	dx      int
	paused  bool
	closed  bool
}

// openPattern places the pattern window in the middle of area
func openPattern(m *wm.Manager, area image.Rectangle) *pattern {
	size := image.Pt(max(area.Dx()/2, blockSize*2), max(area.Dy()/2, blockSize*2))
	origin := area.Min.Add(area.Size().Sub(size).Div(2))
	p := &pattern{desktop: m, dx: blockStep}
	p.win = m.AddWindow(window.Options{
		Title:     "Test pattern",
		Geometry:  image.Rectangle{Min: origin, Max: origin.Add(size)},
		MinSize:   image.Pt(blockSize*2, blockSize*2),
		Decorated: true,
		Content:   p,
		Sink:      p,
	})
	p.redraw()
	m.SetFocusWindow(p.win)
	return p
}

// Pixels implements window.ContentProvider
func (p *pattern) Pixels() *framebuffer.FrameBuffer {
	return p.fb
}

// redraw reallocates the buffer for the current inner size
func (p *pattern) redraw() {
	size := p.win.Inner().Size()
	p.fb = framebuffer.MustNew(size.X, size.Y)
	p.paintBars(p.fb.Bounds())
	y := (size.Y - blockSize) / 2
	p.block = image.Rect(0, y, blockSize, y+blockSize).Intersect(p.fb.Bounds())
	p.fb.Fill(p.block, blockColor)
	p.win.Repaint(image.Rectangle{})
}

func (p *pattern) paintBars(r image.Rectangle) {
	w := p.fb.Bounds().Dx()
	for i, c := range bars {
		x0, x1 := i*w/len(bars), (i+1)*w/len(bars)
		p.fb.Fill(image.Rect(x0, 0, x1, p.fb.Bounds().Dy()).Intersect(r), c)
	}
}

// step moves the block one notch, bouncing off the edges
func (p *pattern) step() {
	if p.closed || !p.win.Visible() {
		return
	}
	if p.fb == nil || p.fb.Size() != p.win.Inner().Size() {
		p.redraw()
		return
	}
	if p.paused {
		return
	}
	next := p.block.Add(image.Pt(p.dx, 0))
	if next.Min.X < 0 || next.Max.X > p.fb.Bounds().Dx() {
		p.dx = -p.dx
		next = p.block.Add(image.Pt(p.dx, 0))
	}
	next = next.Intersect(p.fb.Bounds())
	prev := p.block
	p.paintBars(prev)
	p.fb.Fill(next, blockColor)
	p.block = next
	p.win.Repaint(prev.Union(next))
}

// HandleInput implements window.InputSink: a click pauses or resumes
func (p *pattern) HandleInput(ev input.Event) {
	if ev.Pointer != nil && ev.Pointer.Kind == input.PointerPress {
		p.paused = !p.paused
	}
}

// Activated implements window.InputSink
func (p *pattern) Activated(bool) {}

// CloseRequested implements window.InputSink
func (p *pattern) CloseRequested() {
	p.closed = true
	p.win.SetVisible(false)
	p.desktop.DropWindow(p.win)
}
