package window

import (
	"image"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/geom"
	"github.com/GriffinCanCode/rdesk/internal/theme"
)

// Widget identifies a decoration sub-widget
type Widget uint8

const (
	WidgetNone Widget = iota
	WidgetTitleLabel
	WidgetSpacer
	WidgetCloseButton
)

// String returns the widget name
func (w Widget) String() string {
	switch w {
	case WidgetTitleLabel:
		return "title"
	case WidgetSpacer:
		return "spacer"
	case WidgetCloseButton:
		return "close"
	default:
		return "none"
	}
}

// Grab identifies a decoration grab region
type Grab uint8

const (
	GrabNone Grab = iota
	GrabMove
	GrabTop
	GrabBottom
	GrabLeft
	GrabRight
	GrabTopLeft
	GrabTopRight
	GrabBottomLeft
	GrabBottomRight
)

// String returns the grab name
func (g Grab) String() string {
	return [...]string{"none", "move", "top", "bottom", "left", "right",
		"top-left", "top-right", "bottom-left", "bottom-right"}[g]
}

// Edges reports which sides a resize grab moves
func (g Grab) Edges() (left, top, right, bottom bool) {
	switch g {
	case GrabTop:
		top = true
	case GrabBottom:
		bottom = true
	case GrabLeft:
		left = true
	case GrabRight:
		right = true
	case GrabTopLeft:
		top, left = true, true
	case GrabTopRight:
		top, right = true, true
	case GrabBottomLeft:
		bottom, left = true, true
	case GrabBottomRight:
		bottom, right = true, true
	}
	return
}

// spacerWidth separates the title label from the close button
const spacerWidth = 4

// glyphWidth approximates one title character; labels are drawn as bars
const glyphWidth = 7

// Decoration draws the frame and title bar around a window and answers
// hit-tests in outer-local coordinates (0,0 is the outer top-left).
type Decoration struct {
	theme   theme.Theme
	title   string
	size    image.Point
	active  bool
	hovered Widget
	pressed Widget

	image *framebuffer.FrameBuffer
	stale bool
}

// NewDecoration creates a decoration for an outer size
func NewDecoration(th theme.Theme, title string, outer image.Point) *Decoration {
	return &Decoration{theme: th, title: title, size: outer, stale: true}
}

// Margins returns the decoration thickness per side
func (d *Decoration) Margins() geom.Margins {
	return MarginsFor(d.theme)
}

// MarginsFor returns the decoration thickness a theme produces
func MarginsFor(th theme.Theme) geom.Margins {
	b := th.BorderWidth
	return geom.Margins{Left: b, Top: b + th.TitleHeight, Right: b, Bottom: b}
}

// SetSize updates the outer size, invalidating the cached image
func (d *Decoration) SetSize(outer image.Point) {
	if outer != d.size {
		d.size = outer
		d.stale = true
	}
}

// SetTitle updates the title, invalidating the cached image
func (d *Decoration) SetTitle(title string) {
	if title != d.title {
		d.title = title
		d.stale = true
	}
}

// SetTheme swaps the theme, invalidating the cached image
func (d *Decoration) SetTheme(th theme.Theme) {
	d.theme = th
	d.stale = true
}

// SetActive switches between focused and unfocused colours
func (d *Decoration) SetActive(active bool) bool {
	if active == d.active {
		return false
	}
	d.active = active
	d.stale = true
	return true
}

// SetHovered records the widget under the pointer; returns true if it changed
func (d *Decoration) SetHovered(w Widget) bool {
	if w == d.hovered {
		return false
	}
	d.hovered = w
	d.stale = true
	return true
}

// Hovered returns the widget under the pointer
func (d *Decoration) Hovered() Widget {
	return d.hovered
}

// SetPressed records a pressed widget (close button arming)
func (d *Decoration) SetPressed(w Widget) {
	d.pressed = w
}

// Pressed returns the armed widget
func (d *Decoration) Pressed() Widget {
	return d.pressed
}

// TitleBar returns the title bar rectangle
func (d *Decoration) TitleBar() image.Rectangle {
	b := d.theme.BorderWidth
	return image.Rect(b, b, d.size.X-b, b+d.theme.TitleHeight)
}

// WidgetRects lays the widgets out left-to-right: label, spacer, close
func (d *Decoration) WidgetRects() map[Widget]image.Rectangle {
	bar := d.TitleBar()
	closeRect := image.Rect(bar.Max.X-bar.Dy(), bar.Min.Y, bar.Max.X, bar.Max.Y)
	spacer := image.Rect(closeRect.Min.X-spacerWidth, bar.Min.Y, closeRect.Min.X, bar.Max.Y)
	label := image.Rect(bar.Min.X, bar.Min.Y, spacer.Min.X, bar.Max.Y)
	return map[Widget]image.Rectangle{
		WidgetTitleLabel:  label.Canon().Intersect(bar),
		WidgetSpacer:      spacer.Canon().Intersect(bar),
		WidgetCloseButton: closeRect.Canon().Intersect(bar),
	}
}

// WidgetAt returns the sub-widget under p
func (d *Decoration) WidgetAt(p image.Point) Widget {
	for _, w := range []Widget{WidgetCloseButton, WidgetSpacer, WidgetTitleLabel} {
		if p.In(d.WidgetRects()[w]) {
			return w
		}
	}
	return WidgetNone
}

// GrabRegions returns the eight resize regions and the move region
func (d *Decoration) GrabRegions() map[Grab]image.Rectangle {
	w, h := d.size.X, d.size.Y
	b := d.theme.BorderWidth
	c := b + d.theme.TitleHeight/2 // corner extent along each edge

	bar := d.TitleBar()
	move := image.Rect(bar.Min.X, bar.Min.Y, d.WidgetRects()[WidgetSpacer].Min.X, bar.Max.Y)

	return map[Grab]image.Rectangle{
		GrabTopLeft:     image.Rect(0, 0, c, c),
		GrabTopRight:    image.Rect(w-c, 0, w, c),
		GrabBottomLeft:  image.Rect(0, h-c, c, h),
		GrabBottomRight: image.Rect(w-c, h-c, w, h),
		GrabTop:         image.Rect(c, 0, w-c, b),
		GrabBottom:      image.Rect(c, h-b, w-c, h),
		GrabLeft:        image.Rect(0, c, b, h-c),
		GrabRight:       image.Rect(w-b, c, w, h-c),
		GrabMove:        move,
	}
}

// GrabAt returns the grab region under p. Corners win over edges and
// edges over the move region.
func (d *Decoration) GrabAt(p image.Point) Grab {
	regions := d.GrabRegions()
	order := []Grab{
		GrabTopLeft, GrabTopRight, GrabBottomLeft, GrabBottomRight,
		GrabTop, GrabBottom, GrabLeft, GrabRight,
		GrabMove,
	}
	b := d.theme.BorderWidth
	interior := image.Rect(b, b, d.size.X-b, d.size.Y-b)
	for _, g := range order {
		if !p.In(regions[g]) {
			continue
		}
		// Resize grabs only live on the frame ring.
		if g != GrabMove && p.In(interior) {
			continue
		}
		return g
	}
	return GrabNone
}

// Image returns the rendered decoration, re-rendering if stale
func (d *Decoration) Image() *framebuffer.FrameBuffer {
	if d.stale || d.image == nil || d.image.Size() != d.size {
		d.render()
	}
	return d.image
}

func (d *Decoration) render() {
	if d.image == nil || d.image.Size() != d.size {
		d.image = framebuffer.MustNew(max(d.size.X, 0), max(d.size.Y, 0))
	}
	p := d.theme.Palette

	frame, bar := p.Frame, p.TitleBar
	if d.active {
		frame, bar = p.FrameActive, p.TitleBarActive
	}
	d.image.Fill(d.image.Bounds(), uint32(frame))
	d.image.Fill(d.TitleBar(), uint32(bar))

	rects := d.WidgetRects()
	label := rects[WidgetTitleLabel]
	pad := d.theme.TitleHeight / 3
	text := image.Rect(label.Min.X+pad, label.Min.Y+pad, label.Min.X+pad+len([]rune(d.title))*glyphWidth, label.Max.Y-pad)
	d.image.Fill(text.Intersect(label), uint32(p.TitleLabel))

	closeRect := rects[WidgetCloseButton]
	closeColor := p.CloseButton
	if d.hovered == WidgetCloseButton {
		closeColor = p.CloseButtonHover
	}
	d.image.Fill(closeRect, uint32(closeColor))
	inset := closeRect.Inset(closeRect.Dx() / 4)
	for i := 0; i < inset.Dx() && i < inset.Dy(); i++ {
		d.image.Set(inset.Min.X+i, inset.Min.Y+i, uint32(p.CloseGlyph))
		d.image.Set(inset.Max.X-1-i, inset.Min.Y+i, uint32(p.CloseGlyph))
	}

	d.stale = false
}
