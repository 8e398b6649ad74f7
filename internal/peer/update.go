package peer

import (
	"errors"
	"image"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/compositor"
	"github.com/GriffinCanCode/rdesk/internal/cursor"
	"github.com/GriffinCanCode/rdesk/internal/display"
	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/geom"
	"github.com/GriffinCanCode/rdesk/internal/protocol"
	"github.com/GriffinCanCode/rdesk/internal/wm"
)

// NeedsTiles reports whether the session consumes compositor-reduced tiles
func (s *Session) NeedsTiles() bool {
	return s.state != StateClosed && s.mode != AcceleratedGraphics
}

// Repaint accumulates one frame's damage and sends what it can. Raw and
// surface sessions take the tile-reduced region; accelerated sessions take
// the full dirty region since the viewer tracks damage itself.
func (s *Session) Repaint(frame wm.Frame) {
	if s.state != StateActive {
		return
	}
	if s.mode == AcceleratedGraphics {
		s.pending.AddRegion(frame.Dirty)
	} else {
		s.pending.AddRegion(frame.Tiles)
	}
	s.Flush()
}

// throttled reports whether the unacknowledged frame window is full
func (s *Session) throttled() bool {
	return s.mode == AcceleratedGraphics && !s.ackDisabled &&
		s.cfg.MaxOutstandingFrames > 0 && s.outstanding >= s.cfg.MaxOutstandingFrames
}

// Flush sends the pending region unless the session is suspended,
// throttled or backpressured, in which case the region is kept.
func (s *Session) Flush() {
	if s.state != StateActive || s.suspend != 0 || s.throttled() {
		return
	}
	if s.firstFrame {
		s.pending = s.screen()
	}
	if s.pending.Empty() {
		return
	}

	var err error
	switch s.mode {
	case RawUpdates:
		err = s.sendRaw()
	case SurfaceUpdates:
		err = s.sendSurface()
	case AcceleratedGraphics:
		err = s.sendGraphics()
	}
	switch {
	case err == nil:
		s.pending.Clear()
		s.firstFrame = false
	case errors.Is(err, ErrBackpressure):
		s.log.Debug("Viewer backpressured, keeping damage", zap.Int("pending_rects", s.pending.Len()))
	}
}

// screen is the union of all monitor geometries
func (s *Session) screen() geom.Region {
	var r geom.Region
	for _, m := range s.desktop.Monitors() {
		r.Add(m.Local)
	}
	return r
}

// encode turns one desktop rectangle into a wire tile. Failed tiles are
// skipped and reported.
func (s *Session) encode(fb *framebuffer.FrameBuffer, r image.Rectangle, at image.Rectangle) (protocol.Tile, bool) {
	scheme, data, err := s.encoder.Encode(fb.Copy(r))
	if err != nil {
		s.observer.EncodeFailed(scheme)
		s.log.Warn("Tile encode failed", zap.Stringer("scheme", scheme), zap.Stringer("rect", r), zap.Error(err))
		return protocol.Tile{}, false
	}
	return protocol.Tile{Rect: protocol.RectOf(at), Scheme: scheme.String(), Data: data}, true
}

// bandRows is the row count that keeps one band of width w within the
// viewer's request size
func (s *Session) bandRows(w int) int {
	return max(1, s.maxRequest/max(1, w*framebuffer.BytesPerPixel))
}

// sendRaw emits bitmap updates of at most 64x64 tiles, batched so each
// update stays within the request size
func (s *Session) sendRaw() error {
	fb := s.desktop.Desktop()
	var (
		batches []protocol.Message
		batch   protocol.BitmapUpdate
		size    int
		rects   int
		bytes   int
	)
	for _, r := range s.pending.Rects() {
		for _, t := range geom.Tiles(r, compositor.TileSize) {
			tile, ok := s.encode(fb, t, t)
			if !ok {
				continue
			}
			if len(batch.Tiles) > 0 && size+len(tile.Data) > s.maxRequest {
				batches = append(batches, batch)
				batch, size = protocol.BitmapUpdate{}, 0
			}
			batch.Tiles = append(batch.Tiles, tile)
			size += len(tile.Data)
			rects++
			bytes += len(tile.Data)
		}
	}
	if len(batch.Tiles) > 0 {
		batches = append(batches, batch)
	}
	if len(batches) == 0 {
		return nil
	}
	if err := s.send(protocol.ChannelMain, batches...); err != nil {
		return err
	}
	s.observer.FrameSent(RawUpdates, rects, bytes)
	return nil
}

// sendSurface brackets banded surface bits with frame markers
func (s *Session) sendSurface() error {
	fb := s.desktop.Desktop()
	frameID := s.frameID + 1
	msgs := []protocol.Message{protocol.FrameMarker{Action: protocol.FrameBegin, FrameID: frameID}}
	bytes := 0
	for _, r := range s.pending.Rects() {
		for _, band := range geom.Bands(r, s.bandRows(r.Dx())) {
			tile, ok := s.encode(fb, band, band)
			if !ok {
				continue
			}
			msgs = append(msgs, protocol.SurfaceBits{Tile: tile})
			bytes += len(tile.Data)
		}
	}
	msgs = append(msgs, protocol.FrameMarker{Action: protocol.FrameEnd, FrameID: frameID})
	if err := s.send(protocol.ChannelMain, msgs...); err != nil {
		return err
	}
	s.frameID = frameID
	s.observer.FrameSent(SurfaceUpdates, len(msgs)-2, bytes)
	return nil
}

// planSurfaces works out the surface changes the current monitors need.
// Nothing is committed until the frame is sent.
func (s *Session) planSurfaces(monitors []display.Monitor) (next map[int]surface, msgs []protocol.Message, fresh []int, nextID uint16) {
	next = make(map[int]surface, len(monitors))
	nextID = s.nextSurface
	present := make(map[int]bool, len(monitors))
	for _, m := range monitors {
		present[m.Index] = true
	}
	for idx, sf := range s.surfaces {
		if !present[idx] {
			msgs = append(msgs, protocol.DeleteSurface{SurfaceID: sf.id})
		}
	}
	for _, m := range monitors {
		old, ok := s.surfaces[m.Index]
		if ok && old.rect == m.Local {
			next[m.Index] = old
			continue
		}
		if ok {
			msgs = append(msgs, protocol.DeleteSurface{SurfaceID: old.id})
		}
		sf := surface{id: nextID, rect: m.Local}
		nextID++
		next[m.Index] = sf
		fresh = append(fresh, m.Index)
		msgs = append(msgs,
			protocol.CreateSurface{SurfaceID: sf.id, Width: m.Local.Dx(), Height: m.Local.Dy()},
			protocol.MapSurface{SurfaceID: sf.id, X: m.Remote.Min.X, Y: m.Remote.Min.Y},
		)
	}
	return next, msgs, fresh, nextID
}

// sendGraphics emits one accelerated frame. Each monitor gets its own
// surface, recreated when its geometry changes, and commands are in
// monitor-local coordinates.
func (s *Session) sendGraphics() error {
	fb := s.desktop.Desktop()
	monitors := s.desktop.Monitors()
	next, msgs, fresh, nextID := s.planSurfaces(monitors)

	region := s.pending.Clone()
	for _, idx := range fresh {
		for _, m := range monitors {
			if m.Index == idx {
				region.Add(m.Local)
			}
		}
	}

	frameID := s.frameID + 1
	msgs = append(msgs, protocol.StartFrame{FrameID: frameID})
	rects, bytes := 0, 0
	for _, m := range monitors {
		sf := next[m.Index]
		for _, r := range region.Intersect(m.Local).Rects() {
			for _, band := range geom.Bands(r, s.bandRows(r.Dx())) {
				tile, ok := s.encode(fb, band, band.Sub(m.Local.Min))
				if !ok {
					continue
				}
				msgs = append(msgs, protocol.SurfaceCommand{SurfaceID: sf.id, Tile: tile})
				rects++
				bytes += len(tile.Data)
			}
		}
	}
	msgs = append(msgs, protocol.EndFrame{FrameID: frameID})
	if err := s.send(protocol.ChannelGraphics, msgs...); err != nil {
		return err
	}
	s.surfaces, s.nextSurface = next, nextID
	s.frameID = frameID
	if !s.ackDisabled {
		s.outstanding++
	}
	s.observer.FrameSent(AcceleratedGraphics, rects, bytes)
	return nil
}

// SetCursor pushes a pointer shape. Shapes already in the viewer cache are
// selected by slot; new ones are installed, evicting the least recently
// used slot at capacity. While output is suppressed only the latest shape
// is kept, to be sent on resume.
func (s *Session) SetCursor(shape *cursor.Shape) {
	if s.state != StateActive {
		return
	}
	if s.suspend&SuspendOutputSuppressed != 0 {
		s.heldCursor = shape
		return
	}
	if shape.Hidden() {
		if err := s.send(protocol.ChannelMain, protocol.PointerSystem{Hidden: true}); err == nil {
			s.cursorSent = false
		}
		return
	}
	key := shape.Key()
	if s.cursorSent && key == s.cursorKey {
		return
	}

	res := s.cursors.Touch(key)
	var msg protocol.Message = protocol.PointerCached{Slot: res.Slot}
	if !res.Hit {
		msg = protocol.PointerNew{
			Slot:     res.Slot,
			HotspotX: shape.Hotspot.X,
			HotspotY: shape.Hotspot.Y,
			Width:    shape.Image.Width,
			Height:   shape.Image.Height,
			Data:     shape.Image.Packed(shape.Image.Bounds()),
		}
	}
	if err := s.send(protocol.ChannelMain, msg); err != nil {
		if !res.Hit {
			s.cursors.Forget(key)
		}
		s.cursorSent = false
		return
	}
	if res.Evicted {
		s.log.Debug("Cursor slot evicted", zap.Int("slot", res.Slot))
	}
	s.cursorKey, s.cursorSent = key, true
}

// MonitorsChanged reacts to an applied layout: the viewer is told the new
// geometry when it supports resizing, and everything is resent.
func (s *Session) MonitorsChanged(plan display.Plan) {
	if s.state != StateActive && s.state != StateAwaitingChannels {
		return
	}
	if plan.Empty() {
		return
	}
	if s.caps.DesktopResize {
		msg := protocol.DesktopResize{
			Width:    plan.Bounds.Dx(),
			Height:   plan.Bounds.Dy(),
			Monitors: protocol.MonitorsOf(plan.Monitors),
		}
		if err := s.control(protocol.ChannelMain, msg); err != nil {
			return
		}
	} else if plan.BoundsChanged {
		s.log.Info("Viewer cannot follow desktop resize", zap.Stringer("bounds", plan.Bounds))
	}
	s.firstFrame = true
	s.Flush()
}
