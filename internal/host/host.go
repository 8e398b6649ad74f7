package host

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/clipboard"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/rdesk/internal/peer"
	"github.com/GriffinCanCode/rdesk/internal/theme"
	"github.com/GriffinCanCode/rdesk/internal/wm"
)

// ErrStopped is returned once the event loop has shut down
var ErrStopped = errors.New("desktop loop stopped")

// Config configures the desktop and its sessions
type Config struct {
	Width         int
	Height        int
	FrameInterval time.Duration
	Theme         theme.Theme
	Session       peer.Config
	// Demo opens an animated test pattern window
	Demo bool
}

// Host owns the desktop state and serializes access to it
type Host struct {
	cfg     Config
	log     *zap.Logger
	metrics *monitoring.Metrics

	desktop   *wm.Manager
	registry  *peer.Registry
	hub       *clipboard.Hub
	converter *clipboard.Converter
	demo      *pattern
	lastSeq   uint64
	frames    *frameTimes

	posts    chan func()
	stopping chan struct{}
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
}

// New creates the desktop. The loop does not run until Run is called.
func New(cfg Config, log *zap.Logger, metrics *monitoring.Metrics) (*Host, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	if cfg.FrameInterval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %s", cfg.FrameInterval)
	}

	desktop, err := wm.New(wm.Config{Width: cfg.Width, Height: cfg.Height, Theme: cfg.Theme}, log)
	if err != nil {
		return nil, fmt.Errorf("create desktop: %w", err)
	}

	var hub *clipboard.Hub
	if cfg.Session.Clipboard {
		hub = clipboard.NewHub()
	}
	h := &Host{
		cfg:       cfg,
		log:       log.Named("host"),
		metrics:   metrics,
		desktop:   desktop,
		registry:  peer.NewRegistry(hub, log),
		frames:    newFrameTimes(frameWindow),
		hub:       hub,
		converter: clipboard.NewConverter(),
		posts:     make(chan func(), 64),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	desktop.OnCursor(h.registry)
	desktop.OnMonitors(h.registry)
	if hub != nil {
		hub.OnRemoteData(func(data clipboard.Data, origin string) {
			h.log.Info("Clipboard taken by viewer", zap.String("peer_id", origin), zap.Int("formats", len(data)))
		})
	}
	if cfg.Demo {
		h.demo = openPattern(desktop, image.Rect(0, 0, cfg.Width, cfg.Height))
	}
	metrics.SetWindows(len(desktop.Windows()))
	return h, nil
}

// Desktop returns the window manager. It must only be used from the loop.
func (h *Host) Desktop() *wm.Manager {
	return h.desktop
}

// Clipboard returns the shared clipboard, nil when disabled. It must only
// be used from the loop.
func (h *Host) Clipboard() *clipboard.Hub {
	return h.hub
}

// Run drives the event loop until ctx is cancelled. Sessions still open at
// that point are closed.
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.FrameInterval)
	defer ticker.Stop()
	defer h.shutdown()

	h.log.Info("Desktop loop started",
		zap.Int("width", h.cfg.Width),
		zap.Int("height", h.cfg.Height),
		zap.Duration("frame_interval", h.cfg.FrameInterval),
		zap.String("theme", h.cfg.Theme.Name),
	)
	for {
		select {
		case fn := <-h.posts:
			fn()
		case <-ticker.C:
			h.tick()
		case <-ctx.Done():
			return nil
		}
	}
}

// Post runs fn on the loop. It reports false, without running fn, once the
// loop is shutting down.
func (h *Host) Post(fn func()) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return false
	}
	select {
	case h.posts <- fn:
		return true
	case <-h.stopping:
		return false
	}
}

// Call runs fn on the loop and waits for it
func (h *Host) Call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !h.Post(func() {
		fn()
		close(ran)
	}) {
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-h.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop has shut down
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// shutdown refuses new work, runs what was already posted and closes
// every session
func (h *Host) shutdown() {
	close(h.stopping)
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	for drained := false; !drained; {
		select {
		case fn := <-h.posts:
			fn()
		default:
			drained = true
		}
	}
	sessions := h.registry.Len()
	h.registry.CloseAll(nil)
	h.metrics.SetPeersActive(0)
	close(h.done)
	h.log.Info("Desktop loop stopped", zap.Int("sessions_closed", sessions))
}

// Attach creates and registers a session for a new viewer. It must run on
// the loop.
func (h *Host) Attach(t peer.Transport) *peer.Session {
	s := peer.New(h.cfg.Session, peer.Deps{
		Transport: t,
		Desktop:   h.desktop,
		Clipboard: h.hub,
		Converter: h.converter,
		Observer:  h.metrics,
		Logger:    h.log,
	})
	s.SetOnClose(func(*peer.Session) {
		h.metrics.SetPeersActive(h.registry.Len())
	})
	h.registry.Add(s)
	s.Start()
	h.metrics.SetPeersActive(h.registry.Len())
	return s
}

// tick advances the demo, composes pending damage and hands the frame to
// every session. Without damage, sessions retry what they are holding.
func (h *Host) tick() {
	start := time.Now()
	defer func() { h.frames.add(time.Since(start)) }()

	if h.demo != nil {
		h.demo.step()
	}

	h.metrics.SetWindows(len(h.desktop.Windows()))

	needTiles := h.registry.NeedsTiles()
	timer := monitoring.NewTimer(h.metrics, "compose")
	frame, ok := h.desktop.Tick(needTiles)
	timer.Stop()
	if !ok {
		h.registry.Flush()
		return
	}
	h.lastSeq = frame.Seq
	h.metrics.RecordFrame(frame.Dirty.Area(), frame.Tiles.Area(), needTiles)

	timer = monitoring.NewTimer(h.metrics, "send")
	h.registry.Repaint(frame)
	timer.Stop()
}
