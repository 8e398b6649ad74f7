package peer

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/clipboard"
	"github.com/GriffinCanCode/rdesk/internal/codec"
	"github.com/GriffinCanCode/rdesk/internal/cursor"
	"github.com/GriffinCanCode/rdesk/internal/geom"
	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/protocol"
	"github.com/GriffinCanCode/rdesk/internal/shared/id"
)

// DefaultMaxRequestSize bounds one update message when the viewer does not
// advertise a limit
const DefaultMaxRequestSize = 1 << 20

// Config holds the server-side toggles that shape negotiation
type Config struct {
	DisplayMode   DisplayMode
	Clipboard     bool
	Graphics      bool
	DynamicResize bool
	// MaxOutstandingFrames caps unacknowledged accelerated frames; zero
	// disables throttling
	MaxOutstandingFrames int
	Guard                codec.GuardSettings
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	return Config{
		DisplayMode:          DisplayOptimize,
		Clipboard:            true,
		Graphics:             true,
		DynamicResize:        true,
		MaxOutstandingFrames: 3,
	}
}

// Deps are the collaborators a session talks to
type Deps struct {
	Transport Transport
	Desktop   Desktop
	// Clipboard is the shared desktop clipboard; nil disables the channel
	Clipboard *clipboard.Hub
	Converter *clipboard.Converter
	Observer  Observer
	Logger    *zap.Logger
	// Backends builds the tile backend for a scheme; defaults to
	// codec.NewBackend
	Backends  func(codec.Scheme) (codec.Backend, error)
}

// surface is a remote drawable bound to one monitor
type surface struct {
	id   uint16
	rect image.Rectangle
}

// Session is the protocol engine for one viewer
type Session struct {
	id        id.PeerID
	cfg       Config
	log       *zap.Logger
	transport Transport
	desktop   Desktop
	hub       *clipboard.Hub
	converter *clipboard.Converter
	observer  Observer
	backends  func(codec.Scheme) (codec.Backend, error)

	state   State
	suspend Suspend
	mode    RenderMode
	depth   int
	caps    protocol.Capabilities
	offered map[protocol.Channel]bool
	codecs  []string
	open    map[protocol.Channel]bool

	maxRequest int
	encoder    *codec.Encoder
	cursors    *cursor.Cache
	cursorKey  cursor.Key
	cursorSent bool
	heldCursor *cursor.Shape

	pending    geom.Region
	firstFrame bool

	frameID     uint32
	ackedID     uint32
	outstanding int
	ackDisabled bool

	surfaces    map[int]surface
	nextSurface uint16

	clip clipboard.State

	closeErr error
	onClose  func(*Session)
}

// New creates a session in the Connecting state
func New(cfg Config, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Converter == nil {
		deps.Converter = clipboard.NewConverter()
	}
	if deps.Backends == nil {
		deps.Backends = codec.NewBackend
	}
	peerID := id.NewPeerID()
	return &Session{
		id:         peerID,
		cfg:        cfg,
		log:        deps.Logger.Named("peer").With(zap.String("peer_id", peerID.String())),
		transport:  deps.Transport,
		desktop:    deps.Desktop,
		hub:        deps.Clipboard,
		converter:  deps.Converter,
		observer:   deps.Observer,
		backends:   deps.Backends,
		offered:    make(map[protocol.Channel]bool),
		open:       make(map[protocol.Channel]bool),
		surfaces:   make(map[int]surface),
		cursors:    cursor.NewCache(0),
		maxRequest: DefaultMaxRequestSize,
		suspend:    SuspendNotActivated,
	}
}

// ID returns the peer identifier
func (s *Session) ID() id.PeerID {
	return s.id
}

// State returns the lifecycle state
func (s *Session) State() State {
	return s.state
}

// Suspended returns the suspend bitmask
func (s *Session) Suspended() Suspend {
	return s.suspend
}

// Mode returns the negotiated render mode
func (s *Session) Mode() RenderMode {
	return s.mode
}

// ColorDepth returns the negotiated colour depth
func (s *Session) ColorDepth() int {
	return s.depth
}

// Scheme returns the preferred tile encoding
func (s *Session) Scheme() codec.Scheme {
	if s.encoder == nil {
		return codec.SchemeRaw
	}
	return s.encoder.Scheme()
}

// ChannelOpen reports whether a channel finished opening
func (s *Session) ChannelOpen(ch protocol.Channel) bool {
	return s.open[ch]
}

// Outstanding returns the number of unacknowledged accelerated frames
func (s *Session) Outstanding() int {
	return s.outstanding
}

// Pending returns the damage not yet sent
func (s *Session) Pending() geom.Region {
	return s.pending.Clone()
}

// Err returns the reason the session closed, nil for a normal close
func (s *Session) Err() error {
	return s.closeErr
}

// Start moves the session into negotiation; the viewer speaks first
func (s *Session) Start() {
	if s.state == StateConnecting {
		s.state = StateNegotiating
		s.log.Debug("Awaiting client hello")
	}
}

// HandleMessage dispatches one viewer message
func (s *Session) HandleMessage(ch protocol.Channel, m protocol.Message) error {
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	switch msg := m.(type) {
	case protocol.ClientHello:
		if s.state != StateNegotiating {
			return fmt.Errorf("%w: %s in state %s", ErrUnexpectedMessage, m.Type(), s.state)
		}
		s.negotiate(msg)
	case protocol.Disconnect:
		s.log.Info("Viewer disconnected", zap.String("reason", msg.Reason))
		s.Close(nil)
	default:
		if s.state < StateAwaitingChannels {
			return fmt.Errorf("%w: %s before negotiation", ErrUnexpectedMessage, m.Type())
		}
		return s.dispatch(ch, m)
	}
	return nil
}

func (s *Session) dispatch(ch protocol.Channel, m protocol.Message) error {
	switch msg := m.(type) {
	case protocol.ChannelOpened:
		s.channelOpened(msg)
	case protocol.GraphicsCaps:
		s.graphicsCaps(msg)
	case protocol.SuppressOutput:
		s.suppressOutput(msg)
	case protocol.RefreshRect:
		s.refresh(msg.Areas)
	case protocol.FrameAck:
		s.frameAck(msg)
	case protocol.MonitorLayout:
		s.monitorLayout(msg)
	case protocol.PointerInput:
		s.pointer(msg)
	case protocol.KeyInput:
		if s.state == StateActive {
			s.desktop.HandleKey(msg.ScanCode, input.KeyFlags(msg.Flags))
		}
	case protocol.ClipboardFormats:
		s.clipboardFormats(msg)
	case protocol.ClipboardRequest:
		s.clipboardRequest(msg)
	case protocol.ClipboardData:
		s.clipboardData(msg)
	default:
		return fmt.Errorf("%w: %s on channel %q", ErrUnexpectedMessage, m.Type(), ch)
	}
	return nil
}

func (s *Session) negotiate(hello protocol.ClientHello) {
	s.caps = hello.Caps
	s.codecs = hello.Codecs
	for _, ch := range hello.Channels {
		s.offered[ch] = true
	}
	if hello.MaxRequestSize > 0 {
		s.maxRequest = hello.MaxRequestSize
	}

	if hello.ColorDepth != 24 && hello.ColorDepth != 32 {
		s.reject("unsupported_depth", fmt.Sprintf("colour depth %d is not supported", hello.ColorDepth))
		return
	}
	if hello.ColorDepth == 24 && !s.surfaceAvailable() {
		s.reject("unsupported_depth", "colour depth 24 requires surface commands")
		return
	}
	if hello.Caps.RequireGraphics && !s.graphicsAvailable() {
		s.reject("graphics_required", "accelerated graphics is not available")
		return
	}
	s.depth = hello.ColorDepth

	switch {
	case s.graphicsAvailable():
		s.mode = AcceleratedGraphics
	case s.surfaceAvailable():
		s.mode = SurfaceUpdates
	default:
		s.mode = RawUpdates
	}
	s.useCodec()
	if hello.CursorCacheSize > cursor.MaxCacheSize {
		s.log.Debug("Cursor cache size clamped",
			zap.Int("requested", hello.CursorCacheSize), zap.Int("max", cursor.MaxCacheSize))
	}
	s.cursors = cursor.NewCache(hello.CursorCacheSize)

	if s.cfg.DynamicResize && len(hello.Monitors) > 0 {
		if _, err := s.desktop.ApplyLayout(protocol.Entries(hello.Monitors)); err != nil {
			s.log.Info("Initial monitor layout rejected", zap.Error(err))
		}
	}

	channels := s.wantedChannels()
	bounds := s.desktop.Desktop().Bounds()
	reply := protocol.ServerHello{
		SessionID:  s.id.String(),
		ColorDepth: s.depth,
		Mode:       s.mode.String(),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Channels:   channels,
		Monitors:   protocol.MonitorsOf(s.desktop.Monitors()),
	}
	if err := s.control(protocol.ChannelMain, reply); err != nil {
		return
	}
	s.state = StateAwaitingChannels
	s.log.Info("Capabilities negotiated",
		zap.Int("depth", s.depth),
		zap.Stringer("mode", s.mode),
		zap.Stringer("scheme", s.encoder.Scheme()),
		zap.Int("cursor_cache", s.cursors.Capacity()),
	)

	for _, ch := range channels {
		switch ch {
		case protocol.ChannelDynamic:
			s.suspend |= SuspendWaitingDynamicChannel
		}
		if err := s.control(protocol.ChannelMain, protocol.ChannelOpen{Channel: ch}); err != nil {
			return
		}
	}
	if s.mode == AcceleratedGraphics {
		s.suspend |= SuspendWaitingGraphicsAck
	}
	s.maybeActivate()
}

func (s *Session) reject(code, message string) {
	s.log.Info("Capability rejected", zap.String("code", code), zap.String("message", message))
	_ = s.transport.Send(protocol.ChannelMain, protocol.Error{Code: code, Message: message})
	s.Close(fmt.Errorf("%w: %s", ErrCapabilityRejected, message))
}

// surfaceAvailable reports whether surface commands may be used. Only the
// optimize display mode attempts them.
func (s *Session) surfaceAvailable() bool {
	return s.cfg.DisplayMode == DisplayOptimize && s.caps.SurfaceCommands && s.caps.FrameMarker
}

func (s *Session) graphicsAvailable() bool {
	return s.cfg.Graphics && s.caps.Graphics &&
		s.offered[protocol.ChannelGraphics] && s.offered[protocol.ChannelDynamic]
}

// wantedChannels lists the top-level channels to open, in order
func (s *Session) wantedChannels() []protocol.Channel {
	var out []protocol.Channel
	if s.cfg.Clipboard && s.hub != nil && s.offered[protocol.ChannelClipboard] {
		out = append(out, protocol.ChannelClipboard)
	}
	if s.offered[protocol.ChannelDynamic] && (s.mode == AcceleratedGraphics || s.wantDisplayControl()) {
		out = append(out, protocol.ChannelDynamic)
	}
	return out
}

func (s *Session) wantDisplayControl() bool {
	return s.cfg.DynamicResize && s.offered[protocol.ChannelDisplay]
}

// useCodec picks the tile encoding for the current render mode
func (s *Session) useCodec() {
	var prefs []codec.Scheme
	switch s.mode {
	case RawUpdates:
		prefs = []codec.Scheme{codec.SchemeBitmap}
	case SurfaceUpdates:
		prefs = []codec.Scheme{codec.SchemePlanar}
	case AcceleratedGraphics:
		prefs = []codec.Scheme{codec.SchemePlanar, codec.SchemeZstd}
	}
	scheme := codec.SchemeRaw
	for _, p := range prefs {
		if slices.Contains(s.codecs, p.String()) {
			scheme = p
			break
		}
	}
	backend, err := s.backends(scheme)
	if err != nil {
		s.log.Warn("Codec unavailable, using raw", zap.Stringer("scheme", scheme), zap.Error(err))
		backend, _ = codec.NewBackend(codec.SchemeRaw)
	}

	settings := s.cfg.Guard
	notify := settings.OnStateChange
	settings.OnStateChange = func(sc codec.Scheme, from, to codec.GuardState) {
		s.log.Warn("Codec guard state changed",
			zap.Stringer("scheme", sc), zap.Stringer("from", from), zap.Stringer("to", to))
		if notify != nil {
			notify(sc, from, to)
		}
	}
	s.encoder = codec.NewEncoder(backend, settings)
}

func (s *Session) channelOpened(msg protocol.ChannelOpened) {
	if !msg.OK {
		s.channelFailed(msg.Channel, msg.Reason)
		s.maybeActivate()
		return
	}
	s.open[msg.Channel] = true
	s.log.Debug("Channel open", zap.String("channel", string(msg.Channel)))

	switch msg.Channel {
	case protocol.ChannelDynamic:
		s.suspend &^= SuspendWaitingDynamicChannel
		if s.wantDisplayControl() {
			if err := s.control(protocol.ChannelDynamic, protocol.ChannelOpen{Channel: protocol.ChannelDisplay}); err != nil {
				return
			}
		}
		if s.mode == AcceleratedGraphics {
			if err := s.control(protocol.ChannelDynamic, protocol.ChannelOpen{Channel: protocol.ChannelGraphics}); err != nil {
				return
			}
		}
	case protocol.ChannelClipboard:
		if s.hub == nil {
			break
		}
		if data := s.hub.Data(); len(data) > 0 {
			s.announceClipboard(data)
		}
	}
	s.maybeActivate()
}

// channelFailed degrades the session. Losing a channel the render mode
// depends on falls back to raw updates.
func (s *Session) channelFailed(ch protocol.Channel, reason string) {
	err := fmt.Errorf("%w: %s: %s", ErrChannelUnavailable, ch, reason)
	s.log.Info("Channel failed to open", zap.Error(err))
	delete(s.open, ch)

	switch ch {
	case protocol.ChannelDynamic:
		s.suspend &^= SuspendWaitingDynamicChannel
		if s.mode == AcceleratedGraphics {
			s.fallbackToRaw()
		}
	case protocol.ChannelGraphics:
		if s.mode == AcceleratedGraphics {
			s.fallbackToRaw()
		}
	}
}

func (s *Session) fallbackToRaw() {
	s.log.Info("Falling back to raw updates", zap.Stringer("from", s.mode))
	s.mode = RawUpdates
	s.suspend &^= SuspendWaitingGraphicsAck
	s.surfaces = make(map[int]surface)
	s.outstanding = 0
	s.useCodec()
	s.firstFrame = true
}

func (s *Session) graphicsCaps(msg protocol.GraphicsCaps) {
	if s.mode != AcceleratedGraphics {
		return
	}
	if len(msg.Versions) == 0 {
		s.channelFailed(protocol.ChannelGraphics, "no graphics versions offered")
		s.maybeActivate()
		return
	}
	version := slices.Max(msg.Versions)
	if err := s.control(protocol.ChannelGraphics, protocol.CapsConfirm{Version: version}); err != nil {
		return
	}
	s.suspend &^= SuspendWaitingGraphicsAck
	s.maybeActivate()
}

// maybeActivate enters Active once no channel is outstanding
func (s *Session) maybeActivate() {
	if s.state != StateAwaitingChannels {
		if s.state == StateActive {
			s.Flush()
		}
		return
	}
	if s.suspend&(SuspendWaitingDynamicChannel|SuspendWaitingGraphicsAck) != 0 {
		return
	}
	s.state = StateActive
	s.suspend &^= SuspendNotActivated
	s.firstFrame = true
	s.log.Info("Session active",
		zap.Stringer("mode", s.mode),
		zap.Bool("clipboard", s.open[protocol.ChannelClipboard]),
		zap.Bool("display_control", s.open[protocol.ChannelDisplay]),
	)
	s.SetCursor(s.desktop.Cursor())
	s.Flush()
}

func (s *Session) suppressOutput(msg protocol.SuppressOutput) {
	if !msg.Allow {
		s.suspend |= SuspendOutputSuppressed
		s.log.Debug("Output suppressed")
		return
	}
	s.suspend &^= SuspendOutputSuppressed
	if msg.Area != nil {
		s.pending.Add(msg.Area.Image())
	}
	s.log.Debug("Output resumed", zap.Int("pending_rects", s.pending.Len()))
	if held := s.heldCursor; held != nil {
		s.heldCursor = nil
		s.SetCursor(held)
	}
	s.Flush()
}

func (s *Session) refresh(areas []protocol.Rect) {
	for _, a := range areas {
		s.pending.Add(a.Image().Intersect(s.desktop.Desktop().Bounds()))
	}
	s.Flush()
}

func (s *Session) frameAck(msg protocol.FrameAck) {
	wasDisabled := s.ackDisabled
	s.ackDisabled = msg.QueueDepth == protocol.SuspendFrameAck
	if s.ackDisabled {
		s.outstanding = 0
	}
	advanced := msg.FrameID > s.ackedID && msg.FrameID <= s.frameID
	if advanced {
		s.ackedID = msg.FrameID
	}
	if !s.ackDisabled && (advanced || wasDisabled) {
		// Frames sent while acks were off are counted again from the
		// last acknowledged id.
		s.outstanding = int(s.frameID - s.ackedID)
	}
	s.Flush()
}

func (s *Session) monitorLayout(msg protocol.MonitorLayout) {
	if !s.cfg.DynamicResize || !s.open[protocol.ChannelDisplay] {
		s.log.Debug("Ignoring monitor layout without display control")
		return
	}
	if _, err := s.desktop.ApplyLayout(protocol.Entries(msg.Monitors)); err != nil {
		s.log.Info("Monitor layout rejected", zap.Error(err))
	}
}

func (s *Session) pointer(msg protocol.PointerInput) {
	if s.state != StateActive || msg.Kind > uint8(input.PointerLeave) {
		return
	}
	s.desktop.HandlePointer(input.PointerEvent{
		Kind:    input.PointerKind(msg.Kind),
		Pos:     image.Pt(msg.X, msg.Y),
		Button:  input.Button(msg.Button),
		Buttons: input.Button(msg.Buttons),
		WheelX:  msg.WheelX,
		WheelY:  msg.WheelY,
	})
}

// SetOnClose registers the callback run once the session closes
func (s *Session) SetOnClose(fn func(*Session)) {
	s.onClose = fn
}

// Close ends the session. A nil reason is a normal close.
func (s *Session) Close(reason error) {
	if s.state == StateClosed {
		return
	}
	prev := s.state
	s.state = StateClosed
	s.closeErr = reason
	s.pending.Clear()
	s.surfaces = make(map[int]surface)
	if err := s.transport.Close(); err != nil {
		s.log.Debug("Transport close failed", zap.Error(err))
	}

	outcome := outcomeOf(reason)
	s.observer.SessionClosed(outcome)
	s.log.Info("Session closed",
		zap.String("outcome", outcome),
		zap.Stringer("from", prev),
		zap.Uint32("frames", s.frameID),
		zap.Error(reason),
	)
	if s.onClose != nil {
		s.onClose(s)
	}
}

// send queues a batch. Backpressure is returned as is; any other failure
// closes the session.
func (s *Session) send(ch protocol.Channel, msgs ...protocol.Message) error {
	err := s.transport.Send(ch, msgs...)
	if err == nil || errors.Is(err, ErrBackpressure) {
		return err
	}
	err = fmt.Errorf("%w: %w", ErrTransportFailure, err)
	s.log.Warn("Send failed", zap.String("channel", string(ch)), zap.Error(err))
	s.Close(err)
	return err
}

// control sends messages the session cannot progress without. A viewer
// that cannot take them is treated as gone.
func (s *Session) control(ch protocol.Channel, msgs ...protocol.Message) error {
	err := s.send(ch, msgs...)
	if errors.Is(err, ErrBackpressure) {
		err = fmt.Errorf("%w: control message dropped: %w", ErrTransportFailure, err)
		s.log.Warn("Control message dropped", zap.String("channel", string(ch)))
		s.Close(err)
	}
	return err
}
