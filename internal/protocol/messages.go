package protocol

import (
	"image"

	"github.com/GriffinCanCode/rdesk/internal/display"
)

// Type names a message variant on the wire
type Type string

// Message is one variant of the session message set
type Message interface {
	Type() Type
}

// Channel names the logical channel a message travels on
type Channel string

const (
	ChannelMain Channel = ""
	// ChannelClipboard carries clipboard format lists and payloads
	ChannelClipboard Channel = "cliprdr"
	// ChannelDynamic is the dynamic virtual channel transport
	ChannelDynamic Channel = "drdynvc"
	// ChannelDisplay carries viewer monitor layouts (display control)
	ChannelDisplay Channel = "disp"
	// ChannelGraphics carries accelerated graphics commands
	ChannelGraphics Channel = "gfx"
)

// Rect is a wire rectangle
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// RectOf converts an image rectangle
func RectOf(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Image converts back to an image rectangle
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Monitor is one entry of a viewer monitor layout
type Monitor struct {
	Rect    Rect `json:"rect"`
	Primary bool `json:"primary,omitempty"`
}

// Entries converts a wire layout for the reconciler
func Entries(monitors []Monitor) []display.Entry {
	out := make([]display.Entry, len(monitors))
	for i, m := range monitors {
		out[i] = display.Entry{Rect: m.Rect.Image(), Primary: m.Primary}
	}
	return out
}

// MonitorsOf converts the desktop monitors to their remote wire form
func MonitorsOf(monitors []display.Monitor) []Monitor {
	out := make([]Monitor, len(monitors))
	for i, m := range monitors {
		out[i] = Monitor{Rect: RectOf(m.Remote), Primary: m.Primary}
	}
	return out
}

// Capabilities are the feature flags a viewer advertises
type Capabilities struct {
	SurfaceCommands bool `json:"surface_commands,omitempty"`
	FrameMarker     bool `json:"frame_marker,omitempty"`
	DesktopResize   bool `json:"desktop_resize,omitempty"`
	Graphics        bool `json:"graphics,omitempty"`
	// RequireGraphics makes accelerated graphics mandatory for the viewer
	RequireGraphics bool `json:"require_graphics,omitempty"`
}

// Client to server

// ClientHello opens negotiation
type ClientHello struct {
	ColorDepth      int          `json:"color_depth"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	Codecs          []string     `json:"codecs,omitempty"`
	Channels        []Channel    `json:"channels,omitempty"`
	Caps            Capabilities `json:"caps"`
	CursorCacheSize int          `json:"cursor_cache_size,omitempty"`
	MaxRequestSize  int          `json:"max_request_size,omitempty"`
	Monitors        []Monitor    `json:"monitors,omitempty"`
}

// ChannelOpened answers a ChannelOpen
type ChannelOpened struct {
	Channel Channel `json:"channel"`
	OK      bool    `json:"ok"`
	Reason  string  `json:"reason,omitempty"`
}

// GraphicsCaps advertises accelerated graphics capabilities
type GraphicsCaps struct {
	Versions []uint32 `json:"versions"`
}

// SuppressOutput pauses or resumes updates
type SuppressOutput struct {
	Allow bool  `json:"allow"`
	Area  *Rect `json:"area,omitempty"`
}

// RefreshRect requests retransmission of areas
type RefreshRect struct {
	Areas []Rect `json:"areas"`
}

// SuspendFrameAck is the queue depth that turns off frame acknowledgement
// throttling
const SuspendFrameAck = 0xFFFFFFFF

// FrameAck acknowledges an accelerated frame
type FrameAck struct {
	FrameID    uint32 `json:"frame_id"`
	QueueDepth uint32 `json:"queue_depth"`
}

// MonitorLayout proposes a new viewer monitor layout
type MonitorLayout struct {
	Monitors []Monitor `json:"monitors"`
}

// PointerInput is a pointer event in desktop coordinates
type PointerInput struct {
	Kind    uint8 `json:"kind"`
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Button  uint8 `json:"button,omitempty"`
	Buttons uint8 `json:"buttons,omitempty"`
	WheelX  int   `json:"wheel_x,omitempty"`
	WheelY  int   `json:"wheel_y,omitempty"`
}

// KeyInput is a raw scan code
type KeyInput struct {
	ScanCode uint16 `json:"scan_code"`
	Flags    uint16 `json:"flags,omitempty"`
}

// Disconnect ends the session
type Disconnect struct {
	Reason string `json:"reason,omitempty"`
}

// Clipboard, both directions

// ClipboardFormat is one offered clipboard format
type ClipboardFormat struct {
	ID   uint32 `json:"id"`
	Name string `json:"name,omitempty"`
}

// ClipboardFormats announces the formats of a new clipboard owner
type ClipboardFormats struct {
	Formats []ClipboardFormat `json:"formats"`
}

// ClipboardRequest asks the owner for one format
type ClipboardRequest struct {
	RequestID string `json:"request_id"`
	Format    uint32 `json:"format"`
}

// ClipboardData answers a ClipboardRequest
type ClipboardData struct {
	RequestID string `json:"request_id"`
	Format    uint32 `json:"format"`
	OK        bool   `json:"ok"`
	Data      []byte `json:"data,omitempty"`
}

// Server to client

// ServerHello completes negotiation
type ServerHello struct {
	SessionID  string    `json:"session_id"`
	ColorDepth int       `json:"color_depth"`
	Mode       string    `json:"mode"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Channels   []Channel `json:"channels,omitempty"`
	Monitors   []Monitor `json:"monitors,omitempty"`
}

// ChannelOpen asks the viewer to bring up a channel
type ChannelOpen struct {
	Channel Channel `json:"channel"`
}

// Tile is one encoded rectangle
type Tile struct {
	Rect   Rect   `json:"rect"`
	Scheme string `json:"scheme"`
	Data   []byte `json:"data"`
}

// BitmapUpdate carries a batch of raw-mode tiles
type BitmapUpdate struct {
	Tiles []Tile `json:"tiles"`
}

// Frame marker actions
const (
	FrameBegin = "begin"
	FrameEnd   = "end"
)

// FrameMarker brackets surface-mode updates
type FrameMarker struct {
	Action  string `json:"action"`
	FrameID uint32 `json:"frame_id"`
}

// SurfaceBits is one surface-mode rectangle
type SurfaceBits struct {
	Tile
}

// CreateSurface allocates a remote drawable
type CreateSurface struct {
	SurfaceID uint16 `json:"surface_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// DeleteSurface frees a remote drawable
type DeleteSurface struct {
	SurfaceID uint16 `json:"surface_id"`
}

// MapSurface binds a drawable to an output origin
type MapSurface struct {
	SurfaceID uint16 `json:"surface_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// StartFrame opens an accelerated frame
type StartFrame struct {
	FrameID uint32 `json:"frame_id"`
}

// SurfaceCommand draws into a drawable in surface-local coordinates
type SurfaceCommand struct {
	SurfaceID uint16 `json:"surface_id"`
	Tile
}

// EndFrame closes an accelerated frame
type EndFrame struct {
	FrameID uint32 `json:"frame_id"`
}

// CapsConfirm acknowledges GraphicsCaps
type CapsConfirm struct {
	Version uint32 `json:"version"`
}

// PointerCached selects a cached cursor
type PointerCached struct {
	Slot int `json:"slot"`
}

// PointerNew installs a cursor image into a cache slot
type PointerNew struct {
	Slot     int    `json:"slot"`
	HotspotX int    `json:"hotspot_x"`
	HotspotY int    `json:"hotspot_y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Data     []byte `json:"data"`
}

// PointerSystem shows the default cursor or hides it
type PointerSystem struct {
	Hidden bool `json:"hidden"`
}

// DesktopResize announces a new desktop size and monitor set
type DesktopResize struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Monitors []Monitor `json:"monitors,omitempty"`
}

// Error reports a fatal session error before close
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ClientHello) Type() Type      { return "client_hello" }
func (ChannelOpened) Type() Type    { return "channel_opened" }
func (GraphicsCaps) Type() Type     { return "gfx_caps" }
func (SuppressOutput) Type() Type   { return "suppress_output" }
func (RefreshRect) Type() Type      { return "refresh_rect" }
func (FrameAck) Type() Type         { return "frame_ack" }
func (MonitorLayout) Type() Type    { return "monitor_layout" }
func (PointerInput) Type() Type     { return "pointer" }
func (KeyInput) Type() Type         { return "key" }
func (Disconnect) Type() Type       { return "disconnect" }
func (ClipboardFormats) Type() Type { return "clip_formats" }
func (ClipboardRequest) Type() Type { return "clip_request" }
func (ClipboardData) Type() Type    { return "clip_data" }
func (ServerHello) Type() Type      { return "server_hello" }
func (ChannelOpen) Type() Type      { return "channel_open" }
func (BitmapUpdate) Type() Type     { return "bitmap_update" }
func (FrameMarker) Type() Type      { return "frame_marker" }
func (SurfaceBits) Type() Type      { return "surface_bits" }
func (CreateSurface) Type() Type    { return "gfx_create_surface" }
func (DeleteSurface) Type() Type    { return "gfx_delete_surface" }
func (MapSurface) Type() Type       { return "gfx_map_surface" }
func (StartFrame) Type() Type       { return "gfx_start_frame" }
func (SurfaceCommand) Type() Type   { return "gfx_surface_command" }
func (EndFrame) Type() Type         { return "gfx_end_frame" }
func (CapsConfirm) Type() Type      { return "gfx_caps_confirm" }
func (PointerCached) Type() Type    { return "pointer_cached" }
func (PointerNew) Type() Type       { return "pointer_new" }
func (PointerSystem) Type() Type    { return "pointer_system" }
func (DesktopResize) Type() Type    { return "desktop_resize" }
func (Error) Type() Type            { return "error" }

// registry allocates a zero message for each wire type
var registry = map[Type]func() Message{}

func register(factories ...func() Message) {
	for _, f := range factories {
		registry[f().Type()] = f
	}
}

func init() {
	register(
		func() Message { return &ClientHello{} },
		func() Message { return &ChannelOpened{} },
		func() Message { return &GraphicsCaps{} },
		func() Message { return &SuppressOutput{} },
		func() Message { return &RefreshRect{} },
		func() Message { return &FrameAck{} },
		func() Message { return &MonitorLayout{} },
		func() Message { return &PointerInput{} },
		func() Message { return &KeyInput{} },
		func() Message { return &Disconnect{} },
		func() Message { return &ClipboardFormats{} },
		func() Message { return &ClipboardRequest{} },
		func() Message { return &ClipboardData{} },
		func() Message { return &ServerHello{} },
		func() Message { return &ChannelOpen{} },
		func() Message { return &BitmapUpdate{} },
		func() Message { return &FrameMarker{} },
		func() Message { return &SurfaceBits{} },
		func() Message { return &CreateSurface{} },
		func() Message { return &DeleteSurface{} },
		func() Message { return &MapSurface{} },
		func() Message { return &StartFrame{} },
		func() Message { return &SurfaceCommand{} },
		func() Message { return &EndFrame{} },
		func() Message { return &CapsConfirm{} },
		func() Message { return &PointerCached{} },
		func() Message { return &PointerNew{} },
		func() Message { return &PointerSystem{} },
		func() Message { return &DesktopResize{} },
		func() Message { return &Error{} },
	)
}
