package peer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/rdesk/internal/codec"
	"github.com/GriffinCanCode/rdesk/internal/cursor"
	"github.com/GriffinCanCode/rdesk/internal/display"
	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/protocol"
)

var (
	// ErrCapabilityRejected means a mandatory viewer requirement cannot be met
	ErrCapabilityRejected = errors.New("capability rejected")
	// ErrChannelUnavailable means an optional channel failed to open
	ErrChannelUnavailable = errors.New("channel unavailable")
	// ErrTransportFailure means the viewer connection failed
	ErrTransportFailure = errors.New("transport failure")
	// ErrBackpressure is returned by a Transport whose send queue is full
	ErrBackpressure = errors.New("send queue full")
	// ErrSessionClosed is returned for messages arriving after close
	ErrSessionClosed = errors.New("session closed")
	// ErrUnexpectedMessage is returned for messages invalid in the current state
	ErrUnexpectedMessage = errors.New("unexpected message")
)

// State is the session lifecycle state
type State uint8

const (
	StateConnecting State = iota
	StateNegotiating
	StateAwaitingChannels
	StateActive
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateNegotiating:
		return "negotiating"
	case StateAwaitingChannels:
		return "awaiting_channels"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Suspend is a bitmask of conditions that hold back updates
type Suspend uint8

const (
	SuspendNotActivated Suspend = 1 << iota
	SuspendOutputSuppressed
	SuspendWaitingDynamicChannel
	SuspendWaitingGraphicsAck
)

var suspendNames = []struct {
	bit  Suspend
	name string
}{
	{SuspendNotActivated, "not_activated"},
	{SuspendOutputSuppressed, "output_suppressed"},
	{SuspendWaitingDynamicChannel, "waiting_dynamic_channel"},
	{SuspendWaitingGraphicsAck, "waiting_graphics_ack"},
}

// String lists the set bits
func (s Suspend) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, n := range suspendNames {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// RenderMode is the update strategy negotiated with a viewer
type RenderMode uint8

const (
	RawUpdates RenderMode = iota
	SurfaceUpdates
	AcceleratedGraphics
)

// String returns the mode name used on the wire and in metrics
func (m RenderMode) String() string {
	switch m {
	case RawUpdates:
		return "raw"
	case SurfaceUpdates:
		return "surface"
	case AcceleratedGraphics:
		return "graphics"
	default:
		return "unknown"
	}
}

// DisplayMode selects whether surface-mode negotiation is attempted
type DisplayMode uint8

const (
	DisplayLegacy DisplayMode = iota
	// DisplayAutodetect behaves like DisplayLegacy
	DisplayAutodetect
	DisplayOptimize
)

// String returns the config name of the mode
func (m DisplayMode) String() string {
	switch m {
	case DisplayLegacy:
		return "legacy"
	case DisplayAutodetect:
		return "autodetect"
	case DisplayOptimize:
		return "optimize"
	default:
		return "unknown"
	}
}

// ParseDisplayMode parses a config value
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy":
		return DisplayLegacy, nil
	case "autodetect":
		return DisplayAutodetect, nil
	case "optimize", "":
		return DisplayOptimize, nil
	default:
		return 0, fmt.Errorf("invalid display mode %q", s)
	}
}

// Transport carries messages to one viewer.
//
// Send queues a batch all or none. It returns ErrBackpressure when the
// queue cannot take the whole batch; any other error is fatal.
type Transport interface {
	Send(ch protocol.Channel, msgs ...protocol.Message) error
	Close() error
}

// Desktop is the shared desktop a session reads from and routes input to.
// *wm.Manager satisfies it.
type Desktop interface {
	Monitors() []display.Monitor
	Desktop() *framebuffer.FrameBuffer
	Cursor() *cursor.Shape
	HandlePointer(ev input.PointerEvent)
	HandleKey(scanCode uint16, flags input.KeyFlags)
	ApplyLayout(entries []display.Entry) (display.Plan, error)
}

// Observer receives session events for metrics
type Observer interface {
	FrameSent(mode RenderMode, rects, bytes int)
	EncodeFailed(scheme codec.Scheme)
	SessionClosed(outcome string)
}

type nopObserver struct{}

func (nopObserver) FrameSent(RenderMode, int, int) {}
func (nopObserver) EncodeFailed(codec.Scheme)      {}
func (nopObserver) SessionClosed(string)           {}

// Close outcomes reported to the Observer
const (
	OutcomeNormal    = "normal"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_failure"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeNormal
	case errors.Is(err, ErrCapabilityRejected):
		return OutcomeRejected
	case errors.Is(err, ErrTransportFailure):
		return OutcomeTransport
	default:
		return OutcomeNormal
	}
}
