package clipboard

import (
	"slices"

	"github.com/google/uuid"
)

// State is the clipboard negotiation state of one viewer. It is replaced
// wholesale on each new clipboard assertion from either side.
type State struct {
	// Remote is the format list most recently announced by the viewer
	Remote []Format
	// Requested is the format asked of the viewer, zero when idle
	Requested Format
	requestID string
}

// Announce records a viewer format list and returns the format to request,
// if any
func (s *State) Announce(formats []Format) (Format, bool) {
	*s = State{Remote: formats}
	return Best(formats)
}

// Request starts a data request and returns its correlation id
func (s *State) Request(f Format) string {
	s.Requested = f
	s.requestID = uuid.NewString()
	return s.requestID
}

// Complete matches a data response against the outstanding request
func (s *State) Complete(requestID string, f Format) bool {
	if s.requestID == "" || requestID != s.requestID || f != s.Requested {
		return false
	}
	s.Requested, s.requestID = 0, ""
	return true
}

// Pending reports whether a request is outstanding
func (s *State) Pending() bool {
	return s.requestID != ""
}

// Listener receives desktop clipboard changes
type Listener interface {
	// ClipboardChanged is called with the new content and the id of the
	// viewer it came from, empty for local changes
	ClipboardChanged(data Data, origin string)
}

// Hub is the desktop clipboard shared by all viewers. Not safe for
// concurrent use; it lives on the server event loop.
type Hub struct {
	data      Data
	origin    string
	listeners []Listener
	onRemote  func(Data, string)
}

// NewHub creates an empty clipboard
func NewHub() *Hub {
	return &Hub{data: Data{}}
}

// Subscribe registers a listener and returns a function removing it. The
// listener may unsubscribe from inside ClipboardChanged.
func (h *Hub) Subscribe(l Listener) func() {
	h.listeners = append(h.listeners, l)
	return func() {
		if i := slices.Index(h.listeners, l); i >= 0 {
			h.listeners = slices.Delete(slices.Clone(h.listeners), i, i+1)
		}
	}
}

// OnRemoteData sets the callback fired when a viewer supplies new content
func (h *Hub) OnRemoteData(fn func(data Data, origin string)) {
	h.onRemote = fn
}

// Data returns the current content
func (h *Hub) Data() Data {
	return h.data
}

// Origin returns the viewer that owns the content, empty when local
func (h *Hub) Origin() string {
	return h.origin
}

// SetLocal replaces the content from the desktop side
func (h *Hub) SetLocal(data Data) {
	h.set(data, "")
}

// SetRemote replaces the content with data received from a viewer
func (h *Hub) SetRemote(data Data, origin string) {
	h.set(data, origin)
	if h.onRemote != nil {
		h.onRemote(data, origin)
	}
}

func (h *Hub) set(data Data, origin string) {
	h.data = data.Clone()
	h.origin = origin
	for _, l := range slices.Clone(h.listeners) {
		if !slices.Contains(h.listeners, l) {
			continue
		}
		l.ClipboardChanged(h.data, origin)
	}
}
