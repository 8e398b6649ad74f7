package peer

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/clipboard"
	"github.com/GriffinCanCode/rdesk/internal/cursor"
	"github.com/GriffinCanCode/rdesk/internal/display"
	"github.com/GriffinCanCode/rdesk/internal/shared/id"
	"github.com/GriffinCanCode/rdesk/internal/wm"
)

// Registry tracks the connected sessions and fans desktop events out to
// them. It implements wm.CursorListener and wm.MonitorListener.
type Registry struct {
	log      *zap.Logger
	hub      *clipboard.Hub
	sessions map[id.PeerID]*Session
	unsub    map[id.PeerID]func()
}

// NewRegistry creates an empty registry. hub may be nil.
func NewRegistry(hub *clipboard.Hub, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:      log.Named("registry"),
		hub:      hub,
		sessions: make(map[id.PeerID]*Session),
		unsub:    make(map[id.PeerID]func()),
	}
}

// Add registers a session; it is removed automatically when it closes
func (r *Registry) Add(s *Session) {
	r.sessions[s.ID()] = s
	if r.hub != nil {
		r.unsub[s.ID()] = r.hub.Subscribe(s)
	}
	prev := s.onClose
	s.SetOnClose(func(closed *Session) {
		r.Remove(closed.ID())
		if prev != nil {
			prev(closed)
		}
	})
	r.log.Debug("Session registered", zap.String("peer_id", s.ID().String()), zap.Int("sessions", len(r.sessions)))
}

// Remove forgets a session without closing it
func (r *Registry) Remove(peerID id.PeerID) {
	if _, ok := r.sessions[peerID]; !ok {
		return
	}
	delete(r.sessions, peerID)
	if unsub, ok := r.unsub[peerID]; ok {
		unsub()
		delete(r.unsub, peerID)
	}
	r.log.Debug("Session removed", zap.String("peer_id", peerID.String()), zap.Int("sessions", len(r.sessions)))
}

// Get returns a session by id
func (r *Registry) Get(peerID id.PeerID) (*Session, bool) {
	s, ok := r.sessions[peerID]
	return s, ok
}

// Len returns the number of sessions
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Sessions returns the sessions in connection order
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Session) int {
		return strings.Compare(a.ID().String(), b.ID().String())
	})
	return out
}

// NeedsTiles reports whether any session consumes reduced tiles, so the
// window manager knows whether to run the compositor diff
func (r *Registry) NeedsTiles() bool {
	for _, s := range r.sessions {
		if s.NeedsTiles() {
			return true
		}
	}
	return false
}

// Repaint hands one frame to every session
func (r *Registry) Repaint(frame wm.Frame) {
	for _, s := range r.Sessions() {
		s.Repaint(frame)
	}
}

// Flush retries pending damage on every session
func (r *Registry) Flush() {
	for _, s := range r.Sessions() {
		s.Flush()
	}
}

// CursorChanged implements wm.CursorListener
func (r *Registry) CursorChanged(shape *cursor.Shape) {
	for _, s := range r.Sessions() {
		s.SetCursor(shape)
	}
}

// MonitorsChanged implements wm.MonitorListener
func (r *Registry) MonitorsChanged(plan display.Plan) {
	for _, s := range r.Sessions() {
		s.MonitorsChanged(plan)
	}
}

// CloseAll closes every session
func (r *Registry) CloseAll(reason error) {
	for _, s := range r.Sessions() {
		s.Close(reason)
	}
}
