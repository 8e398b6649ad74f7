package ws

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/rdesk/internal/peer"
	"github.com/GriffinCanCode/rdesk/internal/protocol"
)

// Host owns the sessions. Attach runs on the event loop via Post.
type Host interface {
	// Post runs fn on the event loop; it reports false once the loop stopped
	Post(fn func()) bool
	// Attach creates and registers a session for a new transport
	Attach(t peer.Transport) *peer.Session
}

// Handler manages WebSocket connections
type Handler struct {
	host     Host
	opts     Options
	log      *zap.Logger
	rec      Recorder
	tracer   *tracing.Tracer
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(host Host, opts Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		host: host,
		opts: opts,
		log:  log.Named("ws"),
		rec:  nopRecorder{},
		upgrader: websocket.Upgrader{
			Subprotocols: protocol.Subprotocols(),
			// Origins are enforced by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetRecorder routes traffic counts to rec
func (h *Handler) SetRecorder(rec Recorder) {
	if rec != nil {
		h.rec = rec
	}
}

// SetTracer emits one span per viewer session
func (h *Handler) SetTracer(t *tracing.Tracer) {
	h.tracer = t
}

// HandleConnection upgrades the request and runs the viewer session until
// either side closes
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.String("remote", c.ClientIP()), zap.Error(err))
		return
	}
	wire, ok := protocol.ForSubprotocol(conn.Subprotocol())
	if !ok {
		h.log.Warn("Unsupported subprotocol", zap.String("subprotocol", conn.Subprotocol()))
		conn.Close()
		return
	}

	log := h.log.With(zap.String("remote", c.ClientIP()), zap.String("subprotocol", wire.Subprotocol()))
	tc := newConn(conn, wire, h.opts, log, h.rec)
	go tc.writeLoop()

	var session *peer.Session
	attached := make(chan string, 1)
	if !h.host.Post(func() {
		session = h.host.Attach(tc)
		attached <- session.ID().String()
	}) {
		log.Info("Rejecting viewer during shutdown")
		tc.Close()
		return
	}
	peerID := <-attached
	log = log.With(zap.String("peer_id", peerID))
	log.Info("Viewer connected")

	var span *tracing.Span
	if h.tracer != nil {
		span, _ = h.tracer.StartSpan(c.Request.Context(), "viewer.session")
		span.SetTag("peer_id", peerID)
		span.SetTag("subprotocol", wire.Subprotocol())
	}

	readErr := tc.readLoop(func(ch protocol.Channel, msg protocol.Message) {
		h.host.Post(func() {
			err := session.HandleMessage(ch, msg)
			if err != nil && !errors.Is(err, peer.ErrSessionClosed) {
				log.Warn("Viewer message rejected", zap.String("type", string(msg.Type())), zap.Error(err))
			}
		})
	})

	result := make(chan error, 1)
	if !h.host.Post(func() {
		if session.State() != peer.StateClosed {
			session.Close(closeReason(readErr))
		}
		result <- session.Err()
	}) {
		tc.Close()
		result <- nil
	}
	sessionErr := <-result
	log.Info("Viewer disconnected", zap.Error(sessionErr))

	if span != nil {
		if sessionErr != nil {
			span.SetError(sessionErr)
		}
		span.Finish()
		h.tracer.Submit(span)
	}
}

// closeReason maps a read failure to a session close reason. A clean close
// from the viewer is a normal end.
func closeReason(err error) error {
	if err == nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return fmt.Errorf("%w: %w", peer.ErrTransportFailure, err)
}
