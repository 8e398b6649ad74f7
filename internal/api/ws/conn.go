package ws

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/peer"
	"github.com/GriffinCanCode/rdesk/internal/protocol"
)

// ErrClosed is returned by Send once the connection is closed
var ErrClosed = errors.New("connection closed")

// Options tune one viewer connection
type Options struct {
	// SendQueue is the number of message batches buffered per viewer
	SendQueue      int
	MaxMessageSize int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
}

// DefaultOptions returns the connection defaults
func DefaultOptions() Options {
	return Options{
		SendQueue:      256,
		MaxMessageSize: 1 << 20,
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		PingInterval:   50 * time.Second,
	}
}

// Recorder receives traffic counts. *monitoring.Metrics satisfies it.
type Recorder interface {
	RecordWSMessage(direction, msgType string)
	RecordBackpressure()
}

type nopRecorder struct{}

func (nopRecorder) RecordWSMessage(string, string) {}
func (nopRecorder) RecordBackpressure()            {}

type frame struct {
	kind protocol.Type
	data []byte
}

// Conn is one viewer connection. It implements peer.Transport.
type Conn struct {
	ws      *websocket.Conn
	wire    protocol.Codec
	msgType int
	opts    Options
	log     *zap.Logger
	rec     Recorder

	mu     sync.Mutex
	queue  chan []frame
	closed bool
	done   chan struct{}
}

func newConn(conn *websocket.Conn, wire protocol.Codec, opts Options, log *zap.Logger, rec Recorder) *Conn {
	msgType := websocket.TextMessage
	if wire.Binary() {
		msgType = websocket.BinaryMessage
	}
	return &Conn{
		ws:      conn,
		wire:    wire,
		msgType: msgType,
		opts:    opts,
		log:     log,
		rec:     rec,
		queue:   make(chan []frame, max(1, opts.SendQueue)),
		done:    make(chan struct{}),
	}
}

// Send encodes and queues one batch. The whole batch is refused with
// peer.ErrBackpressure when the queue is full.
func (c *Conn) Send(ch protocol.Channel, msgs ...protocol.Message) error {
	batch := make([]frame, 0, len(msgs))
	for _, m := range msgs {
		data, err := c.wire.Encode(ch, m)
		if err != nil {
			return fmt.Errorf("encode %s: %w", m.Type(), err)
		}
		batch = append(batch, frame{kind: m.Type(), data: data})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.queue <- batch:
		return nil
	default:
		c.rec.RecordBackpressure()
		return peer.ErrBackpressure
	}
}

// Close stops the writer. Batches already queued are still written.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// Subprotocol returns the negotiated wire format
func (c *Conn) Subprotocol() string {
	return c.wire.Subprotocol()
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case batch := <-c.queue:
			if err := c.write(batch); err != nil {
				c.log.Debug("WebSocket write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.log.Debug("WebSocket ping failed", zap.Error(err))
				c.Close()
				return
			}
		case <-c.done:
			c.drain()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
			return
		}
	}
}

// drain flushes batches queued before Close, such as a rejection error
func (c *Conn) drain() {
	for {
		select {
		case batch := <-c.queue:
			if err := c.write(batch); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(batch []frame) error {
	for _, f := range batch {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return err
		}
		if err := c.ws.WriteMessage(c.msgType, f.data); err != nil {
			return err
		}
		c.rec.RecordWSMessage("out", string(f.kind))
	}
	return nil
}

// readLoop decodes viewer messages until the connection fails. Frames that
// do not decode are logged and skipped.
func (c *Conn) readLoop(handle func(protocol.Channel, protocol.Message)) error {
	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	extend := func() error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	}
	if err := extend(); err != nil {
		return err
	}
	c.ws.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if err := extend(); err != nil {
			return err
		}
		ch, msg, err := c.wire.Decode(data)
		if err != nil {
			c.log.Warn("Dropping undecodable message", zap.Int("bytes", len(data)), zap.Error(err))
			continue
		}
		c.rec.RecordWSMessage("in", string(msg.Type()))
		handle(ch, msg)
	}
}

var _ peer.Transport = (*Conn)(nil)
