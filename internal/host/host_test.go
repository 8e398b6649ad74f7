package host

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/rdesk/internal/input"
	"github.com/GriffinCanCode/rdesk/internal/peer"
	"github.com/GriffinCanCode/rdesk/internal/protocol"
	"github.com/GriffinCanCode/rdesk/internal/theme"
)

type syncTransport struct {
	mu     sync.Mutex
	sent   []protocol.Message
	closed bool
}

func (t *syncTransport) Send(_ protocol.Channel, msgs ...protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msgs...)
	return nil
}

func (t *syncTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *syncTransport) count(kind protocol.Type) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, m := range t.sent {
		if m.Type() == kind {
			n++
		}
	}
	return n
}

func (t *syncTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func testConfig() Config {
	return Config{
		Width:         256,
		Height:        192,
		FrameInterval: 5 * time.Millisecond,
		Theme:         theme.Default(),
		Session:       peer.DefaultConfig(),
		Demo:          true,
	}
}

func hello() protocol.ClientHello {
	return protocol.ClientHello{ColorDepth: 32, Width: 256, Height: 192, Codecs: []string{"bitmap"}, CursorCacheSize: 4}
}

// start runs the loop until the test ends
func start(t *testing.T, cfg Config) (*Host, context.CancelFunc) {
	t.Helper()
	h, err := New(cfg, nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func TestNewRejectsZeroFrameInterval(t *testing.T) {
	cfg := testConfig()
	cfg.FrameInterval = 0
	_, err := New(cfg, nil, nil)
	assert.Error(t, err)
}

func TestAttachedViewerReceivesFrames(t *testing.T) {
	h, _ := start(t, testConfig())
	tr := &syncTransport{}

	var helloErr error
	require.NoError(t, h.Call(context.Background(), func() {
		helloErr = h.Attach(tr).HandleMessage(protocol.ChannelMain, hello())
	}))
	require.NoError(t, helloErr)

	require.Eventually(t, func() bool {
		return tr.count("bitmap_update") >= 3
	}, 5*time.Second, 5*time.Millisecond, "activation frame plus animation")
	assert.Equal(t, 1, tr.count("server_hello"))

	st, err := h.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Peers, 1)
	assert.Equal(t, "active", st.Peers[0].State)
	assert.Equal(t, "raw", st.Peers[0].Mode)
	assert.Equal(t, "bitmap", st.Peers[0].Scheme)
	assert.Equal(t, 1, st.Windows)
	assert.Equal(t, 256, st.Width)
	require.Len(t, st.Monitors, 1)
	assert.True(t, st.Monitors[0].Primary)
	assert.NotZero(t, st.Frame)
}

func TestShutdownClosesSessions(t *testing.T) {
	h, cancel := start(t, testConfig())
	tr := &syncTransport{}
	require.NoError(t, h.Call(context.Background(), func() { h.Attach(tr) }))

	cancel()
	<-h.Done()

	assert.True(t, tr.isClosed())
	assert.False(t, h.Post(func() {}))
	_, err := h.Status(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestCallHonoursContext(t *testing.T) {
	h, err := New(testConfig(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// The loop is not running, so the call can only end through ctx.
	assert.ErrorIs(t, h.Call(ctx, func() {}), context.DeadlineExceeded)
}

func TestPatternAnimatesUntilPaused(t *testing.T) {
	h, err := New(testConfig(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, h.demo)

	h.tick()
	h.tick()
	h.tick()
	assert.Equal(t, uint64(3), h.lastSeq, "every tick carries damage")

	h.demo.HandleInput(input.Event{Pointer: &input.PointerEvent{Kind: input.PointerPress}})
	h.tick()
	assert.Equal(t, uint64(3), h.lastSeq, "paused pattern is idle")

	h.demo.CloseRequested()
	h.tick()
	h.tick()
	assert.Equal(t, uint64(4), h.lastSeq, "closing exposes the background once")
	assert.Empty(t, h.desktop.Windows())
}
