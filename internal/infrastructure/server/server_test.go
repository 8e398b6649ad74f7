package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GriffinCanCode/rdesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/rdesk/internal/protocol"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Desktop.Width, cfg.Desktop.Height = 320, 200
	cfg.Desktop.FrameRate = 60
	cfg.Desktop.Demo = false
	return cfg
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "error", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	return logger
}

// serve runs the server on a loopback port until the test ends
func serve(t *testing.T, cfg *config.Config) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	srv, err := NewServer(cfg, testLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(cancel)
	return ln.Addr().String(), cancel, done
}

func TestNewServerRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Session.DisplayMode = "turbo"
	_, err := NewServer(cfg, testLogger(t))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Desktop.Theme = "/nonexistent/theme.yaml"
	_, err = NewServer(cfg, testLogger(t))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Server.PasswordHash = "not-a-bcrypt-hash"
	_, err = NewServer(cfg, testLogger(t))
	assert.Error(t, err)
}

func TestConnectRequiresPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Server.PasswordHash = string(hash)
	addr, _, _ := serve(t, cfg)

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	_, resp, err := d.Dial("ws://"+addr+"/connect", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := d.Dial("ws://"+addr+"/connect?token=s3cret", nil)
	require.NoError(t, err)
	conn.Close()
}

func TestServeEndToEnd(t *testing.T) {
	addr, cancel, done := serve(t, testConfig())

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	d := websocket.Dialer{Subprotocols: []string{protocol.SubprotocolJSON}, HandshakeTimeout: 5 * time.Second}
	conn, _, err := d.Dial("ws://"+addr+"/connect", nil)
	require.NoError(t, err)
	defer conn.Close()

	data, err := protocol.JSON.Encode(protocol.ChannelMain, protocol.ClientHello{
		ColorDepth: 32, Width: 320, Height: 200, Codecs: []string{"planar"}, CursorCacheSize: 2,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	_, msg, err := protocol.JSON.Decode(data)
	require.NoError(t, err)
	hello, ok := msg.(protocol.ServerHello)
	require.True(t, ok)
	assert.Equal(t, 320, hello.Width)

	resp, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	// The viewer sees its session end.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.False(t, strings.Contains(err.Error(), "timeout"), "got %v", err)
			break
		}
	}
}
