package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/rdesk/internal/host"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/rdesk/internal/peer"
)

type fixedStatus struct {
	st  host.Status
	err error
}

func (f fixedStatus) Status(context.Context) (host.Status, error) {
	return f.st, f.err
}

func router(src StatusSource, metrics *monitoring.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(src, metrics, "test")
	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/metrics", h.Metrics)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	metrics := monitoring.NewMetrics()
	ok := router(fixedStatus{st: host.Status{Frame: 7, Peers: []host.PeerStatus{{ID: "peer_a"}}}}, metrics)
	w := get(ok, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 1, body["peers"])

	down := router(fixedStatus{err: errors.New("desktop loop stopped")}, metrics)
	w = get(down, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusIncludesDesktopAndMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	metrics.FrameSent(peer.SurfaceUpdates, 3, 300)
	st := host.Status{
		Width:  1280,
		Height: 800,
		Peers:  []host.PeerStatus{{ID: "peer_a", State: "active", Mode: "surface"}},
	}
	w := get(router(fixedStatus{st: st}, metrics), "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body StatusResponse
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 1280, body.Desktop.Width)
	require.Len(t, body.Desktop.Peers, 1)
	assert.Equal(t, "surface", body.Desktop.Peers[0].Mode)
	assert.Equal(t, int64(1), body.Metrics.FramesSent["surface"])
	assert.Equal(t, int64(300), body.Metrics.BytesSent)
}

func TestMetricsExposition(t *testing.T) {
	metrics := monitoring.NewMetrics()
	metrics.SetPeersActive(2)
	w := get(router(fixedStatus{}, metrics), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rdesk_peers_active 2")
}

func TestRoot(t *testing.T) {
	w := get(router(fixedStatus{}, monitoring.NewMetrics()), "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"rdesk"`)
}
