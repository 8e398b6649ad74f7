package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/rdesk/internal/codec"
	"github.com/GriffinCanCode/rdesk/internal/peer"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Peer metrics
	PeersActive    prometheus.Gauge
	SessionsClosed *prometheus.CounterVec
	TilesSent      *prometheus.CounterVec
	BytesSent      *prometheus.CounterVec
	FramesSent     *prometheus.CounterVec
	EncodeFailures *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec
	WSDropped      prometheus.Counter

	// Desktop metrics
	FramesComposed prometheus.Counter
	StageDuration  *prometheus.HistogramVec
	DirtyArea      prometheus.Histogram
	ReducedArea    prometheus.Histogram
	Windows        prometheus.Gauge

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the status endpoint
type Snapshot struct {
	TotalRequests  int64            `json:"total_requests"`
	ActivePeers    int64            `json:"active_peers"`
	FramesComposed int64            `json:"frames_composed"`
	FramesSent     map[string]int64 `json:"frames_sent"`
	BytesSent      int64            `json:"bytes_sent"`
	EncodeFailures int64            `json:"encode_failures"`
	Sessions       map[string]int64 `json:"sessions_closed"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
}

var areaBuckets = prometheus.ExponentialBuckets(64*64, 4, 8)

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		snapshot: Snapshot{
			FramesSent: make(map[string]int64),
			Sessions:   make(map[string]int64),
		},

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rdesk_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		PeersActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "rdesk_peers_active",
			Help: "Number of connected viewers",
		}),
		SessionsClosed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdesk_sessions_closed_total",
				Help: "Viewer sessions closed, by outcome",
			},
			[]string{"outcome"},
		),
		TilesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdesk_tiles_sent_total",
				Help: "Rectangles sent to viewers, by render mode",
			},
			[]string{"mode"},
		),
		BytesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdesk_update_bytes_total",
				Help: "Encoded pixel bytes sent to viewers, by render mode",
			},
			[]string{"mode"},
		),
		FramesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdesk_frames_sent_total",
				Help: "Update batches sent to viewers, by render mode",
			},
			[]string{"mode"},
		),
		EncodeFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdesk_encode_failures_total",
				Help: "Tiles skipped after an encoder failure, by scheme",
			},
			[]string{"scheme"},
		),
		WSMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rdesk_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		WSDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "rdesk_ws_backpressure_total",
			Help: "Batches refused because a viewer send queue was full",
		}),

		FramesComposed: f.NewCounter(prometheus.CounterOpts{
			Name: "rdesk_frames_composed_total",
			Help: "Frame ticks that composed damage",
		}),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rdesk_tick_stage_duration_seconds",
				Help:    "Frame tick stage duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"stage"},
		),
		DirtyArea: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rdesk_dirty_area_pixels",
			Help:    "Composed dirty area per frame",
			Buckets: areaBuckets,
		}),
		ReducedArea: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rdesk_reduced_area_pixels",
			Help:    "Changed tile area per frame after the compositor diff",
			Buckets: areaBuckets,
		}),
		Windows: f.NewGauge(prometheus.GaugeOpts{
			Name: "rdesk_windows",
			Help: "Windows on the desktop",
		}),
	}

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rdesk_uptime_seconds",
		Help: "Server uptime in seconds",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	return m
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordBackpressure counts a refused send batch
func (m *Metrics) RecordBackpressure() {
	m.WSDropped.Inc()
}

// RecordFrame records one composed frame
func (m *Metrics) RecordFrame(dirtyArea, reducedArea int, tiles bool) {
	m.FramesComposed.Inc()
	m.DirtyArea.Observe(float64(dirtyArea))
	if tiles {
		m.ReducedArea.Observe(float64(reducedArea))
	}
	m.mu.Lock()
	m.snapshot.FramesComposed++
	m.mu.Unlock()
}

// SetPeersActive sets the number of connected viewers
func (m *Metrics) SetPeersActive(count int) {
	m.PeersActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActivePeers = int64(count)
	m.mu.Unlock()
}

// SetWindows sets the number of windows
func (m *Metrics) SetWindows(count int) {
	m.Windows.Set(float64(count))
}

// FrameSent implements peer.Observer
func (m *Metrics) FrameSent(mode peer.RenderMode, rects, bytes int) {
	m.FramesSent.WithLabelValues(mode.String()).Inc()
	m.TilesSent.WithLabelValues(mode.String()).Add(float64(rects))
	m.BytesSent.WithLabelValues(mode.String()).Add(float64(bytes))

	m.mu.Lock()
	m.snapshot.FramesSent[mode.String()]++
	m.snapshot.BytesSent += int64(bytes)
	m.mu.Unlock()
}

// EncodeFailed implements peer.Observer
func (m *Metrics) EncodeFailed(scheme codec.Scheme) {
	m.EncodeFailures.WithLabelValues(scheme.String()).Inc()
	m.mu.Lock()
	m.snapshot.EncodeFailures++
	m.mu.Unlock()
}

// SessionClosed implements peer.Observer
func (m *Metrics) SessionClosed(outcome string) {
	m.SessionsClosed.WithLabelValues(outcome).Inc()
	m.mu.Lock()
	m.snapshot.Sessions[outcome]++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.snapshot
	out.FramesSent = make(map[string]int64, len(m.snapshot.FramesSent))
	for k, v := range m.snapshot.FramesSent {
		out.FramesSent[k] = v
	}
	out.Sessions = make(map[string]int64, len(m.snapshot.Sessions))
	for k, v := range m.snapshot.Sessions {
		out.Sessions[k] = v
	}
	out.UptimeSeconds = time.Since(m.startTime).Seconds()
	return out
}

var _ peer.Observer = (*Metrics)(nil)
