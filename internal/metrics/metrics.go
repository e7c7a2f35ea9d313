package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the publisher's counters. Fields are updated lock-free and
// exported to Prometheus through gauge functions.
type Metrics struct {
	RGBFramesSent   atomic.Uint64
	DepthFramesSent atomic.Uint64
	FramesDropped   atomic.Uint64
	SendErrors      atomic.Uint64
	ShapeErrors     atomic.Uint64
	BytesSent       atomic.Uint64

	CapturesIssued    atomic.Uint64
	CapturesFailed    atomic.Uint64
	CapturesCompleted atomic.Uint64
	LateCompletions   atomic.Uint64
	InboxDrops        atomic.Uint64

	EncodeSendMicros   atomic.Uint64
	SubscriberDetected atomic.Uint64
	RecordErrors       atomic.Uint64

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		v    *atomic.Uint64
	}{
		{"framestream_rgb_frames_sent_total", "RGB frames handed to the transport", &m.RGBFramesSent},
		{"framestream_depth_frames_sent_total", "Depth frames handed to the transport", &m.DepthFramesSent},
		{"framestream_frames_dropped_total", "Frames dropped because the transport was busy", &m.FramesDropped},
		{"framestream_send_errors_total", "Frames lost to transport errors", &m.SendErrors},
		{"framestream_shape_errors_total", "Captures rejected for a resolution mismatch", &m.ShapeErrors},
		{"framestream_bytes_sent_total", "Message bytes handed to the transport", &m.BytesSent},
		{"framestream_captures_issued_total", "Capture requests issued", &m.CapturesIssued},
		{"framestream_captures_failed_total", "Capture requests the capture subsystem refused", &m.CapturesFailed},
		{"framestream_captures_completed_total", "Capture completions received", &m.CapturesCompleted},
		{"framestream_late_completions_total", "Completions discarded as unknown or after shutdown", &m.LateCompletions},
		{"framestream_inbox_drops_total", "Completions dropped because the inbox was full", &m.InboxDrops},
		{"framestream_encode_send_micros", "Encode and send time of the last frame in microseconds", &m.EncodeSendMicros},
		{"framestream_subscriber_detected", "Subscriber seen at startup (0 or 1)", &m.SubscriberDetected},
		{"framestream_record_errors_total", "Frames that could not be written to the recording", &m.RecordErrors},
	}
	for _, g := range gauges {
		v := g.v
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(v.Load()) },
		))
	}
}

// ObserveEncodeSend records the latency of the last encode+send.
func (m *Metrics) ObserveEncodeSend(d time.Duration) {
	m.EncodeSendMicros.Store(uint64(d.Microseconds()))
}

func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"rgb_frames_sent_total":    m.RGBFramesSent.Load(),
		"depth_frames_sent_total":  m.DepthFramesSent.Load(),
		"frames_dropped_total":     m.FramesDropped.Load(),
		"send_errors_total":        m.SendErrors.Load(),
		"shape_errors_total":       m.ShapeErrors.Load(),
		"bytes_sent_total":         m.BytesSent.Load(),
		"captures_issued_total":    m.CapturesIssued.Load(),
		"captures_failed_total":    m.CapturesFailed.Load(),
		"captures_completed_total": m.CapturesCompleted.Load(),
		"late_completions_total":   m.LateCompletions.Load(),
		"inbox_drops_total":        m.InboxDrops.Load(),
		"encode_send_micros":       m.EncodeSendMicros.Load(),
		"subscriber_detected":      m.SubscriberDetected.Load(),
		"record_errors_total":      m.RecordErrors.Load(),
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
