package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExportsCounters(t *testing.T) {
	m := New()
	m.RGBFramesSent.Add(3)
	m.FramesDropped.Add(2)
	m.ObserveEncodeSend(1500 * time.Microsecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		"framestream_rgb_frames_sent_total 3",
		"framestream_frames_dropped_total 2",
		"framestream_encode_send_micros 1500",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestSnapshot(t *testing.T) {
	m := New()
	m.ShapeErrors.Add(1)
	snap := m.Snapshot()
	if snap["shape_errors_total"].(uint64) != 1 {
		t.Fatalf("unexpected shape_errors_total: %v", snap["shape_errors_total"])
	}
}
