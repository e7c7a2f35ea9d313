package publisher

import (
	"time"

	"framestream-go/internal/types"
)

// ReportInterval is the default throughput reporting window.
const ReportInterval = time.Second

// Snapshot is the throughput of the last completed reporting window plus
// lifetime totals.
type Snapshot struct {
	FPS          float64   `json:"fps"`
	RGBFPS       float64   `json:"rgb_fps"`
	DepthFPS     float64   `json:"depth_fps"`
	Dropped      int       `json:"dropped"`
	EncodeSendMs float64   `json:"encode_send_ms"`
	SentTotal    uint64    `json:"sent_total"`
	DroppedTotal uint64    `json:"dropped_total"`
	LastReport   time.Time `json:"last_report"`
}

// Stats counts send attempts over a fixed window. It is only mutated after a
// send attempt and is guarded by the publisher's lock.
type Stats struct {
	window      time.Duration
	windowStart time.Time

	frames     int
	rgb        int
	depth      int
	dropped    int
	encodeSend time.Duration

	sentTotal    uint64
	droppedTotal uint64
	last         Snapshot
}

func newStats(window time.Duration, now time.Time) *Stats {
	if window <= 0 {
		window = ReportInterval
	}
	return &Stats{window: window, windowStart: now}
}

func (s *Stats) sent(st types.StreamType, took time.Duration, now time.Time) (Snapshot, bool) {
	s.frames++
	s.sentTotal++
	switch st {
	case types.StreamRGB:
		s.rgb++
	case types.StreamDepth:
		s.depth++
	}
	s.encodeSend += took
	return s.roll(now)
}

func (s *Stats) drop(now time.Time) (Snapshot, bool) {
	s.dropped++
	s.droppedTotal++
	return s.roll(now)
}

// roll closes the window once it has elapsed and returns its summary.
func (s *Stats) roll(now time.Time) (Snapshot, bool) {
	elapsed := now.Sub(s.windowStart)
	if elapsed < s.window {
		return Snapshot{}, false
	}
	secs := elapsed.Seconds()
	snap := Snapshot{
		FPS:          float64(s.frames) / secs,
		RGBFPS:       float64(s.rgb) / secs,
		DepthFPS:     float64(s.depth) / secs,
		Dropped:      s.dropped,
		SentTotal:    s.sentTotal,
		DroppedTotal: s.droppedTotal,
		LastReport:   now,
	}
	if s.frames > 0 {
		snap.EncodeSendMs = float64(s.encodeSend.Microseconds()) / 1000 / float64(s.frames)
	}
	s.last = snap
	s.frames, s.rgb, s.depth, s.dropped = 0, 0, 0, 0
	s.encodeSend = 0
	s.windowStart = now
	return snap, true
}

func (s *Stats) snapshot() Snapshot {
	snap := s.last
	snap.SentTotal = s.sentTotal
	snap.DroppedTotal = s.droppedTotal
	return snap
}
