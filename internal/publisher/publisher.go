// Package publisher turns frame buffers into wire messages and hands them to
// a non-blocking transport, dropping frames instead of queueing them.
package publisher

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"framestream-go/internal/logging"
	"framestream-go/internal/metrics"
	"framestream-go/internal/transport"
	"framestream-go/internal/types"
	"framestream-go/internal/wire"
)

var ErrClosed = errors.New("publisher closed")

// Transport is a bound outbound socket. TrySend must return
// transport.ErrWouldBlock instead of blocking when it cannot enqueue.
type Transport interface {
	TrySend(msg []byte) error
	Close() error
}

// Recorder receives a copy of every message that was handed to the transport.
type Recorder interface {
	Record(st types.StreamType, msg []byte) error
}

// Options configures a Publisher. DropLogEvery logs one of every N drops;
// values <= 1 log all of them.
type Options struct {
	Logger         zerolog.Logger
	DropLogEvery   int
	ReportInterval time.Duration
	Metrics        *metrics.Metrics
	Recorder       Recorder
	Now            func() time.Time
}

type Publisher struct {
	mu     sync.Mutex
	tr     Transport
	closed bool
	stats  *Stats

	log     zerolog.Logger
	dropLog zerolog.Logger
	metrics *metrics.Metrics
	rec     Recorder
	now     func() time.Time
}

func New(tr Transport, opts Options) *Publisher {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	log := logging.Component(opts.Logger, "publisher")
	return &Publisher{
		tr:      tr,
		stats:   newStats(opts.ReportInterval, now()),
		log:     log,
		dropLog: logging.Sampled(log, opts.DropLogEvery),
		metrics: m,
		rec:     opts.Recorder,
		now:     now,
	}
}

// SendFrame makes one non-blocking attempt to publish buf as stream st.
// It reports whether the message was handed to the transport. A busy or
// failing transport is not an error: the frame is dropped, counted and
// logged. Errors are returned for an unknown stream type (wrapping
// wire.ErrUnknownStreamType), an invalid buffer, or a closed publisher.
func (p *Publisher) SendFrame(buf *types.FrameBuffer, st types.StreamType) (bool, error) {
	if !st.Valid() {
		return false, fmt.Errorf("%w: %v", wire.ErrUnknownStreamType, st)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, ErrClosed
	}

	start := p.now()
	msg, err := wire.Build(buf, st)
	if err != nil {
		return false, fmt.Errorf("build %s message: %w", st, err)
	}
	err = p.tr.TrySend(msg)
	end := p.now()
	took := end.Sub(start)

	if err != nil {
		snap, rolled := p.stats.drop(end)
		p.metrics.FramesDropped.Add(1)
		if errors.Is(err, transport.ErrWouldBlock) {
			p.dropLog.Warn().Str("stream", st.String()).Msg("transport busy, frame dropped")
		} else {
			p.metrics.SendErrors.Add(1)
			p.dropLog.Warn().Err(err).Str("stream", st.String()).Msg("send failed, frame dropped")
		}
		if rolled {
			p.report(snap)
		}
		return false, nil
	}

	p.metrics.ObserveEncodeSend(took)
	p.metrics.BytesSent.Add(uint64(len(msg)))
	if st == types.StreamRGB {
		p.metrics.RGBFramesSent.Add(1)
	} else {
		p.metrics.DepthFramesSent.Add(1)
	}
	if p.rec != nil {
		if err := p.rec.Record(st, msg); err != nil {
			p.metrics.RecordErrors.Add(1)
			p.dropLog.Warn().Err(err).Msg("recording failed")
		}
	}
	if snap, rolled := p.stats.sent(st, took, end); rolled {
		p.report(snap)
	}
	return true, nil
}

func (p *Publisher) report(s Snapshot) {
	p.log.Info().
		Float64("fps", s.FPS).
		Float64("rgb", s.RGBFPS).
		Float64("depth", s.DepthFPS).
		Int("dropped", s.Dropped).
		Float64("encode_send_ms", s.EncodeSendMs).
		Msg("throughput")
}

// Stats returns the last completed reporting window and lifetime totals.
func (p *Publisher) Stats() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshot()
}

// Close releases the transport without waiting for pending sends.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	return p.tr.Close()
}
