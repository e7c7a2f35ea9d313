// Package scheduler drives the RGB and depth capture cadence and routes
// completed captures through the codec to the publisher.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"framestream-go/internal/codec"
	"framestream-go/internal/logging"
	"framestream-go/internal/metrics"
	"framestream-go/internal/types"
	"framestream-go/internal/wire"
)

const (
	DefaultLoopHz         = 60
	DefaultInboxSize      = 16
	DefaultPendingTimeout = 5 * time.Second
)

// ConfigSnapshot holds the capture frequencies in effect for one tick.
type ConfigSnapshot struct {
	RGBHz   float64
	DepthHz float64
}

// ConfigSource is read once per tick.
type ConfigSource func() ConfigSnapshot

// Capturer issues capture requests to the capture subsystem. Results come
// back later through Scheduler.Complete.
type Capturer interface {
	Capture(req types.CaptureRequest) error
}

type FramePublisher interface {
	SendFrame(buf *types.FrameBuffer, st types.StreamType) (bool, error)
}

type Options struct {
	RGB            types.CameraStreamConfig
	Depth          types.CameraStreamConfig
	DepthPolicy    codec.DepthPolicy
	LoopHz         float64
	InboxSize      int
	PendingTimeout time.Duration
	Rand           *rand.Rand
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

type Scheduler struct {
	cfg      ConfigSource
	capturer Capturer
	pub      FramePublisher
	opts     Options
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// Loop-owned state.
	rgbAcc   float64
	depthAcc float64
	nextID   uint64
	pending  *registry

	pendingCount atomic.Int64
	inbox        chan types.CaptureResult
	done         chan struct{}
	stopOnce     sync.Once
}

func New(cfg ConfigSource, capturer Capturer, pub FramePublisher, opts Options) *Scheduler {
	if opts.LoopHz <= 0 {
		opts.LoopHz = DefaultLoopHz
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}
	if opts.PendingTimeout <= 0 {
		opts.PendingTimeout = DefaultPendingTimeout
	}
	if opts.DepthPolicy == (codec.DepthPolicy{}) {
		opts.DepthPolicy = codec.DefaultDepthPolicy()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Scheduler{
		cfg:      cfg,
		capturer: capturer,
		pub:      pub,
		opts:     opts,
		log:      logging.Component(opts.Logger, "scheduler"),
		metrics:  m,
		now:      now,
		pending:  newRegistry(),
		inbox:    make(chan types.CaptureResult, opts.InboxSize),
		done:     make(chan struct{}),
	}
}

// Tick advances both timers by dt and issues at most one capture per
// channel. A timer that fires restarts from zero, so time lost to a long
// tick is not carried over. A frequency <= 0 never fires.
func (s *Scheduler) Tick(dt time.Duration) {
	snap := s.cfg()
	step := dt.Seconds()
	s.rgbAcc += step
	s.depthAcc += step

	if due(s.rgbAcc, snap.RGBHz) {
		s.rgbAcc = 0
		s.issue(types.OutputRGB, s.opts.RGB)
	}
	if due(s.depthAcc, snap.DepthHz) {
		s.depthAcc = 0
		s.issue(types.OutputDepth, s.opts.Depth)
	}

	if n := s.pending.expire(s.now().Add(-s.opts.PendingTimeout)); n > 0 {
		s.log.Warn().Int("count", n).Msg("captures expired without completion")
	}
	s.pendingCount.Store(int64(s.pending.len()))
}

func due(acc, hz float64) bool {
	return hz > 0 && acc >= 1/hz
}

func (s *Scheduler) issue(mode types.OutputMode, cam types.CameraStreamConfig) {
	s.nextID++
	req := types.CaptureRequest{
		ID:       s.nextID,
		Mode:     mode,
		Width:    cam.Width,
		Height:   cam.Height,
		IssuedAt: s.now(),
	}
	s.pending.add(req)
	defer func() { s.pendingCount.Store(int64(s.pending.len())) }()
	if err := s.capturer.Capture(req); err != nil {
		s.pending.take(req.ID)
		s.metrics.CapturesFailed.Add(1)
		s.log.Warn().Err(err).Uint64("id", req.ID).Str("mode", mode.String()).Msg("capture request failed")
		return
	}
	s.metrics.CapturesIssued.Add(1)
}

// Complete hands a finished capture to the control loop. It never blocks and
// may be called from any goroutine. Results arriving after shutdown, or while
// the inbox is full, are discarded.
func (s *Scheduler) Complete(res types.CaptureResult) {
	select {
	case <-s.done:
		s.metrics.LateCompletions.Add(1)
		return
	default:
	}
	select {
	case s.inbox <- res:
	case <-s.done:
		s.metrics.LateCompletions.Add(1)
	default:
		s.metrics.InboxDrops.Add(1)
		s.log.Warn().Uint64("id", res.ID).Msg("completion inbox full, capture dropped")
	}
}

// Pending reports the number of captures awaiting completion. It is safe to
// call from any goroutine.
func (s *Scheduler) Pending() int {
	return int(s.pendingCount.Load())
}

// Run drives the loop at LoopHz until ctx is done. It returns nil on
// cancellation and an error only for failures that indicate a programming
// error, such as an unknown stream type reaching the publisher.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.stop()

	interval := time.Duration(float64(time.Second) / s.opts.LoopHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := s.now()
	s.log.Info().
		Float64("loop_hz", s.opts.LoopHz).
		Int("rgb_width", s.opts.RGB.Width).
		Int("rgb_height", s.opts.RGB.Height).
		Int("depth_width", s.opts.Depth.Width).
		Int("depth_height", s.opts.Depth.Height).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Int("pending", s.pending.len()).Msg("scheduler stopped")
			return nil
		case <-ticker.C:
			now := s.now()
			s.Tick(now.Sub(last))
			last = now
		case res := <-s.inbox:
			if err := s.handle(res); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// drain handles every completion currently queued.
func (s *Scheduler) drain() error {
	for {
		select {
		case res := <-s.inbox:
			if err := s.handle(res); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *Scheduler) handle(res types.CaptureResult) error {
	req, ok := s.pending.take(res.ID)
	s.pendingCount.Store(int64(s.pending.len()))
	if !ok {
		s.metrics.LateCompletions.Add(1)
		s.log.Debug().Uint64("id", res.ID).Msg("completion for unknown capture discarded")
		return nil
	}
	s.metrics.CapturesCompleted.Add(1)

	st, ok := res.Mode.Stream()
	if !ok {
		s.log.Warn().Uint64("id", res.ID).Str("mode", res.Mode.String()).Msg("completion with unknown output mode discarded")
		return nil
	}
	if res.Mode != req.mode {
		s.log.Warn().
			Uint64("id", res.ID).
			Str("requested", req.mode.String()).
			Str("got", res.Mode.String()).
			Msg("completion mode differs from request")
	}

	buf, err := s.encode(res)
	if err != nil {
		var shapeErr *codec.ShapeError
		if errors.As(err, &shapeErr) {
			s.metrics.ShapeErrors.Add(1)
		}
		s.log.Warn().Err(err).Uint64("id", res.ID).Str("stream", st.String()).Msg("frame rejected")
		return nil
	}

	if _, err := s.pub.SendFrame(buf, st); err != nil {
		if errors.Is(err, wire.ErrUnknownStreamType) {
			return fmt.Errorf("publish capture %d: %w", res.ID, err)
		}
		s.log.Warn().Err(err).Uint64("id", res.ID).Str("stream", st.String()).Msg("publish failed")
	}
	return nil
}

func (s *Scheduler) encode(res types.CaptureResult) (*types.FrameBuffer, error) {
	switch res.Mode {
	case types.OutputRGB:
		return codec.ColorFrame(res.R, res.G, res.B, res.Width, res.Height)
	case types.OutputDepth:
		return codec.DepthFrame(res.Depth, res.Width, res.Height, s.opts.DepthPolicy, s.opts.Rand)
	default:
		return nil, fmt.Errorf("unsupported output mode %s", res.Mode)
	}
}
