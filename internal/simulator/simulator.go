// Package simulator is a stand-in capture subsystem. It renders synthetic
// RGB and depth images for capture requests and reports them through a
// completion callback after a configurable latency.
package simulator

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"framestream-go/internal/logging"
	"framestream-go/internal/types"
)

var ErrQueueFull = errors.New("capture queue full")

const (
	DefaultLatency   = 15 * time.Millisecond
	DefaultQueueSize = 8

	// depthPeak is the corner distance in centimetres; it lies beyond the
	// default max range so the outer band becomes nodata.
	depthPeak = 30000.0
)

type Options struct {
	Latency   time.Duration
	QueueSize int
	Logger    zerolog.Logger
}

type Camera struct {
	latency time.Duration
	reqs    chan types.CaptureRequest
	start   time.Time
	log     zerolog.Logger

	mu      sync.RWMutex
	onImage func(types.CaptureResult)
}

func NewCamera(opts Options) *Camera {
	if opts.Latency < 0 {
		opts.Latency = 0
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Camera{
		latency: opts.Latency,
		reqs:    make(chan types.CaptureRequest, opts.QueueSize),
		start:   time.Now(),
		log:     logging.Component(opts.Logger, "simulator"),
	}
}

// OnImageReceived registers the completion callback. It is invoked from the
// camera goroutine.
func (c *Camera) OnImageReceived(fn func(types.CaptureResult)) {
	c.mu.Lock()
	c.onImage = fn
	c.mu.Unlock()
}

// Capture queues a request without blocking.
func (c *Camera) Capture(req types.CaptureRequest) error {
	if req.IssuedAt.IsZero() {
		req.IssuedAt = time.Now()
	}
	select {
	case c.reqs <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run renders queued requests in order until ctx is done. Each result is
// delivered no earlier than Latency after its request was issued.
func (c *Camera) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.reqs:
			if wait := time.Until(req.IssuedAt.Add(c.latency)); wait > 0 {
				timer.Reset(wait)
				select {
				case <-ctx.Done():
					return
				case <-timer.C:
				}
			}
			res := c.render(req, time.Since(c.start).Seconds())
			c.mu.RLock()
			fn := c.onImage
			c.mu.RUnlock()
			if fn == nil {
				c.log.Debug().Uint64("id", req.ID).Msg("no completion callback, image discarded")
				continue
			}
			fn(res)
		}
	}
}

func (c *Camera) render(req types.CaptureRequest, t float64) types.CaptureResult {
	res := types.CaptureResult{
		ID:     req.ID,
		Mode:   req.Mode,
		Width:  req.Width,
		Height: req.Height,
	}
	switch req.Mode {
	case types.OutputRGB:
		res.R, res.G, res.B = ColorPlanes(req.Width, req.Height, t)
	case types.OutputDepth:
		res.Depth = DepthBytes(req.Width, req.Height, t)
	}
	return res
}

// ColorPlanes renders a moving sine pattern as three separate channel planes.
func ColorPlanes(width, height int, t float64) (r, g, b []byte) {
	n := width * height
	r = make([]byte, n)
	g = make([]byte, n)
	b = make([]byte, n)
	for i := 0; i < n; i++ {
		x := float64(i % width)
		y := float64(i / width)
		r[i] = wave(x*0.05 + t*2)
		g[i] = wave(y*0.05 - t*1.5)
		b[i] = wave((x+y)*0.03 + t)
	}
	return r, g, b
}

func wave(phase float64) byte {
	return byte(127.5 + 127.5*math.Sin(phase))
}

// DepthBytes renders a radial ramp with a moving ripple as little-endian
// float32 samples. Values grow towards the corners and exceed the default
// max range there.
func DepthBytes(width, height int, t float64) []byte {
	out := make([]byte, 0, width*height*4)
	cx := float64(width) / 2
	cy := float64(height) / 2
	maxDist := math.Hypot(cx, cy)
	if maxDist == 0 {
		maxDist = 1
	}
	for i := 0; i < width*height; i++ {
		dx := float64(i%width) - cx
		dy := float64(i/width) - cy
		dist := math.Hypot(dx, dy)
		v := depthPeak*dist/maxDist + 500 + 400*math.Sin(dist*0.1-t*3)
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
	}
	return out
}
