// Package waitgate detects, on a best-effort basis, the first subscriber
// connecting to a freshly bound publish socket.
package waitgate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PollSlice bounds each wait on the observer so cancellation stays responsive.
const PollSlice = 100 * time.Millisecond

type PeerEvent int

const (
	EventOther PeerEvent = iota
	EventListening
	EventAccepted
	EventDisconnected
)

func (e PeerEvent) String() string {
	switch e {
	case EventListening:
		return "listening"
	case EventAccepted:
		return "accepted"
	case EventDisconnected:
		return "disconnected"
	default:
		return "other"
	}
}

// Monitor is a transient connection-event observer attached to a socket.
type Monitor interface {
	// Poll waits at most timeout for one event. ok is false when none arrived.
	Poll(timeout time.Duration) (ev PeerEvent, ok bool, err error)
	// Close detaches the observer from the socket.
	Close() error
}

// Observable is implemented by transports that can report connection events.
type Observable interface {
	StartMonitor() (Monitor, error)
}

type Gate struct {
	Timeout  time.Duration
	Disabled bool
	Logger   zerolog.Logger
	now      func() time.Time
}

// Wait blocks until a peer connection is accepted, the timeout elapses or
// ctx is done. It reports whether a peer was seen. Monitoring failures are
// logged and reported as "not detected".
func (g *Gate) Wait(ctx context.Context, target Observable) bool {
	if g.Disabled || g.Timeout <= 0 || target == nil {
		return false
	}
	now := g.now
	if now == nil {
		now = time.Now
	}

	mon, err := target.StartMonitor()
	if err != nil {
		g.Logger.Warn().Err(err).Msg("subscriber wait: monitor unavailable")
		return false
	}
	defer func() {
		if err := mon.Close(); err != nil {
			g.Logger.Debug().Err(err).Msg("subscriber wait: monitor close failed")
		}
	}()

	deadline := now().Add(g.Timeout)
	for {
		remaining := deadline.Sub(now())
		if remaining <= 0 {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		default:
		}

		slice := min(remaining, PollSlice)
		ev, ok, err := mon.Poll(slice)
		if err != nil {
			g.Logger.Warn().Err(err).Msg("subscriber wait: monitor poll failed")
			return false
		}
		if ok && ev == EventAccepted {
			return true
		}
	}
}

// WaitForSubscriber runs a Gate with the given timeout.
func WaitForSubscriber(ctx context.Context, target Observable, timeout time.Duration, logger zerolog.Logger) bool {
	g := Gate{Timeout: timeout, Logger: logger}
	return g.Wait(ctx, target)
}
