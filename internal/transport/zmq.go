// Package transport binds the ZeroMQ publish socket frames are broadcast on.
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
)

// ErrWouldBlock is returned by TrySend when the socket cannot enqueue the
// message immediately.
var ErrWouldBlock = errors.New("transport busy")

type Options struct {
	Host          string
	Port          int
	SendHWM       int
	SendBuffer    int
	KeepAliveIdle time.Duration
}

func DefaultOptions() Options {
	return Options{
		Host:          "0.0.0.0",
		Port:          55556,
		SendHWM:       2,
		SendBuffer:    2 * 1024 * 1024,
		KeepAliveIdle: 120 * time.Second,
	}
}

func (o Options) Endpoint() string {
	port := "*"
	if o.Port > 0 {
		port = strconv.Itoa(o.Port)
	}
	return "tcp://" + net.JoinHostPort(o.Host, port)
}

// PubSocket is a bound PUB socket configured for latest-frame-wins delivery:
// a tiny high-water mark with conflation, no queueing for absent peers and
// zero linger on close. It is not safe for concurrent use; callers serialize
// sends.
type PubSocket struct {
	ctx      *zmq4.Context
	soc      *zmq4.Socket
	endpoint string
}

var monitorSeq atomic.Uint64

// Bind creates a context and a PUB socket bound to opts.Endpoint().
func Bind(opts Options) (*PubSocket, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("zmq context: %w", err)
	}
	soc, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		_ = ctx.Term()
		return nil, fmt.Errorf("zmq socket: %w", err)
	}
	if err := configure(soc, opts); err != nil {
		_ = soc.Close()
		_ = ctx.Term()
		return nil, err
	}

	endpoint := opts.Endpoint()
	if err := soc.Bind(endpoint); err != nil {
		_ = soc.Close()
		_ = ctx.Term()
		return nil, fmt.Errorf("bind %s: %w", endpoint, err)
	}
	if last, err := soc.GetLastEndpoint(); err == nil && last != "" {
		endpoint = last
	}

	return &PubSocket{ctx: ctx, soc: soc, endpoint: endpoint}, nil
}

type sockopt struct {
	name string
	set  func() error
}

func configure(soc *zmq4.Socket, opts Options) error {
	hwm := max(opts.SendHWM, 1)
	steps := []sockopt{
		{"sndhwm", func() error { return soc.SetSndhwm(hwm) }},
		{"rcvhwm", func() error { return soc.SetRcvhwm(hwm) }},
		{"linger", func() error { return soc.SetLinger(0) }},
		{"conflate", func() error { return soc.SetConflate(true) }},
		{"tcp_keepalive", func() error { return soc.SetTcpKeepalive(1) }},
		{"immediate", func() error { return soc.SetImmediate(true) }},
	}
	if opts.SendBuffer > 0 {
		steps = append(steps, sockopt{"sndbuf", func() error { return soc.SetSndbuf(opts.SendBuffer) }})
	}
	if idle := int(opts.KeepAliveIdle / time.Second); idle > 0 {
		steps = append(steps, sockopt{"tcp_keepalive_idle", func() error { return soc.SetTcpKeepaliveIdle(idle) }})
	}
	for _, step := range steps {
		if err := step.set(); err != nil {
			return fmt.Errorf("set %s: %w", step.name, err)
		}
	}
	return nil
}

// Endpoint is the resolved bound endpoint.
func (p *PubSocket) Endpoint() string {
	return p.endpoint
}

// TrySend makes one non-blocking transmit attempt.
func (p *PubSocket) TrySend(msg []byte) error {
	_, err := p.soc.SendBytes(msg, zmq4.DONTWAIT)
	if err == nil {
		return nil
	}
	if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
		return ErrWouldBlock
	}
	return err
}

// Close closes the socket without waiting for pending messages and
// terminates the context.
func (p *PubSocket) Close() error {
	_ = p.soc.SetLinger(0)
	err := p.soc.Close()
	if termErr := p.ctx.Term(); err == nil {
		err = termErr
	}
	return err
}
