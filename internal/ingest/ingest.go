// Package ingest subscribes to a frame publisher and decodes what it receives.
package ingest

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/rs/zerolog"

	"framestream-go/internal/logging"
	"framestream-go/internal/wire"
)

// Message is one received frame. Payload aliases the received bytes.
type Message struct {
	Header   wire.Header
	Payload  []byte
	Size     int
	Received time.Time
}

// Options configures the subscriber. Conflate keeps only the newest unread
// message, mirroring the publisher's policy.
type Options struct {
	Endpoint    string
	Conflate    bool
	RecvHWM     int
	RecvTimeout time.Duration
	Logger      zerolog.Logger
	LogEvery    int
}

func DefaultOptions(endpoint string) Options {
	return Options{
		Endpoint:    endpoint,
		Conflate:    true,
		RecvHWM:     2,
		RecvTimeout: 250 * time.Millisecond,
		Logger:      zerolog.Nop(),
		LogEvery:    100,
	}
}

// Stream connects a SUB socket to opts.Endpoint and delivers decoded frames
// until ctx is done. Malformed messages are logged and skipped.
func Stream(ctx context.Context, opts Options) (<-chan Message, error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}
	if err := configure(socket, opts); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(opts.Endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("connect %s: %w", opts.Endpoint, err)
	}

	log := logging.Sampled(logging.Component(opts.Logger, "ingest"), opts.LogEvery)
	out := make(chan Message, 8)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			raw, err := socket.RecvBytes(0)
			if err != nil {
				if errno := zmq4.AsErrno(err); errno == zmq4.Errno(syscall.EAGAIN) || errno == zmq4.Errno(syscall.EINTR) {
					continue
				}
				log.Warn().Err(err).Msg("recv error")
				continue
			}

			msg, err := Decode(raw, time.Now())
			if err != nil {
				log.Warn().Err(err).Int("size", len(raw)).Msg("skipped message")
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}()

	return out, nil
}

func configure(socket *zmq4.Socket, opts Options) error {
	hwm := max(opts.RecvHWM, 1)
	timeout := opts.RecvTimeout
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	if err := socket.SetRcvhwm(hwm); err != nil {
		return fmt.Errorf("set rcvhwm: %w", err)
	}
	if opts.Conflate {
		if err := socket.SetConflate(true); err != nil {
			return fmt.Errorf("set conflate: %w", err)
		}
	}
	if err := socket.SetRcvtimeo(timeout); err != nil {
		return fmt.Errorf("set rcvtimeo: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		return fmt.Errorf("set linger: %w", err)
	}
	return socket.SetSubscribe("")
}

// Decode parses the header of raw and checks the payload size it implies.
func Decode(raw []byte, at time.Time) (Message, error) {
	h, payload, err := wire.ParseHeader(raw)
	if err != nil {
		return Message{}, err
	}
	if want := h.PayloadLen(); len(payload) != want {
		return Message{}, fmt.Errorf("%s payload has %d bytes, header needs %d", h.Type, len(payload), want)
	}
	return Message{Header: h, Payload: payload, Size: len(raw), Received: at}, nil
}
