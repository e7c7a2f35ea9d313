package transport

import (
	"fmt"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	"framestream-go/internal/waitgate"
)

const monitoredEvents = zmq4.EVENT_ACCEPTED | zmq4.EVENT_LISTENING | zmq4.EVENT_CONNECT_DELAYED | zmq4.EVENT_DISCONNECTED

type socketMonitor struct {
	owner  *zmq4.Socket
	pair   *zmq4.Socket
	poller *zmq4.Poller
}

// StartMonitor attaches an inproc event monitor to the publish socket.
func (p *PubSocket) StartMonitor() (waitgate.Monitor, error) {
	addr := fmt.Sprintf("inproc://framestream-monitor-%d", monitorSeq.Add(1))
	if err := p.soc.Monitor(addr, monitoredEvents); err != nil {
		return nil, fmt.Errorf("monitor %s: %w", addr, err)
	}

	pair, err := p.ctx.NewSocket(zmq4.PAIR)
	if err != nil {
		_ = p.soc.Monitor("", 0)
		return nil, fmt.Errorf("monitor socket: %w", err)
	}
	if err := pair.Connect(addr); err != nil {
		_ = pair.Close()
		_ = p.soc.Monitor("", 0)
		return nil, fmt.Errorf("monitor connect: %w", err)
	}

	poller := zmq4.NewPoller()
	poller.Add(pair, zmq4.POLLIN)
	return &socketMonitor{owner: p.soc, pair: pair, poller: poller}, nil
}

func (m *socketMonitor) Poll(timeout time.Duration) (waitgate.PeerEvent, bool, error) {
	polled, err := m.poller.Poll(timeout)
	if err != nil {
		if zmq4.AsErrno(err) == zmq4.Errno(syscall.EINTR) {
			return waitgate.EventOther, false, nil
		}
		return waitgate.EventOther, false, err
	}
	if len(polled) == 0 {
		return waitgate.EventOther, false, nil
	}

	ev, _, _, err := m.pair.RecvEvent(zmq4.DONTWAIT)
	if err != nil {
		if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
			return waitgate.EventOther, false, nil
		}
		return waitgate.EventOther, false, err
	}
	return peerEvent(ev), true, nil
}

func (m *socketMonitor) Close() error {
	_ = m.pair.SetLinger(0)
	err := m.pair.Close()
	if stopErr := m.owner.Monitor("", 0); err == nil {
		err = stopErr
	}
	return err
}

func peerEvent(ev zmq4.Event) waitgate.PeerEvent {
	switch ev {
	case zmq4.EVENT_ACCEPTED:
		return waitgate.EventAccepted
	case zmq4.EVENT_LISTENING:
		return waitgate.EventListening
	case zmq4.EVENT_DISCONNECTED:
		return waitgate.EventDisconnected
	default:
		return waitgate.EventOther
	}
}
