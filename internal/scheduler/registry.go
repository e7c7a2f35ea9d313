package scheduler

import (
	"time"

	"framestream-go/internal/types"
)

type pendingCapture struct {
	mode     types.OutputMode
	width    int
	height   int
	issuedAt time.Time
}

// registry tracks issued captures by id until their completion arrives.
// It is owned by the control loop and not safe for concurrent use.
type registry struct {
	pending map[uint64]pendingCapture
}

func newRegistry() *registry {
	return &registry{pending: make(map[uint64]pendingCapture)}
}

func (r *registry) add(req types.CaptureRequest) {
	r.pending[req.ID] = pendingCapture{
		mode:     req.Mode,
		width:    req.Width,
		height:   req.Height,
		issuedAt: req.IssuedAt,
	}
}

// take removes and returns the capture registered under id.
func (r *registry) take(id uint64) (pendingCapture, bool) {
	p, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return p, ok
}

// expire forgets captures issued before cutoff and returns how many were
// dropped. Their completions, if they ever arrive, count as late.
func (r *registry) expire(cutoff time.Time) int {
	n := 0
	for id, p := range r.pending {
		if p.issuedAt.Before(cutoff) {
			delete(r.pending, id)
			n++
		}
	}
	return n
}

func (r *registry) len() int {
	return len(r.pending)
}
