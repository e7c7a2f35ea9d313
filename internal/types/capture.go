package types

import "time"

// OutputMode is the capture output tag reported by the capture subsystem.
type OutputMode int

const (
	OutputUnknown OutputMode = iota
	OutputRGB
	OutputDepth
)

func (m OutputMode) String() string {
	switch m {
	case OutputRGB:
		return "rgb"
	case OutputDepth:
		return "depth"
	default:
		return "unknown"
	}
}

// Stream maps an output mode to the stream it is published on.
func (m OutputMode) Stream() (StreamType, bool) {
	switch m {
	case OutputRGB:
		return StreamRGB, true
	case OutputDepth:
		return StreamDepth, true
	default:
		return 0, false
	}
}

type CaptureRequest struct {
	ID       uint64
	Mode     OutputMode
	Width    int
	Height   int
	IssuedAt time.Time
}

// CaptureResult is delivered asynchronously once a capture completes.
// RGB results carry three planes R, G, B; depth results carry Depth, which
// may be a []byte of little-endian float32, a []float32, or any numeric slice.
type CaptureResult struct {
	ID     uint64
	Mode   OutputMode
	Width  int
	Height int
	R      []byte
	G      []byte
	B      []byte
	Depth  any
}

// StatusMessage is pushed to websocket clients.
type StatusMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}
