package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// StreamType names the logical channel a frame belongs to. Its string form is
// the TYPE field of the wire header.
type StreamType int

const (
	StreamRGB StreamType = iota + 1
	StreamDepth
)

func (s StreamType) String() string {
	switch s {
	case StreamRGB:
		return "RGB"
	case StreamDepth:
		return "DEPTH"
	default:
		return fmt.Sprintf("StreamType(%d)", int(s))
	}
}

// Valid reports whether s is one of the known stream types.
func (s StreamType) Valid() bool {
	return s == StreamRGB || s == StreamDepth
}

// Channels is the channel count written to the header for s.
func (s StreamType) Channels() int {
	if s == StreamRGB {
		return 3
	}
	return 1
}

// CameraStreamConfig is the fixed resolution of one logical channel.
type CameraStreamConfig struct {
	Width  int `json:"width" toml:"width"`
	Height int `json:"height" toml:"height"`
}

func (c CameraStreamConfig) Pixels() int {
	return c.Width * c.Height
}

// FrameBuffer is a dense height x width x channels grid in row-major order.
// Color frames use Pix (8 bits per channel, interleaved R, G, B); depth frames
// use Depth (one float32 per pixel).
type FrameBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
	Depth    []float32
}

// Len returns the number of elements held by the buffer.
func (f *FrameBuffer) Len() int {
	if f.Depth != nil {
		return len(f.Depth)
	}
	return len(f.Pix)
}

// Validate checks that the element count matches width*height*channels.
func (f *FrameBuffer) Validate() error {
	if f == nil {
		return fmt.Errorf("nil frame buffer")
	}
	if f.Width < 0 || f.Height < 0 || f.Channels < 1 {
		return fmt.Errorf("invalid frame shape %dx%dx%d", f.Height, f.Width, f.Channels)
	}
	want := f.Width * f.Height * f.Channels
	if got := f.Len(); got != want {
		return fmt.Errorf("frame has %d elements, shape %dx%dx%d needs %d", got, f.Height, f.Width, f.Channels, want)
	}
	return nil
}

// ByteLen is the payload size produced by Bytes.
func (f *FrameBuffer) ByteLen() int {
	if f.Depth != nil {
		return len(f.Depth) * 4
	}
	return len(f.Pix)
}

// Bytes returns the row-major payload. Color frames are returned without
// copying; depth samples are encoded as little-endian float32.
func (f *FrameBuffer) Bytes() []byte {
	if f.Depth == nil {
		return f.Pix
	}
	out := make([]byte, len(f.Depth)*4)
	f.AppendDepth(out[:0])
	return out
}

// AppendDepth appends the little-endian encoding of the depth samples to dst.
func (f *FrameBuffer) AppendDepth(dst []byte) []byte {
	for _, v := range f.Depth {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
