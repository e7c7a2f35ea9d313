// Package wire implements the frame message format:
//
//	<TYPE>#<HEIGHT:04d>#<WIDTH:04d>#<CHANNELS:04d>#<payload>
//
// TYPE is RGB or DEPTH. The payload is the row-major frame: interleaved
// R, G, B bytes for RGB, little-endian float32 samples for DEPTH.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"framestream-go/internal/types"
)

const (
	// MaxDimension is the largest value a 4-digit header field can carry.
	MaxDimension = 9999

	separator = '#'
	fieldLen  = 4
)

var (
	ErrUnknownStreamType = errors.New("unknown stream type")
	ErrDimensionRange    = errors.New("dimension out of header range")
	ErrMalformedHeader   = errors.New("malformed frame header")
)

type Header struct {
	Type     types.StreamType
	Height   int
	Width    int
	Channels int
}

// HeaderLen is the encoded header size for stream type t.
func HeaderLen(t types.StreamType) int {
	return len(t.String()) + 1 + 3*(fieldLen+1)
}

// AppendHeader appends the encoded header to dst.
func AppendHeader(dst []byte, h Header) ([]byte, error) {
	if !h.Type.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownStreamType, h.Type)
	}
	for _, v := range []int{h.Height, h.Width, h.Channels} {
		if v < 0 || v > MaxDimension {
			return nil, fmt.Errorf("%w: %d", ErrDimensionRange, v)
		}
	}
	dst = append(dst, h.Type.String()...)
	dst = append(dst, separator)
	dst = appendField(dst, h.Height)
	dst = appendField(dst, h.Width)
	dst = appendField(dst, h.Channels)
	return dst, nil
}

func EncodeHeader(h Header) ([]byte, error) {
	return AppendHeader(make([]byte, 0, HeaderLen(h.Type)), h)
}

func appendField(dst []byte, v int) []byte {
	for div := 1000; div > 0; div /= 10 {
		dst = append(dst, byte('0'+(v/div)%10))
	}
	return append(dst, separator)
}

// Build encodes the header and payload of buf as one message. The channel
// field is taken from the stream type, so depth frames always carry 0001.
func Build(buf *types.FrameBuffer, t types.StreamType) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownStreamType, t)
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.Channels != t.Channels() {
		return nil, fmt.Errorf("%s frame has %d channels, want %d", t, buf.Channels, t.Channels())
	}
	h := Header{Type: t, Height: buf.Height, Width: buf.Width, Channels: t.Channels()}

	msg := make([]byte, 0, HeaderLen(t)+buf.ByteLen())
	msg, err := AppendHeader(msg, h)
	if err != nil {
		return nil, err
	}
	if buf.Depth != nil {
		return buf.AppendDepth(msg), nil
	}
	return append(msg, buf.Pix...), nil
}

// ParseHeader splits msg into its header and payload. The payload aliases msg.
func ParseHeader(msg []byte) (Header, []byte, error) {
	var h Header
	rest := msg

	typ, rest, ok := cut(rest)
	if !ok {
		return h, nil, fmt.Errorf("%w: missing type", ErrMalformedHeader)
	}
	switch string(typ) {
	case "RGB":
		h.Type = types.StreamRGB
	case "DEPTH":
		h.Type = types.StreamDepth
	default:
		return h, nil, fmt.Errorf("%w: %q", ErrUnknownStreamType, typ)
	}

	fields := [3]*int{&h.Height, &h.Width, &h.Channels}
	for _, dst := range fields {
		var raw []byte
		raw, rest, ok = cut(rest)
		if !ok || len(raw) == 0 || len(raw) > fieldLen {
			return h, nil, fmt.Errorf("%w: bad numeric field", ErrMalformedHeader)
		}
		n, err := strconv.Atoi(string(raw))
		if err != nil || n < 0 {
			return h, nil, fmt.Errorf("%w: bad numeric field %q", ErrMalformedHeader, raw)
		}
		*dst = n
	}
	return h, rest, nil
}

func cut(b []byte) (before, after []byte, found bool) {
	// Header fields are short; do not scan deep into a binary payload.
	limit := len(b)
	if limit > 8 {
		limit = 8
	}
	i := bytes.IndexByte(b[:limit], separator)
	if i < 0 {
		return nil, b, false
	}
	return b[:i], b[i+1:], true
}

// PayloadLen is the payload size implied by h.
func (h Header) PayloadLen() int {
	n := h.Height * h.Width * h.Channels
	if h.Type == types.StreamDepth {
		return n * 4
	}
	return n
}
