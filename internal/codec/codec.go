// Package codec turns raw capture buffers into contiguous row-major frames.
package codec

import (
	"fmt"

	"framestream-go/internal/types"
)

// ShapeError reports a buffer whose element count does not match the
// declared resolution.
type ShapeError struct {
	Stream  types.StreamType
	Channel string
	Got     int
	Want    int
	Width   int
	Height  int
}

func (e *ShapeError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s channel %s has %d elements, %dx%d needs %d", e.Stream, e.Channel, e.Got, e.Width, e.Height, e.Want)
	}
	return fmt.Sprintf("%s buffer has %d elements, %dx%d needs %d", e.Stream, e.Got, e.Width, e.Height, e.Want)
}

// ColorFrame interleaves three planes into a height x width x 3 buffer in
// R, G, B order.
func ColorFrame(r, g, b []byte, width, height int) (*types.FrameBuffer, error) {
	if width < 0 || height < 0 {
		return nil, &ShapeError{Stream: types.StreamRGB, Width: width, Height: height}
	}
	count := width * height
	for _, plane := range []struct {
		name string
		data []byte
	}{{"R", r}, {"G", g}, {"B", b}} {
		if len(plane.data) != count {
			return nil, &ShapeError{
				Stream:  types.StreamRGB,
				Channel: plane.name,
				Got:     len(plane.data),
				Want:    count,
				Width:   width,
				Height:  height,
			}
		}
	}

	pix := make([]byte, count*3)
	for i := 0; i < count; i++ {
		o := i * 3
		pix[o] = r[i]
		pix[o+1] = g[i]
		pix[o+2] = b[i]
	}
	return &types.FrameBuffer{
		Width:    width,
		Height:   height,
		Channels: 3,
		Pix:      pix,
	}, nil
}
