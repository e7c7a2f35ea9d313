package codec

import (
	"bytes"
	"errors"
	"testing"

	"framestream-go/internal/types"
)

func TestColorFrameUniform512(t *testing.T) {
	const w, h = 512, 512
	plane := bytes.Repeat([]byte{200}, w*h)

	frame, err := ColorFrame(plane, plane, plane, w, h)
	if err != nil {
		t.Fatalf("ColorFrame error: %v", err)
	}
	if frame.Channels != 3 || frame.Width != w || frame.Height != h {
		t.Fatalf("unexpected shape: %dx%dx%d", frame.Height, frame.Width, frame.Channels)
	}
	if len(frame.Bytes()) != 786432 {
		t.Fatalf("unexpected payload size: %d", len(frame.Bytes()))
	}
	for i, v := range frame.Pix {
		if v != 200 {
			t.Fatalf("pixel byte %d = %d, want 200", i, v)
		}
	}
	if err := frame.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestColorFrameChannelOrder(t *testing.T) {
	r := []byte{1, 2, 3, 4, 5, 6}
	g := []byte{11, 12, 13, 14, 15, 16}
	b := []byte{21, 22, 23, 24, 25, 26}

	frame, err := ColorFrame(r, g, b, 3, 2)
	if err != nil {
		t.Fatalf("ColorFrame error: %v", err)
	}
	want := []byte{
		1, 11, 21, 2, 12, 22, 3, 13, 23,
		4, 14, 24, 5, 15, 25, 6, 16, 26,
	}
	if !bytes.Equal(frame.Pix, want) {
		t.Fatalf("interleave mismatch: got %v want %v", frame.Pix, want)
	}
}

func TestColorFrameShapeMismatch(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b []byte
		channel string
	}{
		{"short red", make([]byte, 5), make([]byte, 6), make([]byte, 6), "R"},
		{"long green", make([]byte, 6), make([]byte, 7), make([]byte, 6), "G"},
		{"empty blue", make([]byte, 6), make([]byte, 6), nil, "B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ColorFrame(tt.r, tt.g, tt.b, 3, 2)
			var shapeErr *ShapeError
			if !errors.As(err, &shapeErr) {
				t.Fatalf("expected ShapeError, got %v", err)
			}
			if shapeErr.Channel != tt.channel {
				t.Errorf("Channel = %q, want %q", shapeErr.Channel, tt.channel)
			}
			if shapeErr.Stream != types.StreamRGB {
				t.Errorf("Stream = %v, want RGB", shapeErr.Stream)
			}
		})
	}
}
