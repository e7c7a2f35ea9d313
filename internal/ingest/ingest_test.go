package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"framestream-go/internal/transport"
	"framestream-go/internal/types"
	"framestream-go/internal/wire"
)

func TestDecode(t *testing.T) {
	buf := &types.FrameBuffer{Width: 3, Height: 2, Channels: 1, Depth: []float32{1, 2, 3, 4, 5, 6}}
	raw, err := wire.Build(buf, types.StreamDepth)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	at := time.Unix(5, 0)
	msg, err := Decode(raw, at)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if msg.Header != (wire.Header{Type: types.StreamDepth, Height: 2, Width: 3, Channels: 1}) {
		t.Fatalf("unexpected header %+v", msg.Header)
	}
	if len(msg.Payload) != 24 || msg.Size != len(raw) || !msg.Received.Equal(at) {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "hello"},
		{"short payload", "RGB#0001#0002#0003#abc"},
		{"long payload", "DEPTH#0001#0001#0001#12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.raw), time.Now()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	_, err := Decode([]byte("JPEG#0001#0001#0003#abc"), time.Now())
	if !errors.Is(err, wire.ErrMalformedHeader) && !errors.Is(err, wire.ErrUnknownStreamType) {
		t.Fatalf("unexpected error for unknown type: %v", err)
	}
}

func TestStreamReceivesPublishedFrames(t *testing.T) {
	opts := transport.DefaultOptions()
	opts.Host = "127.0.0.1"
	opts.Port = 0
	pub, err := transport.Bind(opts)
	if err != nil {
		t.Fatalf("Bind error: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := DefaultOptions(pub.Endpoint())
	sub.Logger = zerolog.Nop()
	sub.RecvTimeout = 50 * time.Millisecond
	frames, err := Stream(ctx, sub)
	if err != nil {
		t.Fatalf("Stream error: %v", err)
	}

	buf := &types.FrameBuffer{Width: 2, Height: 2, Channels: 3, Pix: make([]byte, 12)}
	raw, err := wire.Build(buf, types.StreamRGB)
	if err != nil {
		t.Fatal(err)
	}

	// A new subscriber misses frames published before it joined, so keep
	// publishing until one arrives.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case msg := <-frames:
			if msg.Header.Type != types.StreamRGB || len(msg.Payload) != 12 {
				t.Fatalf("unexpected message %+v", msg.Header)
			}
			return
		case <-tick.C:
			if err := pub.TrySend(raw); err != nil && !errors.Is(err, transport.ErrWouldBlock) {
				t.Fatalf("TrySend error: %v", err)
			}
		case <-deadline:
			t.Fatalf("no frame received")
		}
	}
}

func TestStreamBadEndpoint(t *testing.T) {
	_, err := Stream(context.Background(), DefaultOptions("nonsense://"))
	if err == nil || !strings.Contains(err.Error(), "connect") {
		t.Fatalf("expected connect error, got %v", err)
	}
}
