package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"framestream-go/internal/output"
	"framestream-go/internal/types"
	"framestream-go/internal/wire"
)

func TestDump(t *testing.T) {
	w, err := output.NewRawLogWriter(t.TempDir(), "dump")
	if err != nil {
		t.Fatal(err)
	}
	rgb, err := wire.Build(&types.FrameBuffer{Width: 2, Height: 1, Channels: 3, Pix: make([]byte, 6)}, types.StreamRGB)
	if err != nil {
		t.Fatal(err)
	}
	depth, err := wire.Build(&types.FrameBuffer{Width: 1, Height: 1, Channels: 1, Depth: []float32{1}}, types.StreamDepth)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range []struct {
		st  types.StreamType
		msg []byte
	}{{types.StreamRGB, rgb}, {types.StreamDepth, depth}, {types.StreamRGB, []byte("junk")}} {
		if err := w.Record(rec.st, rec.msg); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r, err := output.NewRawLogReader(f)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := dump(&out, r, 0); err != nil {
		t.Fatalf("dump error: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"header=RGB 1x2x3 payload=6",
		"header=DEPTH 1x1x1 payload=4",
		"invalid:",
		"summary: records=3 rgb=2 depth=1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}
