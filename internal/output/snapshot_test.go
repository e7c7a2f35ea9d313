package output

import (
	"encoding/json"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"

	"framestream-go/internal/types"
	"framestream-go/internal/wire"
)

func TestWriteSnapshotRGB(t *testing.T) {
	dir := t.TempDir()
	h := wire.Header{Type: types.StreamRGB, Width: 2, Height: 1, Channels: 3}
	payload := []byte{255, 0, 0, 0, 0, 255}

	path, err := WriteSnapshot(dir, h, payload, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("WriteSnapshot error: %v", err)
	}
	if !strings.HasSuffix(path, "_rgb.png") {
		t.Fatalf("unexpected path %q", path)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if r, g, b, _ := img.At(0, 0).RGBA(); r != 0xffff || g != 0 || b != 0 {
		t.Fatalf("pixel 0 = %v %v %v, want red", r, g, b)
	}
	if r, g, b, _ := img.At(1, 0).RGBA(); r != 0 || g != 0 || b != 0xffff {
		t.Fatalf("pixel 1 = %v %v %v, want blue", r, g, b)
	}
}

func TestWriteSnapshotDepth(t *testing.T) {
	dir := t.TempDir()
	h := wire.Header{Type: types.StreamDepth, Width: 2, Height: 2, Channels: 1}
	payload := make([]byte, 16)

	path, err := WriteSnapshot(dir, h, payload, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("WriteSnapshot error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil || len(raw) != 16 {
		t.Fatalf("raw dump: %d bytes, %v", len(raw), err)
	}
	b, err := os.ReadFile(path + ".json")
	if err != nil {
		t.Fatal(err)
	}
	var meta DepthSidecar
	if err := json.Unmarshal(b, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Width != 2 || meta.Height != 2 || meta.Format != "float32le" {
		t.Fatalf("unexpected sidecar %+v", meta)
	}
}

func TestWriteSnapshotRejectsShortPayload(t *testing.T) {
	h := wire.Header{Type: types.StreamRGB, Width: 2, Height: 2, Channels: 3}
	if _, err := WriteSnapshot(t.TempDir(), h, make([]byte, 5), time.Now()); err == nil {
		t.Fatalf("expected error for short payload")
	}
}
