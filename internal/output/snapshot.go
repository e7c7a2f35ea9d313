package output

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"framestream-go/internal/types"
	"framestream-go/internal/wire"
)

// DepthSidecar describes a raw depth dump written next to it.
type DepthSidecar struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Format    string    `json:"format"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteSnapshot saves the payload of a received message into dir: RGB frames
// as PNG, depth frames as raw little-endian float32 plus a JSON sidecar. It
// returns the path of the main file.
func WriteSnapshot(dir string, h wire.Header, payload []byte, at time.Time) (string, error) {
	if len(payload) != h.PayloadLen() {
		return "", fmt.Errorf("payload has %d bytes, header needs %d", len(payload), h.PayloadLen())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stamp := at.Format("20060102_150405.000")

	switch h.Type {
	case types.StreamRGB:
		path := filepath.Join(dir, fmt.Sprintf("%s_rgb.png", stamp))
		return path, writePNG(path, h, payload)
	case types.StreamDepth:
		path := filepath.Join(dir, fmt.Sprintf("%s_depth.f32", stamp))
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return "", err
		}
		meta, err := json.MarshalIndent(DepthSidecar{
			Width:     h.Width,
			Height:    h.Height,
			Format:    "float32le",
			Timestamp: at,
		}, "", "  ")
		if err != nil {
			return "", err
		}
		return path, os.WriteFile(path+".json", meta, 0o644)
	default:
		return "", fmt.Errorf("%w: %v", wire.ErrUnknownStreamType, h.Type)
	}
}

func writePNG(path string, h wire.Header, payload []byte) error {
	img := image.NewNRGBA(image.Rect(0, 0, h.Width, h.Height))
	for i, j := 0, 0; i+2 < len(payload); i, j = i+3, j+4 {
		img.Pix[j] = payload[i]
		img.Pix[j+1] = payload[i+1]
		img.Pix[j+2] = payload[i+2]
		img.Pix[j+3] = 0xff
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
