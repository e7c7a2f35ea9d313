package codec

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"math/rand"
	"reflect"

	"framestream-go/internal/types"
)

const (
	DefaultNoiseStdDev = 0.3
	DefaultMaxRange    = 20000.0
	DefaultNoData      = 9999999.0
)

// DepthPolicy controls noise injection and range clamping for depth frames.
// Units follow the capture subsystem (centimetres for the default camera).
type DepthPolicy struct {
	NoiseStdDev float64
	MaxRange    float32
	NoData      float32
}

func DefaultDepthPolicy() DepthPolicy {
	return DepthPolicy{
		NoiseStdDev: DefaultNoiseStdDev,
		MaxRange:    DefaultMaxRange,
		NoData:      DefaultNoData,
	}
}

// DepthFrame reshapes width*height samples into a height x width float32
// frame, adds zero-mean Gaussian noise and replaces samples beyond
// policy.MaxRange with policy.NoData.
//
// Accepted inputs: []byte (little-endian float32, copied), []float32 (used in
// place, so the caller must not reuse it), iter.Seq[float32], or any slice of
// numbers. A nil rng uses the shared math/rand source.
func DepthFrame(pixels any, width, height int, policy DepthPolicy, rng *rand.Rand) (*types.FrameBuffer, error) {
	count := width * height
	if width < 0 || height < 0 {
		count = -1
	}

	samples, err := depthSamples(pixels, count)
	if err != nil {
		return nil, err
	}
	if len(samples) != count {
		return nil, &ShapeError{
			Stream: types.StreamDepth,
			Got:    len(samples),
			Want:   count,
			Width:  width,
			Height: height,
		}
	}

	applyDepthPolicy(samples, policy, rng)

	return &types.FrameBuffer{
		Width:    width,
		Height:   height,
		Channels: 1,
		Depth:    samples,
	}, nil
}

func applyDepthPolicy(samples []float32, policy DepthPolicy, rng *rand.Rand) {
	norm := rand.NormFloat64
	if rng != nil {
		norm = rng.NormFloat64
	}
	for i, v := range samples {
		if policy.NoiseStdDev > 0 {
			v += float32(norm() * policy.NoiseStdDev)
		}
		if v > policy.MaxRange {
			v = policy.NoData
		}
		samples[i] = v
	}
}

func depthSamples(pixels any, count int) ([]float32, error) {
	switch v := pixels.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v)%4 != 0 {
			return nil, fmt.Errorf("depth byte buffer length %d is not a multiple of 4", len(v))
		}
		return bytesToFloat32(v), nil
	case []float32:
		return v, nil
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, nil
	case iter.Seq[float32]:
		return collect(v, count), nil
	case func(func(float32) bool):
		return collect(v, count), nil
	default:
		rv := reflect.ValueOf(pixels)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("unsupported depth buffer type %T", pixels)
		}
		return sliceToFloat32(rv)
	}
}

func collect(seq iter.Seq[float32], count int) []float32 {
	out := make([]float32, 0, max(count, 0))
	for f := range seq {
		out = append(out, f)
	}
	return out
}

func bytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return out
}

func sliceToFloat32(rv reflect.Value) ([]float32, error) {
	out := make([]float32, rv.Len())
	for i := range out {
		elem := rv.Index(i)
		if elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		switch {
		case elem.CanFloat():
			out[i] = float32(elem.Float())
		case elem.CanInt():
			out[i] = float32(elem.Int())
		case elem.CanUint():
			out[i] = float32(elem.Uint())
		default:
			return nil, fmt.Errorf("unsupported depth element type %s at index %d", elem.Kind(), i)
		}
	}
	return out, nil
}
