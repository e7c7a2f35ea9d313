package config

import (
	"fmt"
	"time"

	"framestream-go/internal/codec"
	"framestream-go/internal/transport"
	"framestream-go/internal/types"
	"framestream-go/internal/wire"
)

// AppConfig is the resolved configuration of the publisher daemon.
type AppConfig struct {
	Host          string
	Port          int
	SendHWM       int
	SendBuffer    int
	KeepAliveIdle time.Duration

	WaitTimeout time.Duration
	WaitGrace   time.Duration
	NoWait      bool

	LoopHz    float64
	RGBHz     float64
	DepthHz   float64
	InboxSize int

	RGBWidth    int
	RGBHeight   int
	DepthWidth  int
	DepthHeight int

	NoiseStdDev float64
	MaxRange    float64
	NoData      float64

	SimLatency time.Duration

	HTTPAddr     string
	RecordDir    string
	LogLevel     string
	DropLogEvery int
}

func DefaultConfig() AppConfig {
	t := transport.DefaultOptions()
	return AppConfig{
		Host:          t.Host,
		Port:          t.Port,
		SendHWM:       t.SendHWM,
		SendBuffer:    t.SendBuffer,
		KeepAliveIdle: t.KeepAliveIdle,
		WaitTimeout:   2 * time.Second,
		WaitGrace:     200 * time.Millisecond,
		LoopHz:        60,
		RGBHz:         15,
		DepthHz:       5,
		InboxSize:     16,
		RGBWidth:      512,
		RGBHeight:     512,
		DepthWidth:    512,
		DepthHeight:   512,
		NoiseStdDev:   codec.DefaultNoiseStdDev,
		MaxRange:      codec.DefaultMaxRange,
		NoData:        codec.DefaultNoData,
		SimLatency:    15 * time.Millisecond,
		HTTPAddr:      ":8890",
		LogLevel:      "info",
		DropLogEvery:  1,
	}
}

func (c *AppConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.SendHWM <= 0 {
		return fmt.Errorf("send-hwm must be positive")
	}
	if c.SendBuffer < 0 {
		return fmt.Errorf("send-buffer must not be negative")
	}
	if c.LoopHz <= 0 {
		return fmt.Errorf("loop-hz must be positive")
	}
	if c.InboxSize <= 0 {
		return fmt.Errorf("inbox-size must be positive")
	}
	for name, v := range map[string]int{
		"rgb-width":    c.RGBWidth,
		"rgb-height":   c.RGBHeight,
		"depth-width":  c.DepthWidth,
		"depth-height": c.DepthHeight,
	} {
		if v <= 0 || v > wire.MaxDimension {
			return fmt.Errorf("%s must be in 1..%d, got %d", name, wire.MaxDimension, v)
		}
	}
	if c.NoiseStdDev < 0 {
		return fmt.Errorf("noise-stddev must not be negative")
	}
	if c.DropLogEvery <= 0 {
		c.DropLogEvery = 1
	}
	return nil
}

func (c AppConfig) TransportOptions() transport.Options {
	return transport.Options{
		Host:          c.Host,
		Port:          c.Port,
		SendHWM:       c.SendHWM,
		SendBuffer:    c.SendBuffer,
		KeepAliveIdle: c.KeepAliveIdle,
	}
}

func (c AppConfig) DepthPolicy() codec.DepthPolicy {
	return codec.DepthPolicy{
		NoiseStdDev: c.NoiseStdDev,
		MaxRange:    float32(c.MaxRange),
		NoData:      float32(c.NoData),
	}
}

func (c AppConfig) RGBStream() types.CameraStreamConfig {
	return types.CameraStreamConfig{Width: c.RGBWidth, Height: c.RGBHeight}
}

func (c AppConfig) DepthStream() types.CameraStreamConfig {
	return types.CameraStreamConfig{Width: c.DepthWidth, Height: c.DepthHeight}
}

func (c AppConfig) Frequencies() Frequencies {
	return Frequencies{RGBHz: c.RGBHz, DepthHz: c.DepthHz}
}

// configSetter applies values unless the matching flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}
