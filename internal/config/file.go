package config

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML layout. Numeric and boolean keys are pointers so an
// explicit zero (for example rgb_hz = 0) is distinguishable from a missing key.
// Durations are strings such as "2s" or "150ms".
type FileConfig struct {
	Publisher      PublisherSection `toml:"publisher"`
	SubscriberWait WaitSection      `toml:"subscriber_wait"`
	Scheduler      SchedulerSection `toml:"scheduler"`
	Camera         CameraSection    `toml:"camera"`
	Depth          DepthSection     `toml:"depth"`
	Simulator      SimulatorSection `toml:"simulator"`
	HTTP           HTTPSection      `toml:"http"`
	Record         RecordSection    `toml:"record"`
	Log            LogSection       `toml:"log"`
}

type PublisherSection struct {
	Host            string `toml:"host"`
	Port            *int   `toml:"port"`
	SendHWM         *int   `toml:"send_hwm"`
	SendBufferBytes *int   `toml:"send_buffer_bytes"`
	KeepAliveIdle   string `toml:"keepalive_idle"`
}

type WaitSection struct {
	Timeout  string `toml:"timeout"`
	Grace    string `toml:"grace"`
	Disabled *bool  `toml:"disabled"`
}

type SchedulerSection struct {
	LoopHz    *float64 `toml:"loop_hz"`
	RGBHz     *float64 `toml:"rgb_hz"`
	DepthHz   *float64 `toml:"depth_hz"`
	InboxSize *int     `toml:"inbox_size"`
}

type StreamSection struct {
	Width  *int `toml:"width"`
	Height *int `toml:"height"`
}

type CameraSection struct {
	RGB   StreamSection `toml:"rgb"`
	Depth StreamSection `toml:"depth"`
}

type DepthSection struct {
	NoiseStdDev *float64 `toml:"noise_stddev"`
	MaxRange    *float64 `toml:"max_range"`
	NoData      *float64 `toml:"nodata"`
}

type SimulatorSection struct {
	Latency string `toml:"latency"`
}

type HTTPSection struct {
	Addr *string `toml:"addr"`
}

type RecordSection struct {
	Dir string `toml:"dir"`
}

type LogSection struct {
	Level     string `toml:"level"`
	DropEvery *int   `toml:"drop_every"`
}

func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// ApplyFileConfig copies the keys present in fc into cfg, skipping those whose
// flag was set explicitly.
func ApplyFileConfig(cfg *AppConfig, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Publisher.Host, &cfg.Host)
	s.setInt("port", fc.Publisher.Port, &cfg.Port)
	s.setInt("send-hwm", fc.Publisher.SendHWM, &cfg.SendHWM)
	s.setInt("send-buffer", fc.Publisher.SendBufferBytes, &cfg.SendBuffer)
	if err := s.setDuration("keepalive-idle", fc.Publisher.KeepAliveIdle, &cfg.KeepAliveIdle); err != nil {
		return err
	}

	if err := s.setDuration("wait-timeout", fc.SubscriberWait.Timeout, &cfg.WaitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("wait-grace", fc.SubscriberWait.Grace, &cfg.WaitGrace); err != nil {
		return err
	}
	s.setBool("no-wait", fc.SubscriberWait.Disabled, &cfg.NoWait)

	s.setFloat("loop-hz", fc.Scheduler.LoopHz, &cfg.LoopHz)
	s.setFloat("rgb-hz", fc.Scheduler.RGBHz, &cfg.RGBHz)
	s.setFloat("depth-hz", fc.Scheduler.DepthHz, &cfg.DepthHz)
	s.setInt("inbox-size", fc.Scheduler.InboxSize, &cfg.InboxSize)

	s.setInt("rgb-width", fc.Camera.RGB.Width, &cfg.RGBWidth)
	s.setInt("rgb-height", fc.Camera.RGB.Height, &cfg.RGBHeight)
	s.setInt("depth-width", fc.Camera.Depth.Width, &cfg.DepthWidth)
	s.setInt("depth-height", fc.Camera.Depth.Height, &cfg.DepthHeight)

	s.setFloat("noise-stddev", fc.Depth.NoiseStdDev, &cfg.NoiseStdDev)
	s.setFloat("max-range", fc.Depth.MaxRange, &cfg.MaxRange)
	s.setFloat("nodata", fc.Depth.NoData, &cfg.NoData)

	if err := s.setDuration("sim-latency", fc.Simulator.Latency, &cfg.SimLatency); err != nil {
		return err
	}

	// An empty http.addr disables the HTTP surface, so it is applied even when blank.
	if fc.HTTP.Addr != nil && !changed["http-addr"] {
		cfg.HTTPAddr = *fc.HTTP.Addr
	}
	s.setString("record-dir", fc.Record.Dir, &cfg.RecordDir)
	s.setString("log-level", fc.Log.Level, &cfg.LogLevel)
	s.setInt("drop-log-every", fc.Log.DropEvery, &cfg.DropLogEvery)

	return nil
}

func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
