package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const envPrefix = "FRAMESTREAM_"

// ApplyEnvConfig applies FRAMESTREAM_* variables. They override the file but
// not flags that were set explicitly. ST_ZMQ_NOWAIT is honoured as an alias
// of FRAMESTREAM_NOWAIT.
func ApplyEnvConfig(cfg *AppConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(envPrefix + key) }

	s.setString("host", env("HOST"), &cfg.Host)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("record-dir", env("RECORD_DIR"), &cfg.RecordDir)
	if v, ok := os.LookupEnv(envPrefix + "HTTP_ADDR"); ok && !changed["http-addr"] {
		cfg.HTTPAddr = v
	}

	ints := []struct {
		flag, key string
		dst       *int
	}{
		{"port", "PORT", &cfg.Port},
		{"send-hwm", "SEND_HWM", &cfg.SendHWM},
		{"send-buffer", "SEND_BUFFER_BYTES", &cfg.SendBuffer},
		{"inbox-size", "INBOX_SIZE", &cfg.InboxSize},
		{"rgb-width", "RGB_WIDTH", &cfg.RGBWidth},
		{"rgb-height", "RGB_HEIGHT", &cfg.RGBHeight},
		{"depth-width", "DEPTH_WIDTH", &cfg.DepthWidth},
		{"depth-height", "DEPTH_HEIGHT", &cfg.DepthHeight},
		{"drop-log-every", "DROP_LOG_EVERY", &cfg.DropLogEvery},
	}
	for _, e := range ints {
		if err := s.setIntFromString(e.flag, env(e.key), e.dst); err != nil {
			return err
		}
	}

	floats := []struct {
		flag, key string
		dst       *float64
	}{
		{"loop-hz", "LOOP_HZ", &cfg.LoopHz},
		{"rgb-hz", "RGB_HZ", &cfg.RGBHz},
		{"depth-hz", "DEPTH_HZ", &cfg.DepthHz},
		{"noise-stddev", "NOISE_STDDEV", &cfg.NoiseStdDev},
		{"max-range", "MAX_RANGE", &cfg.MaxRange},
		{"nodata", "NODATA", &cfg.NoData},
	}
	for _, e := range floats {
		if err := s.setFloatFromString(e.flag, env(e.key), e.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		flag, key string
		dst       *time.Duration
	}{
		{"keepalive-idle", "KEEPALIVE_IDLE", &cfg.KeepAliveIdle},
		{"wait-timeout", "WAIT_TIMEOUT", &cfg.WaitTimeout},
		{"wait-grace", "WAIT_GRACE", &cfg.WaitGrace},
		{"sim-latency", "SIM_LATENCY", &cfg.SimLatency},
	}
	for _, e := range durations {
		if err := s.setDuration(e.flag, env(e.key), e.dst); err != nil {
			return err
		}
	}

	for _, key := range []string{"ST_ZMQ_NOWAIT", envPrefix + "NOWAIT"} {
		if err := s.setBoolFromString("no-wait", os.Getenv(key), &cfg.NoWait); err != nil {
			return err
		}
	}
	return nil
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = v
	return nil
}

func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = v
	return nil
}

// setBoolFromString only ever enables: an unset or false variable leaves dst
// alone so either of two aliases can switch the option on.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if v {
		*dst = true
	}
	return nil
}
