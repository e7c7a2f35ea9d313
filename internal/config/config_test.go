package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func bptr(v bool) *bool       { return &v }
func sptr(v string) *string   { return &v }

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.TransportOptions().Endpoint(); got != "tcp://0.0.0.0:55556" {
		t.Fatalf("default endpoint = %q", got)
	}
	p := cfg.DepthPolicy()
	if p.NoiseStdDev != 0.3 || p.MaxRange != 20000 || p.NoData != 9999999 {
		t.Fatalf("unexpected depth policy %+v", p)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"zero port", func(c *AppConfig) { c.Port = 0 }, "port"},
		{"zero hwm", func(c *AppConfig) { c.SendHWM = 0 }, "send-hwm"},
		{"zero loop", func(c *AppConfig) { c.LoopHz = 0 }, "loop-hz"},
		{"zero width", func(c *AppConfig) { c.RGBWidth = 0 }, "rgb-width"},
		{"width beyond header", func(c *AppConfig) { c.DepthHeight = 10000 }, "depth-height"},
		{"negative noise", func(c *AppConfig) { c.NoiseStdDev = -1 }, "noise-stddev"},
		{"zero frequency is fine", func(c *AppConfig) { c.RGBHz = 0 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyFileConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    FileConfig
		changed map[string]bool
		check   func(t *testing.T, c AppConfig)
		wantErr bool
	}{
		{
			name: "applies present keys",
			file: FileConfig{
				Publisher:      PublisherSection{Host: "127.0.0.1", Port: iptr(6000), KeepAliveIdle: "30s"},
				Scheduler:      SchedulerSection{RGBHz: fptr(30), DepthHz: fptr(0)},
				Camera:         CameraSection{Depth: StreamSection{Width: iptr(320), Height: iptr(240)}},
				SubscriberWait: WaitSection{Disabled: bptr(true)},
			},
			changed: map[string]bool{},
			check: func(t *testing.T, c AppConfig) {
				if c.Host != "127.0.0.1" || c.Port != 6000 || c.KeepAliveIdle != 30*time.Second {
					t.Errorf("publisher section not applied: %+v", c)
				}
				if c.RGBHz != 30 || c.DepthHz != 0 {
					t.Errorf("frequencies = %v/%v", c.RGBHz, c.DepthHz)
				}
				if c.DepthWidth != 320 || c.DepthHeight != 240 || c.RGBWidth != 512 {
					t.Errorf("camera sizes not applied: %+v", c)
				}
				if !c.NoWait {
					t.Errorf("subscriber wait not disabled")
				}
			},
		},
		{
			name:    "respects changed flags",
			file:    FileConfig{Publisher: PublisherSection{Port: iptr(6000)}, Scheduler: SchedulerSection{RGBHz: fptr(30)}},
			changed: map[string]bool{"port": true},
			check: func(t *testing.T, c AppConfig) {
				if c.Port != 55556 {
					t.Errorf("port = %d, want flag value kept", c.Port)
				}
				if c.RGBHz != 30 {
					t.Errorf("rgb_hz = %v, want 30", c.RGBHz)
				}
			},
		},
		{
			name: "empty http addr disables the server",
			file: FileConfig{HTTP: HTTPSection{Addr: sptr("")}},
			check: func(t *testing.T, c AppConfig) {
				if c.HTTPAddr != "" {
					t.Errorf("http addr = %q, want empty", c.HTTPAddr)
				}
			},
		},
		{
			name:    "bad duration",
			file:    FileConfig{SubscriberWait: WaitSection{Timeout: "soon"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := ApplyFileConfig(&cfg, tt.file, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framestream.toml")
	content := `
[publisher]
port = 7000
keepalive_idle = "60s"

[subscriber_wait]
timeout = "500ms"

[scheduler]
rgb_hz = 20.5
depth_hz = 0.0

[camera.rgb]
width = 640
height = 480

[depth]
max_range = 15000.0

[log]
level = "debug"
drop_every = 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig error: %v", err)
	}
	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, nil); err != nil {
		t.Fatalf("ApplyFileConfig error: %v", err)
	}
	if cfg.Port != 7000 || cfg.KeepAliveIdle != time.Minute || cfg.WaitTimeout != 500*time.Millisecond {
		t.Fatalf("publisher/wait not applied: %+v", cfg)
	}
	if cfg.RGBHz != 20.5 || cfg.DepthHz != 0 {
		t.Fatalf("frequencies = %v/%v", cfg.RGBHz, cfg.DepthHz)
	}
	if cfg.RGBWidth != 640 || cfg.RGBHeight != 480 || cfg.MaxRange != 15000 {
		t.Fatalf("camera/depth not applied: %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.DropLogEvery != 10 {
		t.Fatalf("log section not applied: %+v", cfg)
	}
}

func TestLoadFileConfigMissing(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("FRAMESTREAM_PORT", "6100")
	t.Setenv("FRAMESTREAM_RGB_HZ", "12.5")
	t.Setenv("FRAMESTREAM_WAIT_TIMEOUT", "750ms")
	t.Setenv("FRAMESTREAM_DEPTH_HZ", "3")
	t.Setenv("ST_ZMQ_NOWAIT", "1")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{"depth-hz": true}); err != nil {
		t.Fatalf("ApplyEnvConfig error: %v", err)
	}
	if cfg.Port != 6100 || cfg.RGBHz != 12.5 || cfg.WaitTimeout != 750*time.Millisecond {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.DepthHz != 5 {
		t.Fatalf("depth_hz = %v, want flag value kept", cfg.DepthHz)
	}
	if !cfg.NoWait {
		t.Fatalf("ST_ZMQ_NOWAIT=1 did not disable the wait")
	}
}

func TestApplyEnvConfigNoWaitAliases(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		want  bool
		isErr bool
	}{
		{"unset", nil, false, false},
		{"legacy zero", map[string]string{"ST_ZMQ_NOWAIT": "0"}, false, false},
		{"new name", map[string]string{"FRAMESTREAM_NOWAIT": "true"}, true, false},
		{"garbage", map[string]string{"FRAMESTREAM_NOWAIT": "perhaps"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ST_ZMQ_NOWAIT", "")
			t.Setenv("FRAMESTREAM_NOWAIT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			err := ApplyEnvConfig(&cfg, nil)
			if (err != nil) != tt.isErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.isErr)
			}
			if cfg.NoWait != tt.want {
				t.Fatalf("NoWait = %v, want %v", cfg.NoWait, tt.want)
			}
		})
	}
}

func TestApplyEnvConfigBadNumber(t *testing.T) {
	t.Setenv("FRAMESTREAM_LOOP_HZ", "fast")
	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
