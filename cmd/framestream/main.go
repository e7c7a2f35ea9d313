package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"framestream-go/internal/config"
	"framestream-go/internal/logging"
)

const longHelp = `Publish RGB and depth camera frames over a ZeroMQ PUB socket.

Frames are sent without blocking: when no subscriber is connected or the
subscriber falls behind, older frames are dropped and only the newest one
per socket is kept. Settings come from defaults, an optional TOML file,
FRAMESTREAM_* environment variables and flags, in increasing precedence.
Capture frequencies can be changed while running by editing the file or
POSTing to /config.`

var exampleUsage = strings.TrimSpace(`
  framestream --port 55556 --rgb-hz 15 --depth-hz 5
  framestream --config framestream.toml --record-dir recordings
  ST_ZMQ_NOWAIT=1 framestream --http-addr ""
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := config.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "framestream",
		Short:         "Low-latency RGB/depth frame publisher",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgPath != "" {
				if !config.FileExists(cfgPath) {
					return fmt.Errorf("config file %s not found", cfgPath)
				}
				fc, err := config.LoadFileConfig(cfgPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := config.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := config.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logging.New(cfg.LogLevel, os.Stderr)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cfgPath, log)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to a TOML config file (watched for rgb_hz/depth_hz changes)")

	f.StringVar(&cfg.Host, "host", cfg.Host, "interface to bind the publish socket on")
	f.IntVar(&cfg.Port, "port", cfg.Port, "TCP port of the publish socket")
	f.IntVar(&cfg.SendHWM, "send-hwm", cfg.SendHWM, "outbound queue depth before frames are dropped")
	f.IntVar(&cfg.SendBuffer, "send-buffer", cfg.SendBuffer, "kernel send buffer in bytes")
	f.DurationVar(&cfg.KeepAliveIdle, "keepalive-idle", cfg.KeepAliveIdle, "TCP keepalive idle time")

	f.DurationVar(&cfg.WaitTimeout, "wait-timeout", cfg.WaitTimeout, "how long to wait for a first subscriber at startup")
	f.DurationVar(&cfg.WaitGrace, "wait-grace", cfg.WaitGrace, "extra delay after a subscriber was seen")
	f.BoolVar(&cfg.NoWait, "no-wait", cfg.NoWait, "do not wait for a subscriber (also ST_ZMQ_NOWAIT=1)")

	f.Float64Var(&cfg.LoopHz, "loop-hz", cfg.LoopHz, "control loop rate")
	f.Float64Var(&cfg.RGBHz, "rgb-hz", cfg.RGBHz, "RGB capture frequency, <= 0 pauses")
	f.Float64Var(&cfg.DepthHz, "depth-hz", cfg.DepthHz, "depth capture frequency, <= 0 pauses")
	f.IntVar(&cfg.InboxSize, "inbox-size", cfg.InboxSize, "completed captures buffered for the control loop")

	f.IntVar(&cfg.RGBWidth, "rgb-width", cfg.RGBWidth, "RGB image width")
	f.IntVar(&cfg.RGBHeight, "rgb-height", cfg.RGBHeight, "RGB image height")
	f.IntVar(&cfg.DepthWidth, "depth-width", cfg.DepthWidth, "depth image width")
	f.IntVar(&cfg.DepthHeight, "depth-height", cfg.DepthHeight, "depth image height")

	f.Float64Var(&cfg.NoiseStdDev, "noise-stddev", cfg.NoiseStdDev, "standard deviation of depth noise")
	f.Float64Var(&cfg.MaxRange, "max-range", cfg.MaxRange, "depth beyond this is replaced by --nodata")
	f.Float64Var(&cfg.NoData, "nodata", cfg.NoData, "depth value meaning no measurement")

	f.DurationVar(&cfg.SimLatency, "sim-latency", cfg.SimLatency, "simulated capture latency")

	f.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "status/metrics listen address, empty disables")
	f.StringVar(&cfg.RecordDir, "record-dir", cfg.RecordDir, "write published frames to a recording in this directory")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	f.IntVar(&cfg.DropLogEvery, "drop-log-every", cfg.DropLogEvery, "log every Nth dropped frame")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "framestream: %v\n", err)
		os.Exit(1)
	}
}
