package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"framestream-go/internal/ingest"
	"framestream-go/internal/logging"
	"framestream-go/internal/output"
	"framestream-go/internal/types"
)

type counters struct {
	frames int
	bytes  int
}

func main() {
	var (
		endpoint  string
		saveDir   string
		saveEvery time.Duration
		conflate  bool
		logLevel  string
		duration  time.Duration
	)

	root := &cobra.Command{
		Use:           "framestream-sub",
		Short:         "Subscribe to a framestream publisher and report what arrives",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(logLevel, os.Stderr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			opts := ingest.DefaultOptions(endpoint)
			opts.Conflate = conflate
			opts.Logger = log
			frames, err := ingest.Stream(ctx, opts)
			if err != nil {
				return err
			}
			log.Info().Str("endpoint", endpoint).Bool("conflate", conflate).Msg("subscribed")

			report := time.NewTicker(time.Second)
			defer report.Stop()
			window := map[types.StreamType]*counters{
				types.StreamRGB:   {},
				types.StreamDepth: {},
			}
			lastSaved := map[types.StreamType]time.Time{}
			windowStart := time.Now()

			for {
				select {
				case msg, ok := <-frames:
					if !ok {
						return nil
					}
					c := window[msg.Header.Type]
					c.frames++
					c.bytes += msg.Size
					if saveDir == "" || msg.Received.Sub(lastSaved[msg.Header.Type]) < saveEvery {
						continue
					}
					path, err := output.WriteSnapshot(saveDir, msg.Header, msg.Payload, msg.Received)
					if err != nil {
						log.Warn().Err(err).Msg("snapshot failed")
						continue
					}
					lastSaved[msg.Header.Type] = msg.Received
					log.Debug().Str("path", path).Msg("snapshot written")

				case now := <-report.C:
					secs := now.Sub(windowStart).Seconds()
					rgb, depth := window[types.StreamRGB], window[types.StreamDepth]
					log.Info().
						Float64("rgb_fps", float64(rgb.frames)/secs).
						Float64("depth_fps", float64(depth.frames)/secs).
						Float64("mbit_s", float64(rgb.bytes+depth.bytes)*8/1e6/secs).
						Msg("received")
					*rgb, *depth = counters{}, counters{}
					windowStart = now
				}
			}
		},
	}

	f := root.Flags()
	f.StringVarP(&endpoint, "endpoint", "e", "tcp://localhost:55556", "publisher endpoint")
	f.StringVar(&saveDir, "save-dir", "", "write received frames as PNG (RGB) and raw float32 (depth)")
	f.DurationVar(&saveEvery, "save-every", time.Second, "minimum interval between snapshots per stream")
	f.BoolVar(&conflate, "conflate", true, "keep only the newest unread frame")
	f.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	f.DurationVar(&duration, "duration", 0, "exit after this long (0 runs until interrupted)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "framestream-sub: %v\n", err)
		os.Exit(1)
	}
}
