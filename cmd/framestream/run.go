package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"framestream-go/internal/config"
	"framestream-go/internal/logging"
	"framestream-go/internal/metrics"
	"framestream-go/internal/output"
	"framestream-go/internal/publisher"
	"framestream-go/internal/scheduler"
	"framestream-go/internal/server"
	"framestream-go/internal/simulator"
	"framestream-go/internal/transport"
	"framestream-go/internal/waitgate"
)

func run(parent context.Context, cfg config.AppConfig, cfgPath string, log zerolog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	log = log.With().Str("run_id", runID).Logger()
	started := time.Now()
	m := metrics.New()

	sock, err := transport.Bind(cfg.TransportOptions())
	if err != nil {
		return fmt.Errorf("bind publisher: %w", err)
	}
	log.Info().Str("endpoint", sock.Endpoint()).Msg("publisher bound")

	gate := waitgate.Gate{
		Timeout:  cfg.WaitTimeout,
		Disabled: cfg.NoWait,
		Logger:   logging.Component(log, "waitgate"),
	}
	detected := gate.Wait(ctx, sock)
	if detected {
		m.SubscriberDetected.Store(1)
		log.Info().Dur("grace", cfg.WaitGrace).Msg("subscriber connected")
		select {
		case <-ctx.Done():
		case <-time.After(cfg.WaitGrace):
		}
	} else if !cfg.NoWait {
		log.Info().Dur("timeout", cfg.WaitTimeout).Msg("no subscriber yet, publishing anyway")
	}

	var recorder publisher.Recorder
	if cfg.RecordDir != "" {
		w, err := output.NewRawLogWriter(cfg.RecordDir, runID[:8])
		if err != nil {
			_ = sock.Close()
			return fmt.Errorf("open recording: %w", err)
		}
		defer func() {
			if err := w.Close(); err != nil {
				log.Warn().Err(err).Msg("close recording")
			}
		}()
		recorder = w
		log.Info().Str("path", w.Path()).Msg("recording frames")
	}

	pub := publisher.New(sock, publisher.Options{
		Logger:       log,
		DropLogEvery: cfg.DropLogEvery,
		Metrics:      m,
		Recorder:     recorder,
	})
	defer func() {
		if err := pub.Close(); err != nil && !errors.Is(err, publisher.ErrClosed) {
			log.Warn().Err(err).Msg("close publisher")
		}
	}()

	live := config.NewLive(cfg.Frequencies())
	cam := simulator.NewCamera(simulator.Options{Latency: cfg.SimLatency, Logger: log})
	sched := scheduler.New(
		func() scheduler.ConfigSnapshot {
			f := live.Snapshot()
			return scheduler.ConfigSnapshot{RGBHz: f.RGBHz, DepthHz: f.DepthHz}
		},
		cam,
		pub,
		scheduler.Options{
			RGB:         cfg.RGBStream(),
			Depth:       cfg.DepthStream(),
			DepthPolicy: cfg.DepthPolicy(),
			LoopHz:      cfg.LoopHz,
			InboxSize:   cfg.InboxSize,
			Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
			Logger:      log,
			Metrics:     m,
		},
	)
	cam.OnImageReceived(sched.Complete)
	go cam.Run(ctx)

	if cfgPath != "" {
		watcher := config.NewWatcher(cfgPath, live, log)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		srv := server.New(server.Options{
			Addr: cfg.HTTPAddr,
			Live: live,
			Status: func() map[string]any {
				return map[string]any{
					"run_id":              runID,
					"endpoint":            sock.Endpoint(),
					"uptime_seconds":      time.Since(started).Seconds(),
					"subscriber_detected": detected,
					"pending_captures":    sched.Pending(),
					"publisher":           pub.Stats(),
					"metrics":             m.Snapshot(),
				}
			},
			Config: func() map[string]any {
				return map[string]any{
					"endpoint":     sock.Endpoint(),
					"rgb_width":    cfg.RGBWidth,
					"rgb_height":   cfg.RGBHeight,
					"depth_width":  cfg.DepthWidth,
					"depth_height": cfg.DepthHeight,
					"loop_hz":      cfg.LoopHz,
					"max_range":    cfg.MaxRange,
					"nodata":       cfg.NoData,
				}
			},
			Metrics: m.Handler(),
			Logger:  log,
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	err = sched.Run(ctx)
	stop()
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	log.Info().Msg("shutting down")
	return nil
}
