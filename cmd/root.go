// SPDX-License-Identifier: AGPL-3.0-or-later
// sensorhub - high-throughput sensor ingestion pipeline
// Copyright (C) 2026 The sensorhub Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/config"
	"github.com/USA-RedDragon/sensorhub/internal/housekeeping"
	"github.com/USA-RedDragon/sensorhub/internal/logging"
	"github.com/USA-RedDragon/sensorhub/internal/metrics"
	"github.com/USA-RedDragon/sensorhub/internal/pprof"
	"github.com/USA-RedDragon/sensorhub/internal/processor"
	"github.com/USA-RedDragon/sensorhub/internal/recorder"
	"github.com/USA-RedDragon/sensorhub/internal/ring"
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/USA-RedDragon/sensorhub/internal/tracing"
	"github.com/USA-RedDragon/sensorhub/internal/transport/mqtt"
	"github.com/USA-RedDragon/sensorhub/internal/transport/tcp"
	"github.com/USA-RedDragon/sensorhub/internal/transport/udp"
	"github.com/USA-RedDragon/configulator"
	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"golang.org/x/sync/errgroup"
)

// NewCommand builds the sensorhub root command.
func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sensorhub",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("sensorhub - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	logger := logging.NewRoot(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	scheduler, err := setupScheduler()
	if err != nil {
		return err
	}

	cleanup, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := housekeeping.RegisterRingOccupancyJob(scheduler, p.ring, logger); err != nil {
		return err
	}
	scheduler.Start()

	if err := p.start(ctx); err != nil {
		return err
	}
	defer p.shutdown(ctx)

	startReportLoop(ctx, p)

	setupShutdownHandlers(scheduler, p, logger)
	return nil
}

// loadConfig loads the configuration from context.
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupScheduler creates and configures the job scheduler.
func setupScheduler() (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return scheduler, nil
}

// transportServer is the lifecycle shared by every ingestion transport.
type transportServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// pipeline wires a single transport into the shared ring, processor pool,
// stats reporter and optional recorder.
type pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	ring      *ring.Ring
	counters  *stats.Counters
	reporter  *stats.Reporter
	processor *processor.Pool
	transport transportServer
	recorder  *recorder.Recorder

	metricsServer *metrics.Server
	pprofServer   *pprof.Server
	statsSink     stats.Sink
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	r := ring.New(cfg.Ring.Capacity)
	counters := stats.New()

	p := &pipeline{
		cfg:      cfg,
		logger:   logger,
		ring:     r,
		counters: counters,
	}

	if cfg.Metrics.Enabled {
		p.metricsServer = metrics.NewServer(cfg.Metrics, logging.Component(logger, "metrics"))
	}

	var sink stats.Sink
	switch {
	case cfg.Stats.Sink == config.StatsSinkRedis:
		redisSink, err := stats.NewRedisSink(ctx, stats.RedisSinkConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect stats sink to redis: %w", err)
		}
		sink = redisSink
	case p.metricsServer != nil:
		sink = p.metricsServer.Sink()
	default:
		sink = stats.NoopSink{}
	}
	p.statsSink = sink

	p.reporter = stats.NewReporter(counters, strings.ToUpper(string(cfg.Transport)), time.Duration(cfg.Stats.IntervalSeconds)*time.Second, sink, logger)

	if cfg.PProf.Enabled {
		p.pprofServer = pprof.NewServer(cfg.PProf)
	}

	var tap processor.Tap
	if cfg.Recorder.Enabled {
		rec, err := recorder.New(cfg.Recorder.Path, cfg.Recorder.SampleEvery, logging.Component(logger, "recorder"))
		if err != nil {
			return nil, fmt.Errorf("failed to start recorder: %w", err)
		}
		p.recorder = rec
		tap = rec
	}

	p.processor = processor.New(r, counters, logging.Component(logger, "processor"), cfg.Processing.Threads, tap)

	switch cfg.Transport {
	case config.TransportUDP:
		p.transport = udp.New(cfg.UDP, r, counters, logging.Component(logger, "udp"))
	case config.TransportTCP:
		p.transport = tcp.New(cfg.TCP, r, counters, logging.Component(logger, "tcp"))
	case config.TransportMQTT:
		p.transport = mqtt.New(cfg.MQTT, r, counters, logging.Component(logger, "mqtt"))
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}

	return p, nil
}

func (p *pipeline) start(ctx context.Context) error {
	p.processor.Start(ctx)

	if p.metricsServer != nil {
		if err := p.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}
	if p.pprofServer != nil {
		if err := p.pprofServer.Start(); err != nil {
			return fmt.Errorf("failed to start pprof server: %w", err)
		}
	}

	if err := p.transport.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s transport: %w", p.cfg.Transport, err)
	}

	p.logger.Info("sensorhub ready to accept traffic", "transport", p.cfg.Transport)
	return nil
}

// startReportLoop runs the stats reporter's gating tick on its own
// goroutine so it advances independent of traffic volume.
func startReportLoop(ctx context.Context, p *pipeline) {
	go func() {
		const tick = 100 * time.Millisecond
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.reporter.Tick()
			}
		}
	}()
}

func (p *pipeline) shutdown(ctx context.Context) {
	if err := p.transport.Stop(ctx); err != nil {
		p.logger.Error("failed to stop transport", "error", err)
	}
	p.processor.Stop()
	if p.recorder != nil {
		if err := p.recorder.Close(); err != nil {
			p.logger.Error("failed to close recorder", "error", err)
		}
	}
	if p.metricsServer != nil {
		if err := p.metricsServer.Stop(ctx); err != nil {
			p.logger.Error("failed to stop metrics server", "error", err)
		}
	}
	if p.pprofServer != nil {
		if err := p.pprofServer.Stop(ctx); err != nil {
			p.logger.Error("failed to stop pprof server", "error", err)
		}
	}
	if p.statsSink != nil {
		if err := p.statsSink.Close(); err != nil {
			p.logger.Error("failed to close stats sink", "error", err)
		}
	}
}

// setupShutdownHandlers registers the signal-triggered teardown with
// ztrue/shutdown and blocks until one of the handled signals arrives.
func setupShutdownHandlers(scheduler gocron.Scheduler, p *pipeline, logger *slog.Logger) {
	stop := func(sig os.Signal) {
		ctx := context.Background()
		logger.Error("shutting down due to signal", "signal", sig)

		g := new(errgroup.Group)

		g.Go(func() error {
			if err := scheduler.StopJobs(); err != nil {
				return fmt.Errorf("failed to stop scheduler jobs: %w", err)
			}
			if err := scheduler.Shutdown(); err != nil {
				return fmt.Errorf("failed to stop scheduler: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			p.shutdown(ctx)
			return nil
		})

		const timeout = 10 * time.Second
		done := make(chan error, 1)
		go func() {
			done <- g.Wait()
		}()
		select {
		case err := <-done:
			if err != nil {
				logger.Error("component shutdown reported an error", "error", err)
			}
			logger.Info("all components stopped, shutting down gracefully")
			os.Exit(0)
		case <-time.After(timeout):
			logger.Error("shutdown timed out, forcing exit")
			os.Exit(1)
		}
	}

	shutdown.AddWithParam(stop)
	shutdown.Listen(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}
