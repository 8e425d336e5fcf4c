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

package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/tracing"
	"go.opentelemetry.io/otel"
)

const minReportWindow = time.Millisecond

// Reporter owns the wall-clock reporting gate. Tick is called repeatedly
// by a single owner goroutine (cmd's report loop, on its own ticker); the
// processor pool workers never call it. When interval has elapsed, Tick
// resets the counters, logs the stable `[STATS]` line, and publishes the
// snapshot to the configured Sink off the hot path.
type Reporter struct {
	counters  *Counters
	transport string
	interval  time.Duration
	sink      Sink
	logger    *slog.Logger
	last      time.Time
}

// NewReporter builds a Reporter for the given transport label ("UDP",
// "TCP" or "MQTT"). An interval of zero disables reporting entirely.
func NewReporter(counters *Counters, transport string, interval time.Duration, sink Sink, logger *slog.Logger) *Reporter {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Reporter{
		counters:  counters,
		transport: transport,
		interval:  interval,
		sink:      sink,
		logger:    logger,
		last:      time.Now(),
	}
}

// Tick checks the monotonic elapsed time since the last report; if the
// configured interval has passed, it snapshots, logs and publishes. It is
// a no-op when reporting is disabled (interval == 0).
func (r *Reporter) Tick() {
	if r.interval <= 0 {
		return
	}

	now := time.Now()
	elapsed := now.Sub(r.last)
	if elapsed < r.interval {
		return
	}
	r.last = now

	_, span := otel.Tracer(tracing.TracerName).Start(context.Background(), "stats.Reporter.Tick")
	defer span.End()

	if elapsed < minReportWindow {
		elapsed = minReportWindow
	}

	snap := r.counters.SnapshotAndReset()
	seconds := elapsed.Seconds()

	pps := float64(snap.RecvPackets) / seconds
	mbps := float64(snap.RecvBytes) * 8 / 1_000_000 / seconds
	procS := float64(snap.Processed) / seconds

	r.logger.Info(fmt.Sprintf(
		"[STATS] %s: %.0f pps, %.2f Mbps | VAD: %.0f proc/s, %d active | errors: parse=%d recv=%d drops=%d",
		r.transport, pps, mbps, procS, snap.Active, snap.ParseErrors, snap.RecvErrors, snap.Drops,
	))

	if err := r.sink.PublishSnapshot(snap); err != nil {
		r.logger.Warn("failed to publish stats snapshot", "error", err)
	}
}
