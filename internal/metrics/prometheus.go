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

package metrics

import (
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors the stats.Snapshot fields as Prometheus counters so the
// same numbers exposed by the `[STATS]` log line are scrapeable.
type Metrics struct {
	RecvPacketsTotal prometheus.Counter
	RecvBytesTotal   prometheus.Counter
	ProcessedTotal   prometheus.Counter
	ActiveTotal      prometheus.Counter
	ParseErrorsTotal prometheus.Counter
	RecvErrorsTotal  prometheus.Counter
	DropsTotal       prometheus.Counter
}

// NewMetrics constructs and registers the sensorhub Prometheus collectors
// against the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecvPacketsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_recv_packets_total",
			Help: "Total number of packets received across all transports.",
		}),
		RecvBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_recv_bytes_total",
			Help: "Total number of bytes received across all transports.",
		}),
		ProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_processed_total",
			Help: "Total number of packets successfully processed by the VAD kernel.",
		}),
		ActiveTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_active_total",
			Help: "Total number of processed packets classified as voice/emotionally active.",
		}),
		ParseErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_parse_errors_total",
			Help: "Total number of packets rejected by the wire codec.",
		}),
		RecvErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_recv_errors_total",
			Help: "Total number of transport-level receive errors.",
		}),
		DropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorhub_ring_drops_total",
			Help: "Total number of packets dropped because the ring buffer was full or oversized.",
		}),
	}
	reg.MustRegister(
		m.RecvPacketsTotal, m.RecvBytesTotal, m.ProcessedTotal,
		m.ActiveTotal, m.ParseErrorsTotal, m.RecvErrorsTotal, m.DropsTotal,
	)
	return m
}

// Observe folds a stats.Snapshot's deltas into the registered counters.
// Snapshots are already reset-on-read, so every field is an increment.
func (m *Metrics) Observe(snap stats.Snapshot) {
	m.RecvPacketsTotal.Add(float64(snap.RecvPackets))
	m.RecvBytesTotal.Add(float64(snap.RecvBytes))
	m.ProcessedTotal.Add(float64(snap.Processed))
	m.ActiveTotal.Add(float64(snap.Active))
	m.ParseErrorsTotal.Add(float64(snap.ParseErrors))
	m.RecvErrorsTotal.Add(float64(snap.RecvErrors))
	m.DropsTotal.Add(float64(snap.Drops))
}
