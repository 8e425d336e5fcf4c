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

// Package stats is the atomic counter aggregator shared by every
// transport and the processor pool. All record methods use relaxed
// ordering: cross-counter skew within a single snapshot is expected and
// documented, never corrected for.
package stats

import "sync/atomic"

// Counters holds the seven atomic counters the ingestion core defines.
// It is safe for concurrent use by any number of producers and consumers.
type Counters struct {
	recvPackets atomic.Int64
	recvBytes   atomic.Int64
	processed   atomic.Int64
	active      atomic.Int64
	parseErrors atomic.Int64
	recvErrors  atomic.Int64
	drops       atomic.Int64
}

// New returns a zeroed Counters ready for use.
func New() *Counters {
	return &Counters{}
}

// RecordRecv accounts one received packet of n bytes.
func (c *Counters) RecordRecv(n int) {
	c.recvPackets.Add(1)
	c.recvBytes.Add(int64(n))
}

// RecordProcessed accounts one decoded-and-VAD'd packet; active marks
// whether the VAD result was active.
func (c *Counters) RecordProcessed(active bool) {
	c.processed.Add(1)
	if active {
		c.active.Add(1)
	}
}

// RecordParseError accounts one wire-decode failure.
func (c *Counters) RecordParseError() {
	c.parseErrors.Add(1)
}

// RecordRecvError accounts one persistent receive-path failure.
func (c *Counters) RecordRecvError() {
	c.recvErrors.Add(1)
}

// RecordDrop accounts one ring TryPush that returned Full or Oversize.
func (c *Counters) RecordDrop() {
	c.drops.Add(1)
}

// Snapshot is a point-in-time, zeroed-on-read view of every counter.
type Snapshot struct {
	RecvPackets int64
	RecvBytes   int64
	Processed   int64
	Active      int64
	ParseErrors int64
	RecvErrors  int64
	Drops       int64
}

// SnapshotAndReset atomically exchanges each counter to zero and returns
// the pre-exchange values. Each counter is exchanged independently, so an
// increment concurrent with the snapshot is attributed either to this
// snapshot or the next one, but never lost (invariant 8).
func (c *Counters) SnapshotAndReset() Snapshot {
	return Snapshot{
		RecvPackets: c.recvPackets.Swap(0),
		RecvBytes:   c.recvBytes.Swap(0),
		Processed:   c.processed.Swap(0),
		Active:      c.active.Swap(0),
		ParseErrors: c.parseErrors.Swap(0),
		RecvErrors:  c.recvErrors.Swap(0),
		Drops:       c.drops.Swap(0),
	}
}
