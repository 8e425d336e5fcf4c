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

package stats_test

import (
	"sync"
	"testing"

	"github.com/USA-RedDragon/sensorhub/internal/stats"
)

func TestSnapshotAndResetZeroesCounters(t *testing.T) {
	t.Parallel()

	c := stats.New()
	c.RecordRecv(100)
	c.RecordProcessed(true)
	c.RecordParseError()
	c.RecordRecvError()
	c.RecordDrop()

	snap := c.SnapshotAndReset()
	if snap.RecvPackets != 1 || snap.RecvBytes != 100 || snap.Processed != 1 ||
		snap.Active != 1 || snap.ParseErrors != 1 || snap.RecvErrors != 1 || snap.Drops != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	second := c.SnapshotAndReset()
	if second != (stats.Snapshot{}) {
		t.Errorf("expected zero snapshot after reset, got %+v", second)
	}
}

// TestConcurrentIncrementsNeverLost covers invariant 8: increments
// concurrent with a snapshot are accounted either to that snapshot or the
// next one, never lost.
func TestConcurrentIncrementsNeverLost(t *testing.T) {
	t.Parallel()

	c := stats.New()
	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.RecordRecv(1)
			}
		}()
	}

	var total int64
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

loop:
	for {
		select {
		case <-done:
			break loop
		default:
			total += c.SnapshotAndReset().RecvPackets
		}
	}
	total += c.SnapshotAndReset().RecvPackets

	if want := int64(goroutines * perGoroutine); total != want {
		t.Errorf("got total %d, want %d", total, want)
	}
}

func TestSnapshotCodecRoundTrip(t *testing.T) {
	t.Parallel()

	want := stats.Snapshot{
		RecvPackets: 1, RecvBytes: 2, Processed: 3,
		Active: 4, ParseErrors: 5, RecvErrors: 6, Drops: 7,
	}
	buf, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got stats.Snapshot
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
