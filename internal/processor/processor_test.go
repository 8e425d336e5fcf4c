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

package processor_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/processor"
	"github.com/USA-RedDragon/sensorhub/internal/ring"
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/USA-RedDragon/sensorhub/internal/testutils/retry"
	"github.com/USA-RedDragon/sensorhub/internal/vad"
	"github.com/USA-RedDragon/sensorhub/internal/wire"
)

type countingTap struct {
	mu    sync.Mutex
	count int
}

func (c *countingTap) Observe(_ *wire.SensorPacket, _ vad.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *countingTap) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func audioFrame(seq uint64, samples ...int16) []byte {
	payload := make([]byte, len(samples)*2)
	for i, s := range samples {
		payload[i*2] = byte(uint16(s))
		payload[i*2+1] = byte(uint16(s) >> 8)
	}
	pkt := &wire.SensorPacket{
		SensorID:    1,
		TimestampUs: 0,
		DataType:    vad.DataTypeAudio,
		Seq:         seq,
		Payload:     payload,
	}
	return wire.Encode(pkt)
}

func TestPoolProcessesEnqueuedPackets(t *testing.T) {
	t.Parallel()

	r := ring.New(64)
	counts := stats.New()
	tap := &countingTap{}
	pool := processor.New(r, counts, testLogger(), 2, tap)

	const total = 50
	for i := 0; i < total; i++ {
		if res := r.TryPush(audioFrame(uint64(i), 100, 100)); res != ring.PushOK {
			t.Fatalf("push %d failed: %v", i, res)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	retry.Retry(t, 200, 10*time.Millisecond, func(r *retry.R) {
		if got := tap.Count(); got < total {
			r.Errorf("got %d observed packets so far, want %d", got, total)
		}
	})

	cancel()
	pool.Stop()

	if got := tap.Count(); got != total {
		t.Errorf("got %d observed packets, want %d", got, total)
	}

	snap := counts.SnapshotAndReset()
	if snap.Processed != total {
		t.Errorf("got %d processed, want %d", snap.Processed, total)
	}
	if snap.Active != total {
		t.Errorf("got %d active (energy=100 > 30 threshold), want %d", snap.Active, total)
	}
}

func TestPoolStopReturnsWithNoWork(t *testing.T) {
	t.Parallel()

	r := ring.New(16)
	pool := processor.New(r, stats.New(), testLogger(), 1, nil)
	pool.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	pool.Stop()
}
