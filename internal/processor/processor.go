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

// Package processor drains the ring buffer with a fixed pool of worker
// goroutines, decoding each slot into a wire.SensorPacket and running the
// VAD kernel over it (spec.md §4.H).
package processor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/ring"
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/USA-RedDragon/sensorhub/internal/vad"
	"github.com/USA-RedDragon/sensorhub/internal/wire"
)

// idleBackoff is how long a worker sleeps after finding the ring empty,
// so an idle pipeline doesn't spin every goroutine at 100% CPU.
const idleBackoff = 200 * time.Microsecond

// Tap receives every successfully decoded packet and its VAD result before
// the worker's scratch buffer is reused. Implementations must not retain pkt
// or pkt.Payload beyond the call since the underlying buffer is recycled.
type Tap interface {
	Observe(pkt *wire.SensorPacket, result vad.Result)
}

// Pool is a fixed-size worker pool draining a shared ring buffer.
type Pool struct {
	ring    *ring.Ring
	counts  *stats.Counters
	logger  *slog.Logger
	threads int
	tap     Tap

	bufPool sync.Pool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// New creates a processor pool of the given size. tap may be nil.
func New(r *ring.Ring, counters *stats.Counters, logger *slog.Logger, threads int, tap Tap) *Pool {
	return &Pool{
		ring:    r,
		counts:  counters,
		logger:  logger,
		threads: threads,
		tap:     tap,
		bufPool: sync.Pool{
			New: func() any {
				b := make([]byte, ring.SlotBody)
				return &b
			},
		},
	}
}

// Start spawns the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.threads; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("processor pool started", "threads", p.threads)
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		bufPtr := p.bufPool.Get().(*[]byte) //nolint:errcheck,forcetypeassert
		buf := *bufPtr

		n, res := p.ring.TryPop(buf)
		if res == ring.PopEmpty {
			p.bufPool.Put(bufPtr)
			time.Sleep(idleBackoff)
			continue
		}

		var pkt wire.SensorPacket
		if err := wire.Decode(buf[:n], &pkt); err != nil {
			p.counts.RecordParseError()
			p.bufPool.Put(bufPtr)
			continue
		}

		result := vad.Compute(&pkt)
		p.counts.RecordProcessed(result.IsActive)

		if p.tap != nil {
			p.tap.Observe(&pkt, result)
		}

		p.bufPool.Put(bufPtr)
	}
}

// Stop cancels every worker and waits for them to exit.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
