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

// Package ring implements the bounded, lock-free, multi-producer /
// multi-consumer ring buffer that decouples transport receivers from the
// processor pool. Capacity is always a power of two; slots are reused in
// FIFO order and coordinated by a reserve/publish/claim/release protocol
// on a per-slot readiness flag, never by a lock.
package ring

import (
	"sync/atomic"
)

// SlotSize is the fixed size of each ring slot in bytes. It must be a
// cache-line multiple; the body available to a push is SlotSize minus the
// slot header.
const SlotSize = 512

const slotHeaderSize = 8 // ready (uint32) + len (uint16) + 2 bytes pad

// SlotBody is the number of payload bytes a single slot can hold.
const SlotBody = SlotSize - slotHeaderSize

const cacheLinePad = 64

// PushResult is the outcome of a TryPush call.
type PushResult uint8

const (
	// PushOK means the payload was reserved, written and published.
	PushOK PushResult = iota
	// PushFull means the ring had no free slot; the caller should count a drop.
	PushFull
	// PushOversize means the payload exceeds SlotBody and was rejected
	// without touching any slot.
	PushOversize
)

// PopResult is the outcome of a TryPop call.
type PopResult uint8

const (
	// PopOK means a slot was claimed and copied into the caller's buffer.
	PopOK PopResult = iota
	// PopEmpty means no published slot was available to claim.
	PopEmpty
)

// slot is one fixed-size ring entry. ready transitions 0 (empty) -> 1
// (published, claimable) -> 0 (released) and is the synchronization point
// between a producer's write and a consumer's read of data[:len].
type slot struct {
	ready atomic.Uint32
	len   uint16
	_     [2]byte
	data  [SlotBody]byte
}

// Ring is the bounded MPMC ring described in the ingestion core's design:
// head and tail are reservation/claim counters living on separate cache
// lines so producers and consumers never false-share them.
type Ring struct {
	head atomic.Uint64
	_    [cacheLinePad - 8]byte
	tail atomic.Uint64
	_    [cacheLinePad - 8]byte

	mask     uint64
	capacity uint64
	slots    []slot
}

// New builds a ring with the given capacity rounded up to the next power
// of two. Capacity must be at least 1.
func New(capacity int) *Ring {
	cap64 := nextPowerOfTwo(uint64(capacity)) //nolint:gosec
	return &Ring{
		mask:     cap64 - 1,
		capacity: cap64,
		slots:    make([]slot, cap64),
	}
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// Capacity returns the ring's (power-of-two) slot count.
func (r *Ring) Capacity() uint64 {
	return r.capacity
}

// Occupancy returns head-tail, a snapshot of in-flight slot count. It is
// advisory only; used for diagnostics, never for control flow on the hot path.
func (r *Ring) Occupancy() uint64 {
	return r.head.Load() - r.tail.Load()
}

// TryPush reserves a slot, copies data into it, and publishes it. It never
// blocks: a full ring or an oversize payload return immediately without
// mutating any slot.
func (r *Ring) TryPush(data []byte) PushResult {
	if len(data) > SlotBody {
		return PushOversize
	}

	for {
		h := r.head.Load()
		t := r.tail.Load()
		if h-t >= r.capacity {
			return PushFull
		}
		if r.head.CompareAndSwap(h, h+1) {
			s := &r.slots[h&r.mask]
			s.len = uint16(len(data)) //nolint:gosec
			copy(s.data[:], data)
			s.ready.Store(1) // release-store: publishes the write above
			return PushOK
		}
	}
}

// TryPop claims the oldest published slot and copies its payload into dst,
// returning the number of bytes copied. dst must be at least SlotBody long.
func (r *Ring) TryPop(dst []byte) (int, PopResult) {
	for {
		t := r.tail.Load()
		h := r.head.Load()
		if t >= h {
			return 0, PopEmpty
		}
		s := &r.slots[t&r.mask]
		if s.ready.Load() == 0 {
			// Producer has reserved this slot but not finished writing it.
			return 0, PopEmpty
		}
		if r.tail.CompareAndSwap(t, t+1) {
			n := int(s.len)
			copy(dst, s.data[:n])
			s.ready.Store(0)
			return n, PopOK
		}
	}
}

// PopBatch repeatedly calls TryPop to fill as many of dst's elements as
// there are published slots, up to len(dst). It is not atomic across
// slots: other consumers may interleave between individual pops, but each
// slot is still claimed by exactly one consumer. It returns the number of
// entries filled.
func (r *Ring) PopBatch(dst [][]byte) int {
	count := 0
	for count < len(dst) {
		n, result := r.TryPop(dst[count])
		if result != PopOK {
			break
		}
		dst[count] = dst[count][:n]
		count++
	}
	return count
}
