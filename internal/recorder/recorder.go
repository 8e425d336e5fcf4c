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

// Package recorder is an optional diagnostic tap that captures a sample of
// processed packets to an xz-compressed file. It runs entirely off the hot
// path: Observe never blocks the calling processor worker, and a full
// buffer drops the sample rather than applying backpressure.
package recorder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/USA-RedDragon/sensorhub/internal/vad"
	"github.com/USA-RedDragon/sensorhub/internal/wire"
	"github.com/ulikunitz/xz"
)

// bufferedSamples bounds how many pending samples can queue before Observe
// starts dropping them; this is independent of the pipeline's Drops counter.
const bufferedSamples = 1024

// Recorder captures every SampleEvery-th processed packet to an xz stream.
type Recorder struct {
	sampleEvery int
	seen        atomic.Uint64
	dropped     atomic.Uint64

	samples chan []byte
	done    chan struct{}

	file   *os.File
	bw     *bufio.Writer
	xw     *xz.Writer
	logger *slog.Logger
}

// New opens path for writing and starts the background flush goroutine.
// Every sampleEvery-th Observe call is captured; values below 1 are
// treated as 1.
func New(path string, sampleEvery int, logger *slog.Logger) (*Recorder, error) {
	if sampleEvery < 1 {
		sampleEvery = 1
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	xw, err := xz.NewWriter(bw)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}

	r := &Recorder{
		sampleEvery: sampleEvery,
		samples:     make(chan []byte, bufferedSamples),
		done:        make(chan struct{}),
		file:        f,
		bw:          bw,
		xw:          xw,
		logger:      logger,
	}
	go r.run()
	return r, nil
}

// Observe implements processor.Tap. It copies the packet's wire
// representation onto the sample queue every sampleEvery-th call; pkt must
// not be retained beyond this call, so Observe copies it (via wire.Encode)
// before returning.
func (r *Recorder) Observe(pkt *wire.SensorPacket, _ vad.Result) {
	n := r.seen.Add(1)
	if n%uint64(r.sampleEvery) != 0 {
		return
	}

	encoded := wire.Encode(pkt)
	select {
	case r.samples <- encoded:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many samples were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) run() {
	defer close(r.done)
	var lenPrefix [4]byte
	for sample := range r.samples {
		binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(sample)))
		if _, err := r.xw.Write(lenPrefix[:]); err != nil {
			r.logger.Warn("recorder write failed", "error", err)
			continue
		}
		if _, err := r.xw.Write(sample); err != nil {
			r.logger.Warn("recorder write failed", "error", err)
		}
	}
}

// Close stops accepting samples, flushes the xz stream, and closes the file.
func (r *Recorder) Close() error {
	close(r.samples)
	<-r.done

	if err := r.xw.Close(); err != nil {
		_ = r.bw.Flush()
		_ = r.file.Close()
		return fmt.Errorf("failed to close xz writer: %w", err)
	}
	if err := r.bw.Flush(); err != nil {
		_ = r.file.Close()
		return fmt.Errorf("failed to flush capture file: %w", err)
	}
	return r.file.Close()
}
