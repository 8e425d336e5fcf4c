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

package recorder_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/recorder"
	"github.com/USA-RedDragon/sensorhub/internal/vad"
	"github.com/USA-RedDragon/sensorhub/internal/wire"
	"github.com/ulikunitz/xz"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorderSamplesEveryNth(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "capture.xz")
	r, err := recorder.New(path, 3, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pkt := &wire.SensorPacket{SensorID: 1, DataType: vad.DataTypeAudio, Payload: []byte{1, 2}}
	for i := 0; i < 9; i++ {
		r.Observe(pkt, vad.Result{})
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		t.Fatalf("xz.NewReader: %v", err)
	}
	data, err := io.ReadAll(xr)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty capture, 3 of 9 observations should have been sampled")
	}
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "capture.xz")
	r, err := recorder.New(path, 1, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	pkt := &wire.SensorPacket{SensorID: 1, DataType: vad.DataTypeAudio, Payload: []byte{1, 2}}
	for i := 0; i < 100000; i++ {
		r.Observe(pkt, vad.Result{})
	}

	// Give the flush goroutine essentially no time to drain; some
	// observations should have been dropped rather than blocking the caller.
	time.Sleep(time.Millisecond)
	if r.Dropped() == 0 {
		t.Error("expected some of 100000 observations to be dropped with a 1024-sample queue, got 0")
	}
}
