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

// onMessage is exercised directly (in-package) rather than against a real
// broker: spinning up Mosquitto or an in-process broker for every test run
// buys nothing over calling the paho callback with a fake paho.Message,
// since the transport does nothing broker-specific beyond that callback.
package mqtt

import (
	"io"
	"log/slog"
	"testing"

	"github.com/USA-RedDragon/sensorhub/internal/config"
	"github.com/USA-RedDragon/sensorhub/internal/ring"
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/USA-RedDragon/sensorhub/internal/vad"
	"github.com/USA-RedDragon/sensorhub/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMessage is the minimal paho.Message needed to drive onMessage.
type fakeMessage struct {
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "vad/sensors/1" }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

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

// TestOnMessagePushesRawBytesUnconditionally covers spec.md §8 E1: a
// well-formed payload is counted and pushed to the ring without the
// transport itself calling wire.Decode.
func TestOnMessagePushesRawBytesUnconditionally(t *testing.T) {
	t.Parallel()

	r := ring.New(16)
	counts := stats.New()
	s := New(config.MQTT{Host: "127.0.0.1", Port: 1883, Topic: "vad/sensors/+"}, r, counts, testLogger())

	frame := audioFrame(1, 7)
	s.onMessage(nil, &fakeMessage{payload: frame})

	buf := make([]byte, ring.SlotBody)
	n, res := r.TryPop(buf)
	if res != ring.PopOK {
		t.Fatalf("TryPop: got %v, want PopOK", res)
	}
	if n != len(frame) {
		t.Errorf("got %d popped bytes, want %d", n, len(frame))
	}

	snap := counts.SnapshotAndReset()
	if snap.RecvPackets != 1 {
		t.Errorf("got %d recv packets, want 1", snap.RecvPackets)
	}
	if snap.RecvBytes != int64(len(frame)) {
		t.Errorf("got %d recv bytes, want %d", snap.RecvBytes, len(frame))
	}
	if snap.ParseErrors != 0 {
		t.Errorf("the transport must not decode or record parse errors, got %d", snap.ParseErrors)
	}
}

// TestOnMessagePushesMalformedPayloadToRing covers spec.md §8 E6 under the
// corrected contract: a payload too short to decode as a packet still
// lands in the ring. Recognizing it as a parse error is the processor
// pool's job, not the transport's.
func TestOnMessagePushesMalformedPayloadToRing(t *testing.T) {
	t.Parallel()

	r := ring.New(16)
	counts := stats.New()
	s := New(config.MQTT{Host: "127.0.0.1", Port: 1883, Topic: "vad/sensors/+"}, r, counts, testLogger())

	garbage := []byte{0xde, 0xad}
	s.onMessage(nil, &fakeMessage{payload: garbage})

	if r.Occupancy() != 1 {
		t.Fatalf("got occupancy %d, want 1", r.Occupancy())
	}

	snap := counts.SnapshotAndReset()
	if snap.RecvPackets != 1 {
		t.Errorf("got %d recv packets, want 1", snap.RecvPackets)
	}
	if snap.ParseErrors != 0 {
		t.Errorf("the transport must not decode or record parse errors, got %d", snap.ParseErrors)
	}
}

func TestOnMessageDropsWhenRingIsFull(t *testing.T) {
	t.Parallel()

	r := ring.New(1)
	counts := stats.New()
	s := New(config.MQTT{Host: "127.0.0.1", Port: 1883, Topic: "vad/sensors/+"}, r, counts, testLogger())

	s.onMessage(nil, &fakeMessage{payload: audioFrame(1, 1)})
	s.onMessage(nil, &fakeMessage{payload: audioFrame(2, 1)})

	snap := counts.SnapshotAndReset()
	if snap.RecvPackets != 2 {
		t.Errorf("got %d recv packets, want 2", snap.RecvPackets)
	}
	if snap.Drops != 1 {
		t.Errorf("got %d drops, want 1", snap.Drops)
	}
}
