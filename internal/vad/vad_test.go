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

package vad_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/USA-RedDragon/sensorhub/internal/vad"
	"github.com/USA-RedDragon/sensorhub/internal/wire"
)

func audioPacket(samples ...int16) *wire.SensorPacket {
	payload := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(payload[i*2:i*2+2], uint16(s)) //nolint:gosec
	}
	return &wire.SensorPacket{DataType: vad.DataTypeAudio, Payload: payload}
}

func TestAudioZeroSamples(t *testing.T) {
	t.Parallel()

	result := vad.Compute(audioPacket())
	if result.Energy != 0 || result.IsActive {
		t.Errorf("got energy=%v active=%v, want 0/false", result.Energy, result.IsActive)
	}
}

func TestAudioAboveThreshold(t *testing.T) {
	t.Parallel()

	result := vad.Compute(audioPacket(31, 31))
	if result.Energy != 31 || !result.IsActive {
		t.Errorf("got energy=%v active=%v, want 31/true", result.Energy, result.IsActive)
	}
}

func TestAudioAtThresholdIsNotActive(t *testing.T) {
	t.Parallel()

	result := vad.Compute(audioPacket(30, 30))
	if result.Energy != 30 || result.IsActive {
		t.Errorf("got energy=%v active=%v, want 30/false", result.Energy, result.IsActive)
	}
}

func TestEmotionalShortPayloadIsZeroVector(t *testing.T) {
	t.Parallel()

	pkt := &wire.SensorPacket{DataType: vad.DataTypeEmotional, Payload: make([]byte, 39)}
	result := vad.Compute(pkt)
	if result.Valence != 0 || result.Arousal != 0 || result.Dominance != 0 || result.IsActive {
		t.Errorf("got %+v, want zero vector", result)
	}
}

func TestEmotionalAllZeroChannelsEqualsBias(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 40) // ten f32 LE zeros
	pkt := &wire.SensorPacket{DataType: vad.DataTypeEmotional, Payload: payload}
	result := vad.Compute(pkt)

	const (
		valenceBias   = 0.30
		arousalBias   = 0.10
		dominanceBias = 0.35
	)
	if result.Valence != valenceBias || result.Arousal != arousalBias || result.Dominance != dominanceBias {
		t.Errorf("got %+v, want bias constants", result)
	}
	if result.IsActive {
		t.Errorf("arousal bias %v is not > 0.35, IsActive should be false", arousalBias)
	}
}

func TestEmotionalAllOnesClampsToUnitRange(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 40)
	for i := 0; i < 10; i++ {
		binary.LittleEndian.PutUint32(payload[i*4:i*4+4], math.Float32bits(1.0))
	}
	pkt := &wire.SensorPacket{DataType: vad.DataTypeEmotional, Payload: payload}
	result := vad.Compute(pkt)

	for _, v := range []float32{result.Valence, result.Arousal, result.Dominance} {
		if v < 0 || v > 1 {
			t.Errorf("axis value %v out of [0,1]", v)
		}
	}
}
