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

package stats

import "encoding/binary"

// snapshotWireSize is seven int64 fields, fixed little-endian layout. The
// reporter only ever marshals a Snapshot off its own tick, never on the
// per-packet path, so this hand-rolled codec (mirroring the wire package's
// manual approach rather than a generated msgp encoder, since the
// toolchain here never runs `go generate`) costs nothing hot.
const snapshotWireSize = 7 * 8

// MarshalBinary renders s as a fixed little-endian byte slice.
func (s Snapshot) MarshalBinary() ([]byte, error) {
	buf := make([]byte, snapshotWireSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(s.RecvPackets))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(s.RecvBytes))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(s.Processed))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(s.Active))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(s.ParseErrors))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(s.RecvErrors))
	binary.LittleEndian.PutUint64(buf[48:56], uint64(s.Drops))
	return buf, nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (s *Snapshot) UnmarshalBinary(buf []byte) error {
	if len(buf) < snapshotWireSize {
		return errShortSnapshot
	}
	s.RecvPackets = int64(binary.LittleEndian.Uint64(buf[0:8]))
	s.RecvBytes = int64(binary.LittleEndian.Uint64(buf[8:16]))
	s.Processed = int64(binary.LittleEndian.Uint64(buf[16:24]))
	s.Active = int64(binary.LittleEndian.Uint64(buf[24:32]))
	s.ParseErrors = int64(binary.LittleEndian.Uint64(buf[32:40]))
	s.RecvErrors = int64(binary.LittleEndian.Uint64(buf[40:48]))
	s.Drops = int64(binary.LittleEndian.Uint64(buf[48:56]))
	return nil
}
