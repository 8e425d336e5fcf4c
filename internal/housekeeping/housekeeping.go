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

// Package housekeeping schedules low-frequency, read-only diagnostic jobs
// against the running pipeline. Nothing here sits on the hot path.
package housekeeping

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/ring"
	"github.com/go-co-op/gocron/v2"
)

// RegisterRingOccupancyJob schedules a once-a-minute job that logs the
// shared ring's current occupancy and capacity. The job only reads
// atomics and never mutates ring state.
func RegisterRingOccupancyJob(scheduler gocron.Scheduler, r *ring.Ring, logger *slog.Logger) error {
	_, err := scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			occ := r.Occupancy()
			capacity := r.Capacity()
			logger.Info("ring occupancy",
				"occupied", occ,
				"capacity", capacity,
				"fill_pct", fmt.Sprintf("%.1f", 100*float64(occ)/float64(capacity)),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule ring occupancy job: %w", err)
	}
	return nil
}
