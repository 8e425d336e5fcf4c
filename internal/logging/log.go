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

// Package logging builds slog.Logger instances tinted for a terminal and
// leveled from config.LogLevel, matching the root command's default logger
// setup but scoped per component so transport/processor/reporter logs carry
// a stable "component" attribute.
package logging

import (
	"log/slog"
	"os"

	"github.com/USA-RedDragon/sensorhub/internal/config"
	"github.com/lmittmann/tint"
)

// NewRoot builds the process-wide default logger for the given level,
// writing to stdout below warn and stderr at warn/error, matching the
// root command's setupLogger switch.
func NewRoot(level config.LogLevel) *slog.Logger {
	switch level {
	case config.LogLevelDebug:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
}

// Component returns a logger tagged with "component", so per-subsystem log
// lines (udp, tcp, mqtt, processor, recorder, metrics) can be
// filtered without each package managing its own handler.
func Component(root *slog.Logger, name string) *slog.Logger {
	return root.With("component", name)
}
