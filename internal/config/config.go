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

// Package config is the single struct-tag-driven configuration surface
// for sensorhub, loaded via github.com/USA-RedDragon/configulator (env,
// flag and file sources merged by field tag).
package config

// Config is the root configuration object. Every field carries `name`,
// `description` and `default` struct tags for configulator's flag/env
// binding; see the vendored library docs for the full tag grammar.
type Config struct {
	Transport Transport `name:"transport" description:"Which transport the ingestion core listens on" default:"udp"`
	LogLevel  LogLevel  `name:"log-level" description:"Minimum level the structured logger emits" default:"info"`

	UDP  UDP  `name:"udp"`
	TCP  TCP  `name:"tcp"`
	MQTT MQTT `name:"mqtt"`

	Ring       Ring       `name:"ring"`
	Processing Processing `name:"processing"`
	Stats      Stats      `name:"stats"`
	Recorder   Recorder   `name:"recorder"`
	Redis      Redis      `name:"redis"`

	Metrics Metrics `name:"metrics"`
	PProf   PProf   `name:"pprof"`
	Tracing Tracing `name:"tracing"`
}

// UDP configures the datagram receiver (spec.md §4.E).
type UDP struct {
	Bind        string `name:"bind" description:"Address the datagram receivers bind to" default:"0.0.0.0"`
	Port        int    `name:"port" description:"Port the datagram receivers bind to" default:"9000"`
	RecvThreads int    `name:"recv-threads" description:"Number of port-sharing datagram sockets" default:"4"`
}

// TCP configures the stream receiver (spec.md §4.F).
type TCP struct {
	Bind string `name:"bind" description:"Address the stream listener binds to" default:"0.0.0.0"`
	Port int    `name:"port" description:"Port the stream listener binds to" default:"9000"`
}

// MQTT configures the broker subscriber (spec.md §4.G).
type MQTT struct {
	Host     string `name:"host" description:"MQTT broker hostname" default:"127.0.0.1"`
	Port     int    `name:"port" description:"MQTT broker port" default:"1883"`
	Topic    string `name:"topic" description:"Topic filter subscribed to, e.g. vad/sensors/+" default:"vad/sensors/+"`
	ClientID string `name:"client-id" description:"Fixed MQTT client identifier" default:"sensorhub"`
}

// Ring configures the shared MPMC ring (spec.md §4.D).
type Ring struct {
	Capacity int `name:"cap" description:"Ring capacity, rounded up to the next power of two" default:"262144"`
}

// Processing configures the processor pool (spec.md §4.H).
type Processing struct {
	Threads int `name:"threads" description:"Number of processor pool worker goroutines" default:"2"`
}

// Stats configures the periodic stats reporter and its optional sink.
type Stats struct {
	IntervalSeconds int           `name:"interval" description:"Stats reporting interval in seconds; 0 disables reporting" default:"5"`
	Sink            StatsSinkKind `name:"sink" description:"Where reporter snapshots are published in addition to the log line" default:"none"`
}

// Recorder configures the optional off-hot-path diagnostic packet tap.
type Recorder struct {
	Enabled     bool   `name:"enabled" description:"Enable the xz-compressed packet recorder" default:"false"`
	Path        string `name:"path" description:"Capture file path" default:"sensorhub.capture.xz"`
	SampleEvery int    `name:"sample-every" description:"Record every Nth processed packet" default:"100"`
}

// Redis configures the Redis-backed stats sink.
type Redis struct {
	Host     string `name:"host" description:"Redis host" default:"localhost"`
	Port     int    `name:"port" description:"Redis port" default:"6379"`
	Password string `name:"password" description:"Redis password"`
}

// Metrics configures the Prometheus + websocket metrics HTTP server.
type Metrics struct {
	Enabled bool   `name:"enabled" description:"Enable the metrics HTTP server" default:"true"`
	Bind    string `name:"bind" description:"Metrics server bind address" default:"0.0.0.0"`
	Port    int    `name:"port" description:"Metrics server port" default:"9100"`
}

// PProf configures the debug pprof HTTP server.
type PProf struct {
	Enabled bool   `name:"enabled" description:"Enable the pprof HTTP server" default:"false"`
	Bind    string `name:"bind" description:"PProf server bind address" default:"127.0.0.1"`
	Port    int    `name:"port" description:"PProf server port" default:"6060"`
}

// Tracing configures OpenTelemetry export.
type Tracing struct {
	OTLPEndpoint string `name:"otlp-endpoint" description:"OTLP gRPC collector endpoint; empty disables tracing"`
}
