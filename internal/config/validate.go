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

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidTransport indicates that the provided transport is not one of udp, tcp or mqtt.
	ErrInvalidTransport = errors.New("invalid transport provided, must be one of udp, tcp or mqtt")
	// ErrInvalidUDPPort indicates that the provided UDP port is not valid.
	ErrInvalidUDPPort = errors.New("invalid UDP port provided")
	// ErrInvalidUDPRecvThreads indicates that the configured datagram receiver thread count is not valid.
	ErrInvalidUDPRecvThreads = errors.New("invalid number of UDP receive threads provided, must be between 1 and 32")
	// ErrInvalidTCPPort indicates that the provided TCP port is not valid.
	ErrInvalidTCPPort = errors.New("invalid TCP port provided")
	// ErrInvalidMQTTHost indicates that the provided MQTT broker host is not valid.
	ErrInvalidMQTTHost = errors.New("invalid MQTT broker host provided")
	// ErrInvalidMQTTPort indicates that the provided MQTT broker port is not valid.
	ErrInvalidMQTTPort = errors.New("invalid MQTT broker port provided")
	// ErrInvalidMQTTTopic indicates that the MQTT topic filter is empty.
	ErrInvalidMQTTTopic = errors.New("MQTT topic filter is required")
	// ErrInvalidRingCapacity indicates that the configured ring capacity is not valid.
	ErrInvalidRingCapacity = errors.New("invalid ring capacity provided, must be positive")
	// ErrInvalidProcessingThreads indicates that the processor pool thread count is not valid.
	ErrInvalidProcessingThreads = errors.New("invalid number of processing threads provided, must be between 1 and 16")
	// ErrInvalidStatsSink indicates that the configured stats sink kind is not recognized.
	ErrInvalidStatsSink = errors.New("invalid stats sink provided, must be one of none or redis")
	// ErrInvalidRedisHost indicates that the provided Redis host is not valid when the Redis sink is enabled.
	ErrInvalidRedisHost = errors.New("invalid Redis host provided")
	// ErrInvalidRedisPort indicates that the provided Redis port is not valid when the Redis sink is enabled.
	ErrInvalidRedisPort = errors.New("invalid Redis port provided")
	// ErrInvalidRecorderPath indicates that the recorder is enabled but no capture path was provided.
	ErrInvalidRecorderPath = errors.New("recorder capture path is required when the recorder is enabled")
	// ErrInvalidMetricsBindAddress indicates that the provided metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the provided metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidPProfBindAddress indicates that the provided PProf server bind address is not valid.
	ErrInvalidPProfBindAddress = errors.New("invalid PProf server bind address provided")
	// ErrInvalidPProfPort indicates that the provided PProf server port is not valid.
	ErrInvalidPProfPort = errors.New("invalid PProf server port provided")
)

const (
	minPort = 0
	maxPort = 65535

	minRecvThreads = 1
	maxRecvThreads = 32

	minProcThreads = 1
	maxProcThreads = 16
)

func validPort(port int) bool {
	return port > minPort && port <= maxPort
}

// Validate validates the UDP configuration.
func (u UDP) Validate() error {
	if !validPort(u.Port) {
		return ErrInvalidUDPPort
	}
	if u.RecvThreads < minRecvThreads || u.RecvThreads > maxRecvThreads {
		return ErrInvalidUDPRecvThreads
	}
	return nil
}

// Validate validates the TCP configuration.
func (t TCP) Validate() error {
	if !validPort(t.Port) {
		return ErrInvalidTCPPort
	}
	return nil
}

// Validate validates the MQTT configuration.
func (m MQTT) Validate() error {
	if m.Host == "" {
		return ErrInvalidMQTTHost
	}
	if !validPort(m.Port) {
		return ErrInvalidMQTTPort
	}
	if m.Topic == "" {
		return ErrInvalidMQTTTopic
	}
	return nil
}

// Validate validates the Ring configuration.
func (r Ring) Validate() error {
	if r.Capacity <= 0 {
		return ErrInvalidRingCapacity
	}
	return nil
}

// Validate validates the Processing configuration.
func (p Processing) Validate() error {
	if p.Threads < minProcThreads || p.Threads > maxProcThreads {
		return ErrInvalidProcessingThreads
	}
	return nil
}

// Validate validates the Stats and (when selected) Redis sink configuration.
func (s Stats) Validate(redis Redis) error {
	switch s.Sink {
	case StatsSinkNone:
		return nil
	case StatsSinkRedis:
		if redis.Host == "" {
			return ErrInvalidRedisHost
		}
		if !validPort(redis.Port) {
			return ErrInvalidRedisPort
		}
		return nil
	default:
		return ErrInvalidStatsSink
	}
}

// Validate validates the Recorder configuration.
func (r Recorder) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Path == "" {
		return ErrInvalidRecorderPath
	}
	return nil
}

// Validate validates the Metrics configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if !validPort(m.Port) {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate validates the PProf configuration.
func (p PProf) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if !validPort(p.Port) {
		return ErrInvalidPProfPort
	}
	return nil
}

// Validate validates the whole configuration, delegating to each
// sub-section's own Validate method.
func (c Config) Validate() error {
	if c.LogLevel != LogLevelDebug &&
		c.LogLevel != LogLevelInfo &&
		c.LogLevel != LogLevelWarn &&
		c.LogLevel != LogLevelError {
		return ErrInvalidLogLevel
	}

	if c.Transport != TransportUDP && c.Transport != TransportTCP && c.Transport != TransportMQTT {
		return ErrInvalidTransport
	}

	switch c.Transport {
	case TransportUDP:
		if err := c.UDP.Validate(); err != nil {
			return err
		}
	case TransportTCP:
		if err := c.TCP.Validate(); err != nil {
			return err
		}
	case TransportMQTT:
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}

	if err := c.Ring.Validate(); err != nil {
		return err
	}
	if err := c.Processing.Validate(); err != nil {
		return err
	}
	if err := c.Stats.Validate(c.Redis); err != nil {
		return err
	}
	if err := c.Recorder.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}

	return nil
}
