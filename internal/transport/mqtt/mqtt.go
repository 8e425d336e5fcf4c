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

// Package mqtt is the broker-subscribed ingestion transport (spec.md §4.G).
// Each message payload is a header+payload frame identical to the
// UDP datagram body; the topic itself carries no addressing information the
// pipeline relies on.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/config"
	"github.com/USA-RedDragon/sensorhub/internal/ring"
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/USA-RedDragon/sensorhub/internal/tracing"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.opentelemetry.io/otel"
)

const (
	connectTimeout = 10 * time.Second
	qosAtMostOnce  = 0
)

// Server is the MQTT ingestion transport.
type Server struct {
	cfg    config.MQTT
	ring   *ring.Ring
	counts *stats.Counters
	logger *slog.Logger

	client paho.Client
}

// New creates an MQTT transport bound to the given ring buffer and counters.
func New(cfg config.MQTT, r *ring.Ring, counters *stats.Counters, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		ring:   r,
		counts: counters,
		logger: logger,
	}
}

// Start connects to the broker and subscribes to cfg.Topic.
func (s *Server) Start(ctx context.Context) error {
	_, span := otel.Tracer(tracing.TracerName).Start(ctx, "mqtt.Server.Start")
	defer span.End()

	broker := fmt.Sprintf("tcp://%s:%d", s.cfg.Host, s.cfg.Port)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(s.cfg.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost)

	s.client = paho.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, err)
	}

	s.logger.Info("MQTT transport connected", "broker", broker, "topic", s.cfg.Topic)
	return nil
}

func (s *Server) onConnect(client paho.Client) {
	token := client.Subscribe(s.cfg.Topic, qosAtMostOnce, s.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error("failed to subscribe to MQTT topic", "topic", s.cfg.Topic, "error", err)
	}
}

func (s *Server) onConnectionLost(_ paho.Client, err error) {
	s.logger.Warn("MQTT connection lost", "error", err)
}

func (s *Server) onMessage(_ paho.Client, msg paho.Message) {
	payload := msg.Payload()
	s.counts.RecordRecv(len(payload))

	if res := s.ring.TryPush(payload); res == ring.PushFull || res == ring.PushOversize {
		s.counts.RecordDrop()
	}
}

// Stop disconnects from the broker.
func (s *Server) Stop(_ context.Context) error {
	if s.client == nil {
		return nil
	}
	const disconnectQuiesceMs = 250
	s.client.Disconnect(disconnectQuiesceMs)
	return nil
}
