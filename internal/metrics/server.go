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

package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/config"
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 3 * time.Second
	wsBufferSize      = 1024
)

// Server exposes a Prometheus /metrics endpoint and a /stats/ws websocket
// endpoint that broadcasts every stats.Snapshot as it's published.
type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	hub        *wsHub
}

// NewServer builds the metrics HTTP server. It registers its own Prometheus
// registry so repeated test construction doesn't collide with the global
// default registry.
func NewServer(cfg config.Metrics, logger *slog.Logger) *Server {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hub := newWSHub(logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats/ws", hub.serveHTTP)

	return &Server{
		metrics: m,
		hub:     hub,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Start binds the listener and serves in a background goroutine, returning
// once the socket is bound so callers can detect bind failures synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind metrics server on %s: %w", s.httpServer.Addr, err)
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server exited", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx) //nolint:wrapcheck
}

// Sink returns a stats.Sink that both feeds the Prometheus counters and
// broadcasts the snapshot to connected /stats/ws clients.
func (s *Server) Sink() stats.Sink {
	return &serverSink{server: s}
}

type serverSink struct {
	server *Server
}

func (s *serverSink) PublishSnapshot(snap stats.Snapshot) error {
	s.server.metrics.Observe(snap)
	s.server.hub.broadcast(snap)
	return nil
}

func (s *serverSink) Close() error {
	return nil
}

// wsHub tracks connected /stats/ws clients and fans out snapshots to all
// of them: each client is upgraded, then read from only to detect
// disconnects, while broadcast writes to every tracked connection.
type wsHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newWSHub(logger *slog.Logger) *wsHub {
	return &wsHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsBufferSize,
			WriteBufferSize: wsBufferSize,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) serveHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade stats websocket", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	// The client has nothing to send us; block on reads solely to detect
	// disconnects so we can drop the connection out of the broadcast set.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *wsHub) broadcast(snap stats.Snapshot) {
	buf, err := json.Marshal(snap)
	if err != nil {
		h.logger.Warn("failed to marshal snapshot for websocket broadcast", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
			h.logger.Warn("failed to write to stats websocket client", "error", err)
		}
	}
}
