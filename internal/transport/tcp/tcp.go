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

// Package tcp is the length-prefixed stream ingestion transport (spec.md §4.F).
// Each connection is a sequence of 4-byte little-endian length prefixes
// followed by a header+payload frame identical to the UDP datagram body.
package tcp

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/config"
	"github.com/USA-RedDragon/sensorhub/internal/ring"
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/USA-RedDragon/sensorhub/internal/tracing"
	"github.com/USA-RedDragon/sensorhub/internal/wire"
	"github.com/puzpuzpuz/xsync/v4"
	"go.opentelemetry.io/otel"
)

const (
	acceptBacklog  = 128
	frameReadLimit = 30 * time.Second
)

// Server is the TCP ingestion transport.
type Server struct {
	cfg    config.TCP
	ring   *ring.Ring
	counts *stats.Counters
	logger *slog.Logger

	listener net.Listener
	conns    *xsync.Map[net.Conn, struct{}]
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a TCP transport bound to the given ring buffer and counters.
func New(cfg config.TCP, r *ring.Ring, counters *stats.Counters, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		ring:   r,
		counts: counters,
		logger: logger,
		conns:  xsync.NewMap[net.Conn, struct{}](),
	}
}

// Start binds the listener and spawns the accept loop.
func (s *Server) Start(ctx context.Context) error {
	ctx, span := otel.Tracer(tracing.TracerName).Start(ctx, "tcp.Server.Start")
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind TCP listener on %s: %w", addr, err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	s.logger.Info("TCP transport listening", "bind", addr)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("failed to accept TCP connection", "error", err)
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			if err := tc.SetNoDelay(true); err != nil {
				s.logger.Warn("failed to set TCP_NODELAY", "error", err)
			}
		}

		s.conns.Store(conn, struct{}{})
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

// handleConn drives the per-connection framing state machine: read the
// 4-byte length prefix, validate it, read the body, enqueue, repeat.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.conns.Delete(conn)
		_ = conn.Close()
	}()

	r := bufio.NewReaderSize(conn, wire.MaxDatagram)
	var lenPrefix [4]byte
	buf := make([]byte, wire.MaxDatagram)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(frameReadLimit)); err != nil {
			return
		}

		if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.counts.RecordRecvError()
			}
			return
		}

		totalLen := binary.LittleEndian.Uint32(lenPrefix[:])
		if err := wire.ValidateFrameLen(totalLen); err != nil {
			s.counts.RecordParseError()
			return
		}

		body := buf[:totalLen]
		if _, err := io.ReadFull(r, body); err != nil {
			s.counts.RecordRecvError()
			return
		}

		s.counts.RecordRecv(len(body) + len(lenPrefix))

		if res := s.ring.TryPush(body); res == ring.PushFull || res == ring.PushOversize {
			s.counts.RecordDrop()
		}
	}
}

// ConnectionCount reports the number of currently tracked connections, for
// diagnostic logging only.
func (s *Server) ConnectionCount() int {
	return s.conns.Size()
}

// Stop cancels the accept loop, closes the listener and every tracked
// connection, and waits for their goroutines to exit.
func (s *Server) Stop(_ context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	var firstErr error
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})
	s.wg.Wait()
	return firstErr
}
