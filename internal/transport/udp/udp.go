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

// Package udp is the datagram ingestion transport. It runs N independent
// SO_REUSEPORT sockets bound to the same address so the kernel load-balances
// inbound datagrams across receiver goroutines without a shared accept lock.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/USA-RedDragon/sensorhub/internal/config"
	"github.com/USA-RedDragon/sensorhub/internal/ring"
	"github.com/USA-RedDragon/sensorhub/internal/stats"
	"github.com/USA-RedDragon/sensorhub/internal/tracing"
	"github.com/USA-RedDragon/sensorhub/internal/wire"
	"go.opentelemetry.io/otel"
	"golang.org/x/sys/unix"
)

const (
	recvBufferSize = 4 * 1024 * 1024
	readDeadline   = time.Second
)

// Server is the UDP ingestion transport (spec.md §4.E).
type Server struct {
	cfg     config.UDP
	ring    *ring.Ring
	counts  *stats.Counters
	logger  *slog.Logger
	conns   []*net.UDPConn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a UDP transport bound to the given ring buffer and counters.
func New(cfg config.UDP, r *ring.Ring, counters *stats.Counters, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		ring:   r,
		counts: counters,
		logger: logger,
	}
}

func reusePortListenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
}

// Start binds cfg.RecvThreads SO_REUSEPORT sockets and spawns one receive
// loop per socket. It returns once every socket is bound.
func (s *Server) Start(ctx context.Context) error {
	ctx, span := otel.Tracer(tracing.TracerName).Start(ctx, "udp.Server.Start")
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)
	lc := reusePortListenConfig()

	for i := 0; i < s.cfg.RecvThreads; i++ {
		pc, err := lc.ListenPacket(ctx, "udp", addr)
		if err != nil {
			return fmt.Errorf("failed to bind UDP socket %d/%d on %s: %w", i+1, s.cfg.RecvThreads, addr, err)
		}
		conn, ok := pc.(*net.UDPConn)
		if !ok {
			return fmt.Errorf("unexpected packet conn type %T", pc)
		}
		if err := conn.SetReadBuffer(recvBufferSize); err != nil {
			s.logger.Warn("failed to set UDP receive buffer size", "error", err)
		}
		s.conns = append(s.conns, conn)

		s.wg.Add(1)
		go s.recvLoop(ctx, conn)
	}

	s.logger.Info("UDP transport listening", "bind", addr, "recv_threads", s.cfg.RecvThreads)
	return nil
}

func (s *Server) recvLoop(ctx context.Context, conn *net.UDPConn) {
	defer s.wg.Done()

	buf := make([]byte, wire.MaxDatagram)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			s.logger.Warn("failed to set UDP read deadline", "error", err)
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.counts.RecordRecvError()
			continue
		}

		s.counts.RecordRecv(n)

		if res := s.ring.TryPush(buf[:n]); res == ring.PushFull || res == ring.PushOversize {
			s.counts.RecordDrop()
		}
	}
}

// Stop cancels every receive loop and closes all bound sockets.
func (s *Server) Stop(_ context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	var firstErr error
	for _, conn := range s.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.wg.Wait()
	return firstErr
}
