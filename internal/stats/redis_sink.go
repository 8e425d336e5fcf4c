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

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const (
	connsPerCPU = 10
	maxIdleTime = 10 * time.Minute
)

// RedisSinkConfig configures the Redis-backed stats sink.
type RedisSinkConfig struct {
	Host         string
	Port         int
	Password     string
	OTLPEndpoint string
}

// redisSink publishes every reporter tick's Snapshot to a Redis pub/sub
// channel, mirroring the teacher's internal/pubsub Redis backend.
type redisSink struct {
	client *redis.Client
}

// NewRedisSink dials Redis and returns a Sink that publishes snapshots to
// Topic. It pings once at construction time; a failed ping is a startup
// error, per the spec's fatal-on-startup error taxonomy.
func NewRedisSink(ctx context.Context, cfg RedisSinkConfig) (Sink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:        cfg.Password,
		PoolFIFO:        true,
		PoolSize:        runtime.GOMAXPROCS(0) * connsPerCPU,
		MinIdleConns:    runtime.GOMAXPROCS(0),
		ConnMaxIdleTime: maxIdleTime,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("stats: connect to redis: %w", err)
	}

	if cfg.OTLPEndpoint != "" {
		if err := redisotel.InstrumentTracing(client); err != nil {
			return nil, fmt.Errorf("stats: trace redis: %w", err)
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			return nil, fmt.Errorf("stats: instrument redis: %w", err)
		}
	}

	return &redisSink{client: client}, nil
}

// PublishSnapshot marshals snap and publishes it to Topic.
func (s *redisSink) PublishSnapshot(snap Snapshot) error {
	buf, err := snap.MarshalBinary()
	if err != nil {
		return fmt.Errorf("stats: marshal snapshot: %w", err)
	}
	if err := s.client.Publish(context.Background(), Topic, buf).Err(); err != nil {
		return fmt.Errorf("stats: publish snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *redisSink) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("stats: close redis client: %w", err)
	}
	return nil
}
