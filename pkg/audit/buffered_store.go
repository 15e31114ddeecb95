/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BufferedStoreConfig controls flush cadence and the bound on in-flight
// events.
type BufferedStoreConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueCapacity int
}

func DefaultBufferedStoreConfig() BufferedStoreConfig {
	return BufferedStoreConfig{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		QueueCapacity: 1000,
	}
}

// BufferedStore queues events in memory and flushes them to an underlying
// Store on a timer or once a batch fills, whichever comes first. Record
// never blocks the caller: a full queue drops the event and logs a
// warning rather than applying backpressure to business logic.
type BufferedStore struct {
	underlying Store
	cfg        BufferedStoreConfig
	logger     *zap.Logger

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	dropped uint64
}

func NewBufferedStore(underlying Store, cfg BufferedStoreConfig, logger *zap.Logger) *BufferedStore {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1000
	}

	s := &BufferedStore{
		underlying: underlying,
		cfg:        cfg,
		logger:     logger,
		queue:      make(chan Event, cfg.QueueCapacity),
		done:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Record enqueues event for asynchronous persistence. It never blocks: if
// the queue is full the event is dropped and counted.
func (s *BufferedStore) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case s.queue <- event:
	default:
		s.mu.Lock()
		s.dropped++
		n := s.dropped
		s.mu.Unlock()
		s.logger.Warn("audit queue full, dropping event",
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
			zap.Uint64("total_dropped", n),
		)
	}
}

// Dropped returns the number of events dropped so far because the queue
// was full.
func (s *BufferedStore) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *BufferedStore) run() {
	defer s.wg.Done()

	batch := make([]Event, 0, s.cfg.BatchSize)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		toFlush := make([]Event, len(batch))
		copy(toFlush, batch)
		batch = batch[:0]

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.underlying.RecordBatch(ctx, toFlush); err != nil {
			s.logger.Error("audit flush failed, events lost",
				zap.Int("count", len(toFlush)),
				zap.Error(err),
			)
		}
	}

	for {
		select {
		case event, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			// drain whatever is already queued before exiting
			for {
				select {
				case event := <-s.queue:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting flush timer ticks, drains the queue, and waits for
// the final flush to finish.
func (s *BufferedStore) Close() {
	close(s.done)
	s.wg.Wait()
}
