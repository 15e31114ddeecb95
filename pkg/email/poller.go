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

package email

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/almforge/coreforge/pkg/alerting"
)

// StartPolling begins the background poll loop if one is not already
// running, returning an error if it is. Each tick fetches unseen
// messages, processes each with ProcessOne, and marks it Seen; a panic
// anywhere in a tick is recovered and logged rather than taking down
// the loop, per spec.md §9's "panic of the task does not take down the
// server."
func (s *Service) StartPolling(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.polling, 0, 1) {
		return fmt.Errorf("email poller already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		defer close(s.done)
		defer atomic.StoreInt32(&s.polling, 0)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.safeTick(runCtx)
			}
		}
	}()
	return nil
}

// StopPolling cancels the running loop and blocks until it has
// returned. A no-op if no loop is running.
func (s *Service) StopPolling() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Service) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("email poll tick panicked, restarting next tick", zap.Any("panic", r))
			s.alerts.Notify(ctx, alerting.Alert{
				Severity: alerting.SeverityCritical,
				Title:    "Email poller panic recovered",
				Detail:   fmt.Sprintf("%v", r),
			})
		}
	}()

	msgs, err := s.poller.FetchUnseen(ctx)
	if err != nil {
		s.logger.Warn("imap poll failed, retrying next tick", zap.Error(err))
		s.alerts.Notify(ctx, alerting.Alert{
			Severity: alerting.SeverityWarning,
			Title:    "IMAP poll connection error",
			Detail:   err.Error(),
		})
		return
	}

	for _, msg := range msgs {
		if err := s.ProcessOne(ctx, msg); err != nil {
			s.logger.Error("failed to process inbound email", zap.String("message_id", msg.MessageID), zap.Error(err))
			continue
		}
		if err := s.poller.MarkSeen(ctx, msg.MessageID); err != nil {
			s.logger.Warn("failed to mark message seen", zap.String("message_id", msg.MessageID), zap.Error(err))
		}
	}
}
