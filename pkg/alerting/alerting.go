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

// Package alerting notifies operators of conditions the core cannot
// resolve itself. Its only caller is pkg/email, which alerts on each
// failed IMAP poll, a recovered poller panic, and an email reply that
// could not be parsed; scheduler and LLM failures raise no alert.
package alerting

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/almforge/coreforge/pkg/redact"
)

// Severity classifies an alert for channel routing and emoji selection.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one operator-facing notification.
type Alert struct {
	Severity Severity
	Title    string
	Detail   string
}

// Notifier posts Alerts somewhere an operator will see them.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// SlackNotifier posts alerts to a fixed Slack channel, sanitizing the
// detail text first so a credential embedded in an upstream error never
// reaches the channel.
type SlackNotifier struct {
	client    *slack.Client
	channelID string
	sanitizer *redact.Sanitizer
}

func NewSlackNotifier(token, channelID string) *SlackNotifier {
	return &SlackNotifier{
		client:    slack.New(token),
		channelID: channelID,
		sanitizer: redact.NewSanitizer(),
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, alert Alert) error {
	detail, _ := s.sanitizer.SanitizeWithFallback(alert.Detail)

	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slack.MsgOptionText(fmt.Sprintf("%s *%s*\n%s", emoji(alert.Severity), alert.Title, detail), false),
	)
	if err != nil {
		return fmt.Errorf("post slack alert: %w", err)
	}
	return nil
}

func emoji(s Severity) string {
	switch s {
	case SeverityCritical:
		return ":rotating_light:"
	case SeverityWarning:
		return ":warning:"
	default:
		return ":information_source:"
	}
}

// NoopNotifier discards every alert. Used when alerting is not
// configured (no Slack token) so callers don't have to nil-check a
// Notifier before using it.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Alert) error { return nil }

var (
	_ Notifier = (*SlackNotifier)(nil)
	_ Notifier = NoopNotifier{}
)
