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
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/almforge/coreforge/internal/errors"
	"github.com/almforge/coreforge/pkg/alerting"
)

// WorkItem is the narrow slice of workitem.Snapshot this package reads.
type WorkItem struct {
	ID    string
	Title string
	Extra map[string]interface{}
}

// WorkItemUpdater is the narrow collaborator C7 needs from C3: look up
// a work item to compose an outbound instruction, and apply a parsed
// inbound reply back onto it.
type WorkItemUpdater interface {
	Get(ctx context.Context, id string) (*WorkItem, error)
	Update(ctx context.Context, id string, updates map[string]interface{}, changeDescription, updatedBy string) error
}

// Extractor is satisfied by pkg/llmclient.Client; kept narrow so this
// package never imports the provider SDK directly.
type Extractor interface {
	Extract(ctx context.Context, prompt string) (string, error)
}

// Config carries the values spec.md §6 names as environment/config keys.
type Config struct {
	From         string
	ReplyTo      string
	PollInterval time.Duration
	LLMEnabled   bool
}

// Service implements outbound compose/send and the inbound parse
// pipeline described in spec.md §4.7.
type Service struct {
	cfg       Config
	transport MailTransport
	poller    MailPoller
	items     WorkItemUpdater
	threads   *ThreadStore
	llm       Extractor
	alerts    alerting.Notifier
	logger    *zap.Logger

	polling int32
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewService(cfg Config, transport MailTransport, poller MailPoller, items WorkItemUpdater, threads *ThreadStore, llm Extractor, alerts alerting.Notifier, logger *zap.Logger) *Service {
	if alerts == nil {
		alerts = alerting.NoopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		transport: transport,
		poller:    poller,
		items:     items,
		threads:   threads,
		llm:       llm,
		alerts:    alerts,
		logger:    logger,
	}
}

// SendWorkInstruction validates recipients, composes the structured
// reply template, sends it, and records the message in the work item's
// thread.
func (s *Service) SendWorkInstruction(ctx context.Context, item *WorkItem, recipients []string) (*Message, error) {
	valid := validRecipients(recipients)
	if len(valid) == 0 {
		return nil, appErrors.NewValidationError("no valid recipient addresses")
	}

	body := fmt.Sprintf(
		"Work item: %s\n\nReply with:\nSTATUS: draft|active|in_progress|completed|archived\nCOMMENT: <your update>\nTIME: <hours spent>\n",
		item.Title,
	)

	msgID := uuid.NewString()
	out := OutboundMessage{
		From:      s.cfg.From,
		To:        valid,
		ReplyTo:   s.cfg.ReplyTo,
		Subject:   fmt.Sprintf("[WorkItem-%s] %s", item.ID, item.Title),
		Body:      body,
		MessageID: msgID,
	}

	if err := s.transport.Send(ctx, out); err != nil {
		return nil, fmt.Errorf("send work instruction: %w", err)
	}

	msg := Message{
		MessageID:  msgID,
		WorkItemID: item.ID,
		Direction:  DirectionOutbound,
		From:       out.From,
		To:         out.To,
		Subject:    out.Subject,
		Body:       body,
		ReceivedAt: time.Now().UTC(),
	}
	s.threads.Append(msg)
	return &msg, nil
}

func validRecipients(recipients []string) []string {
	var valid []string
	for _, r := range recipients {
		if _, err := mail.ParseAddress(r); err == nil {
			valid = append(valid, r)
		}
	}
	return valid
}

// ProcessOne runs the six-step parse pipeline (spec.md §4.7) against one
// raw inbound message, applying the parsed instruction to the work item
// and appending the message to its thread on success.
func (s *Service) ProcessOne(ctx context.Context, raw RawMessage) error {
	workItemID := extractWorkItemID(raw.Subject)
	if workItemID == "" {
		s.notifyParseError(ctx, "", "no [WorkItem-<id>] token found in subject", raw.Subject)
		return nil
	}

	body := decodeBody(raw)

	instr := parseStructured(body)
	parseMethod := ParseMethodStructured

	if instr.isEmpty() && s.cfg.LLMEnabled && s.llm != nil {
		llmInstr, err := s.extractWithLLM(ctx, body)
		if err != nil {
			s.logger.Warn("llm extraction failed, falling through to parse error", zap.Error(err))
		} else if !llmInstr.isEmpty() {
			instr = llmInstr
			parseMethod = ParseMethodLLM
		}
	}

	if instr.isEmpty() {
		s.notifyParseError(ctx, workItemID, "reply body did not match the structured grammar and no LLM extraction succeeded", raw.Subject)
		return nil
	}

	if err := s.applyInstruction(ctx, workItemID, instr); err != nil {
		return fmt.Errorf("apply parsed instruction to %s: %w", workItemID, err)
	}

	s.threads.Append(Message{
		MessageID:   raw.MessageID,
		WorkItemID:  workItemID,
		Direction:   DirectionInbound,
		From:        raw.From,
		Subject:     raw.Subject,
		Body:        body,
		ReceivedAt:  time.Now().UTC(),
		ParseMethod: parseMethod,
	})
	return nil
}

func (s *Service) applyInstruction(ctx context.Context, workItemID string, instr Instruction) error {
	item, err := s.items.Get(ctx, workItemID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if instr.Status != "" {
		updates["status"] = instr.Status
	}

	extra := map[string]interface{}{}
	for k, v := range item.Extra {
		extra[k] = v
	}
	if instr.Comment != "" {
		extra["last_email_comment"] = instr.Comment
	}
	if instr.TimeSpent != nil {
		extra["last_time_spent"] = *instr.TimeSpent
	}
	if instr.NextSteps != "" {
		extra["next_steps"] = instr.NextSteps
	}
	if len(extra) > 0 {
		updates["extra"] = extra
	}
	if len(updates) == 0 {
		return nil
	}

	return s.items.Update(ctx, workItemID, updates, "email reply processed", "email-poller")
}

func (s *Service) extractWithLLM(ctx context.Context, body string) (Instruction, error) {
	prompt := fmt.Sprintf(
		"Extract a JSON object with keys status, comment, time_spent, next_steps from this email reply. "+
			"Use empty string/null for fields not present. Reply with only the JSON object.\n\n%s", body)

	raw, err := s.llm.Extract(ctx, prompt)
	if err != nil {
		return Instruction{}, err
	}
	return parseLLMResponse(raw), nil
}

func (s *Service) notifyParseError(ctx context.Context, workItemID, reason, subject string) {
	if workItemID != "" {
		s.threads.Append(Message{
			MessageID:   uuid.NewString(),
			WorkItemID:  workItemID,
			Direction:   DirectionInbound,
			Subject:     subject,
			Body:        fmt.Sprintf("Parse error: %s", reason),
			ReceivedAt:  time.Now().UTC(),
			ParseMethod: ParseMethodError,
		})
	}
	s.alerts.Notify(ctx, alerting.Alert{
		Severity: alerting.SeverityWarning,
		Title:    "Email reply parse failure",
		Detail:   fmt.Sprintf("subject=%q workitem=%q reason=%s", subject, workItemID, reason),
	})
}

func decodeBody(raw RawMessage) string {
	if raw.Charset != "" && !strings.EqualFold(raw.Charset, "utf-8") {
		// A declared non-UTF-8 charset is not converted, here or by
		// IMAPPoller: the body is treated as UTF-8 with invalid
		// sequences replaced.
		return strings.ToValidUTF8(string(raw.Body), "�")
	}
	return strings.ToValidUTF8(string(raw.Body), "�")
}
