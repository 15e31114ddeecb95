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
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"
)

// OutboundMessage is a composed message ready to hand to a MailTransport.
type OutboundMessage struct {
	From      string
	To        []string
	ReplyTo   string
	Subject   string
	Body      string
	MessageID string
}

// MailTransport sends a composed outbound message. Implementations are
// expected to use STARTTLS where the server supports it.
type MailTransport interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// MailPoller fetches unseen inbound messages from a single mailbox and
// marks each processed message Seen.
type MailPoller interface {
	FetchUnseen(ctx context.Context) ([]RawMessage, error)
	MarkSeen(ctx context.Context, messageID string) error
}

// SMTPConfig configures the standard-library SMTP transport. No MIME or
// IMAP client library is available anywhere in the retrieved corpus
// (see DESIGN.md), so the transport boundary is the one place this
// package reaches for net/smtp directly rather than a third-party SDK.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// SMTPTransport sends outbound work instructions over SMTP, optionally
// with STARTTLS, using PLAIN auth.
type SMTPTransport struct {
	cfg SMTPConfig
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (t *SMTPTransport) Send(ctx context.Context, msg OutboundMessage) error {
	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)
	auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)

	raw, err := encodeMIME(msg)
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		if t.cfg.UseTLS {
			done <- sendWithSTARTTLS(addr, t.cfg.Host, auth, msg, raw)
			return
		}
		done <- smtp.SendMail(addr, auth, msg.From, msg.To, raw)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func sendWithSTARTTLS(addr, host string, auth smtp.Auth, msg OutboundMessage, raw []byte) error {
	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(msg.From); err != nil {
		return err
	}
	for _, to := range msg.To {
		if err := c.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func encodeMIME(msg OutboundMessage) ([]byte, error) {
	var buf bytes.Buffer
	header := textproto.MIMEHeader{}
	header.Set("From", msg.From)
	header.Set("To", strings.Join(msg.To, ", "))
	if msg.ReplyTo != "" {
		header.Set("Reply-To", msg.ReplyTo)
	}
	header.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header.Set("Message-Id", fmt.Sprintf("<%s>", msg.MessageID))
	header.Set("Date", time.Now().UTC().Format(time.RFC1123Z))
	header.Set("MIME-Version", "1.0")
	header.Set("Content-Type", `text/plain; charset="utf-8"`)
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	for k, vs := range header {
		for _, v := range vs {
			fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
		}
	}
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ MailTransport = (*SMTPTransport)(nil)
