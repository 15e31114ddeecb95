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
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// IMAPConfig configures the standard-library IMAP poller. No IMAP
// client library appears anywhere in the retrieved corpus (see
// DESIGN.md); this is a minimal IMAP4rev1 client over net.Conn,
// sufficient for the fixed per-tick sequence this package needs
// (LOGIN, SELECT, UID SEARCH UNSEEN, UID FETCH, UID STORE +FLAGS).
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	UseTLS   bool
	Timeout  time.Duration
}

// IMAPPoller implements MailPoller against a single IMAP mailbox.
type IMAPPoller struct {
	cfg IMAPConfig
}

func NewIMAPPoller(cfg IMAPConfig) *IMAPPoller {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPPoller{cfg: cfg}
}

type imapSession struct {
	conn net.Conn
	r    *bufio.Reader
	tag  int
}

func (p *IMAPPoller) dial() (*imapSession, error) {
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	var conn net.Conn
	var err error
	if p.cfg.UseTLS {
		conn, err = tls.DialWithDialer(&net.Dialer{Timeout: p.cfg.Timeout}, "tcp", addr, &tls.Config{ServerName: p.cfg.Host})
	} else {
		conn, err = net.DialTimeout("tcp", addr, p.cfg.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("dial imap: %w", err)
	}

	s := &imapSession{conn: conn, r: bufio.NewReader(conn)}
	if _, err := s.readLine(); err != nil { // server greeting
		conn.Close()
		return nil, fmt.Errorf("read imap greeting: %w", err)
	}
	if err := s.command("LOGIN %s %s", imapQuote(p.cfg.Username), imapQuote(p.cfg.Password)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if err := s.command("SELECT %s", imapQuote(p.cfg.Mailbox)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("imap select %s: %w", p.cfg.Mailbox, err)
	}
	return s, nil
}

func (s *imapSession) close() {
	s.command("LOGOUT")
	s.conn.Close()
}

func (s *imapSession) nextTag() string {
	s.tag++
	return fmt.Sprintf("a%03d", s.tag)
}

func (s *imapSession) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// command sends one tagged command and reads lines until the matching
// tagged completion response, discarding the untagged response lines;
// commandLines returns them.
func (s *imapSession) command(format string, args ...interface{}) error {
	_, err := s.commandLines(format, args...)
	return err
}

func (s *imapSession) commandLines(format string, args ...interface{}) ([]string, error) {
	tag := s.nextTag()
	cmd := fmt.Sprintf(format, args...)
	if _, err := fmt.Fprintf(s.conn, "%s %s\r\n", tag, cmd); err != nil {
		return nil, err
	}

	var untagged []string
	for {
		line, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, tag+" ") {
			rest := strings.TrimPrefix(line, tag+" ")
			if strings.HasPrefix(rest, "OK") {
				return untagged, nil
			}
			return untagged, fmt.Errorf("imap command %q failed: %s", cmd, rest)
		}
		untagged = append(untagged, line)
	}
}

func imapQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// FetchUnseen searches the mailbox for UNSEEN messages and fetches each
// one's envelope subject, sender, and body.
func (p *IMAPPoller) FetchUnseen(ctx context.Context) ([]RawMessage, error) {
	s, err := p.dial()
	if err != nil {
		return nil, err
	}
	defer s.close()

	lines, err := s.commandLines("UID SEARCH UNSEEN")
	if err != nil {
		return nil, fmt.Errorf("imap search unseen: %w", err)
	}

	var uids []string
	for _, line := range lines {
		if !strings.HasPrefix(line, "* SEARCH") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "* SEARCH"))
		uids = append(uids, fields...)
	}

	var out []RawMessage
	for _, uid := range uids {
		msg, err := p.fetchOne(s, uid)
		if err != nil {
			continue // a parse/fetch failure on one message must not block others
		}
		out = append(out, msg)
	}
	return out, nil
}

func (p *IMAPPoller) fetchOne(s *imapSession, uid string) (RawMessage, error) {
	lines, err := s.commandLines("UID FETCH %s (RFC822)", uid)
	if err != nil {
		return RawMessage{}, err
	}

	raw := strings.Join(lines, "\r\n")
	idx := strings.Index(raw, "\r\n\r\n")
	if idx < 0 {
		idx = strings.Index(raw, "\n\n")
	}
	if idx < 0 {
		return RawMessage{}, fmt.Errorf("imap fetch %s: no header/body boundary", uid)
	}

	m, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		return RawMessage{}, fmt.Errorf("parse rfc822 message %s: %w", uid, err)
	}

	subject, _ := (&mime.WordDecoder{}).DecodeHeader(m.Header.Get("Subject"))
	mediaType, params, _ := mime.ParseMediaType(m.Header.Get("Content-Type"))

	body := make([]byte, 0, 1024)
	buf := make([]byte, 1024)
	for {
		n, rerr := m.Body.Read(buf)
		body = append(body, buf[:n]...)
		if rerr != nil {
			break
		}
	}

	if strings.EqualFold(m.Header.Get("Content-Transfer-Encoding"), "quoted-printable") {
		decoded, derr := decodeQuotedPrintable(body)
		if derr == nil {
			body = decoded
		}
	}

	return RawMessage{
		MessageID: strings.Trim(m.Header.Get("Message-Id"), "<>"),
		Subject:   subject,
		From:      m.Header.Get("From"),
		Body:      body,
		MediaType: mediaType,
		Charset:   params["charset"],
	}, nil
}

func decodeQuotedPrintable(body []byte) ([]byte, error) {
	r := quotedprintable.NewReader(strings.NewReader(string(body)))
	out := make([]byte, 0, len(body))
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			break
		}
	}
	return out, nil
}

func (p *IMAPPoller) MarkSeen(ctx context.Context, messageID string) error {
	s, err := p.dial()
	if err != nil {
		return err
	}
	defer s.close()

	lines, err := s.commandLines(`UID SEARCH HEADER Message-ID "%s"`, messageID)
	if err != nil {
		return err
	}
	var uid string
	for _, line := range lines {
		if strings.HasPrefix(line, "* SEARCH") {
			fields := strings.Fields(strings.TrimPrefix(line, "* SEARCH"))
			if len(fields) > 0 {
				uid = fields[0]
			}
		}
	}
	if uid == "" {
		return fmt.Errorf("mark seen: message %s not found", messageID)
	}
	if _, err := strconv.Atoi(uid); err != nil {
		return fmt.Errorf("mark seen: unexpected uid %q", uid)
	}
	return s.command("UID STORE %s +FLAGS (\\Seen)", uid)
}

var _ MailPoller = (*IMAPPoller)(nil)
