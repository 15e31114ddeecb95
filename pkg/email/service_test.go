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

package email_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/almforge/coreforge/pkg/alerting"
	"github.com/almforge/coreforge/pkg/email"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []email.OutboundMessage
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg email.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePoller struct {
	mu    sync.Mutex
	queue []email.RawMessage
	seen  []string
	err   error
}

func (f *fakePoller) FetchUnseen(context.Context) ([]email.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := f.queue
	f.queue = nil
	return out, nil
}

func (f *fakePoller) MarkSeen(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, id)
	return nil
}

type fakeItems struct {
	mu      sync.Mutex
	items   map[string]*email.WorkItem
	updates map[string]map[string]interface{}
}

func newFakeItems() *fakeItems {
	return &fakeItems{items: map[string]*email.WorkItem{}, updates: map[string]map[string]interface{}{}}
}

func (f *fakeItems) Get(_ context.Context, id string) (*email.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, notFoundErr{id}
	}
	return item, nil
}

func (f *fakeItems) Update(_ context.Context, id string, updates map[string]interface{}, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = updates
	if u, ok := updates["status"]; ok {
		f.items[id].Extra = mergeExtra(f.items[id].Extra, map[string]interface{}{"_status": u})
	}
	return nil
}

func mergeExtra(base, add map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range add {
		out[k] = v
	}
	return out
}

type notFoundErr struct{ id string }

func (e notFoundErr) Error() string { return "work item not found: " + e.id }

type fakeExtractor struct {
	response string
	err      error
}

func (f *fakeExtractor) Extract(context.Context, string) (string, error) {
	return f.response, f.err
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		transport *fakeTransport
		poller    *fakePoller
		items     *fakeItems
		threads   *email.ThreadStore
		svc       *email.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		transport = &fakeTransport{}
		poller = &fakePoller{}
		items = newFakeItems()
		items.items["550e8400-e29b-41d4-a716-446655440000"] = &email.WorkItem{ID: "550e8400-e29b-41d4-a716-446655440000", Title: "Auth", Extra: map[string]interface{}{}}
		threads = email.NewThreadStore()
		svc = email.NewService(email.Config{From: "bot@example.com", ReplyTo: "bot@example.com"},
			transport, poller, items, threads, nil, alerting.NoopNotifier{}, nil)
	})

	Describe("SendWorkInstruction", func() {
		It("rejects when no recipient is syntactically valid", func() {
			_, err := svc.SendWorkInstruction(ctx, items.items["550e8400-e29b-41d4-a716-446655440000"], []string{"not-an-address"})
			Expect(err).To(HaveOccurred())
		})

		It("sends to valid recipients and records the thread entry", func() {
			msg, err := svc.SendWorkInstruction(ctx, items.items["550e8400-e29b-41d4-a716-446655440000"], []string{"bad", "good@example.com"})
			Expect(err).NotTo(HaveOccurred())
			Expect(transport.sent).To(HaveLen(1))
			Expect(transport.sent[0].To).To(Equal([]string{"good@example.com"}))
			Expect(msg.Subject).To(ContainSubstring("[WorkItem-550e8400-e29b-41d4-a716-446655440000]"))

			thread := threads.Thread("550e8400-e29b-41d4-a716-446655440000")
			Expect(thread).To(HaveLen(1))
			Expect(thread[0].Direction).To(Equal(email.DirectionOutbound))
		})
	})

	Describe("ProcessOne — structured parse (S8)", func() {
		It("parses STATUS/COMMENT/TIME and appends to the thread", func() {
			raw := email.RawMessage{
				MessageID: "m-1",
				Subject:   "Re: [WorkItem-550e8400-e29b-41d4-a716-446655440000] X",
				Body:      []byte("STATUS: done | COMMENT: ok | TIME: 2.5"),
			}
			Expect(svc.ProcessOne(ctx, raw)).To(Succeed())

			thread := threads.Thread("550e8400-e29b-41d4-a716-446655440000")
			Expect(thread).To(HaveLen(1))
			Expect(thread[0].ParseMethod).To(Equal(email.ParseMethodStructured))

			Expect(items.updates["550e8400-e29b-41d4-a716-446655440000"]["status"]).To(Equal("completed"))
		})

		It("is case-insensitive on both the subject token and STATUS:, and tolerates newline separators", func() {
			raw := email.RawMessage{
				MessageID: "m-2",
				Subject:   "[WorkItem-550e8400-e29b-41d4-a716-446655440000] X",
				Body:      []byte("status: working\ncomment: in progress\ntime: 1"),
			}
			Expect(svc.ProcessOne(ctx, raw)).To(Succeed())
			Expect(items.updates["550e8400-e29b-41d4-a716-446655440000"]["status"]).To(Equal("active"))
		})
	})

	Describe("ProcessOne — missing subject token", func() {
		It("sends a parse-error alert and does not touch any work item", func() {
			raw := email.RawMessage{MessageID: "m-3", Subject: "no token here", Body: []byte("STATUS: done")}
			Expect(svc.ProcessOne(ctx, raw)).To(Succeed())
			Expect(items.updates).To(BeEmpty())
		})
	})

	Describe("ProcessOne — LLM fallback", func() {
		It("falls through to the extractor when structured parse finds nothing", func() {
			extractor := &fakeExtractor{response: `{"status":"active","comment":"blocked on infra","time_spent":3}`}
			svc = email.NewService(email.Config{From: "bot@example.com", LLMEnabled: true},
				transport, poller, items, threads, extractor, alerting.NoopNotifier{}, nil)

			raw := email.RawMessage{
				MessageID: "m-4",
				Subject:   "[WorkItem-550e8400-e29b-41d4-a716-446655440000] X",
				Body:      []byte("hey, still working on this, should be a few more hours"),
			}
			Expect(svc.ProcessOne(ctx, raw)).To(Succeed())
			Expect(items.updates["550e8400-e29b-41d4-a716-446655440000"]["status"]).To(Equal("active"))

			thread := threads.Thread("550e8400-e29b-41d4-a716-446655440000")
			Expect(thread[len(thread)-1].ParseMethod).To(Equal(email.ParseMethodLLM))
		})

		It("sends a parse-error notification when both structured and LLM parsing fail", func() {
			extractor := &fakeExtractor{response: `not json`}
			svc = email.NewService(email.Config{From: "bot@example.com", LLMEnabled: true},
				transport, poller, items, threads, extractor, alerting.NoopNotifier{}, nil)

			raw := email.RawMessage{MessageID: "m-5", Subject: "[WorkItem-550e8400-e29b-41d4-a716-446655440000] X", Body: []byte("no recognizable content")}
			Expect(svc.ProcessOne(ctx, raw)).To(Succeed())

			thread := threads.Thread("550e8400-e29b-41d4-a716-446655440000")
			Expect(thread[len(thread)-1].ParseMethod).To(Equal(email.ParseMethodError))
		})
	})

	Describe("StartPolling / StopPolling", func() {
		It("rejects a second concurrent activation", func() {
			Expect(svc.StartPolling(ctx)).To(Succeed())
			defer svc.StopPolling()

			err := svc.StartPolling(ctx)
			Expect(err).To(HaveOccurred())
		})
	})
})
