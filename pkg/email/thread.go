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
	"fmt"
	"sort"
	"sync"

	"github.com/almforge/coreforge/pkg/metrics"
)

// ThreadStore keeps every work item's correspondence ordered by
// ReceivedAt ascending. Insertion is O(n) per message (a linear
// re-sort), which is acceptable at the scale one work item's thread
// reaches; duplicate message_ids are tolerated rather than rejected.
type ThreadStore struct {
	mu      sync.Mutex
	threads map[string][]Message
}

func NewThreadStore() *ThreadStore {
	return &ThreadStore{threads: map[string][]Message{}}
}

func threadKey(workItemID string) string {
	return fmt.Sprintf("thread-%s", workItemID)
}

// Append adds msg to its work item's thread and re-sorts chronologically.
func (s *ThreadStore) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := threadKey(msg.WorkItemID)
	s.threads[key] = append(s.threads[key], msg)
	sort.SliceStable(s.threads[key], func(i, j int) bool {
		return s.threads[key][i].ReceivedAt.Before(s.threads[key][j].ReceivedAt)
	})

	metrics.SetEmailThreadsAwaitingReply(float64(s.countAwaitingReply()))
}

// Thread returns the ordered correspondence for workItemID.
func (s *ThreadStore) Thread(workItemID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.threads[threadKey(workItemID)]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// countAwaitingReply counts threads whose most recent message is
// outbound — i.e. the operator is still waiting on a reply. Caller
// must hold s.mu.
func (s *ThreadStore) countAwaitingReply() int {
	n := 0
	for _, msgs := range s.threads {
		if len(msgs) > 0 && msgs[len(msgs)-1].Direction == DirectionOutbound {
			n++
		}
	}
	return n
}
