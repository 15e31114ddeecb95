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

package signature

import (
	"context"
	"sort"
	"sync"
	"time"

	appErrors "github.com/almforge/coreforge/internal/errors"
)

// MemoryRepository is an in-process Repository used by tests; almserver
// and almctl always use PostgresRepository.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: map[string]*Record{}}
}

func (m *MemoryRepository) Insert(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, appErrors.NewNotFoundError("signature")
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryRepository) ForWorkItem(_ context.Context, workItemID string, includeInvalid bool) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Record
	for _, rec := range m.records {
		if rec.WorkItemID != workItemID {
			continue
		}
		if !includeInvalid && !rec.IsValid {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignedAt.After(out[j].SignedAt) })
	return out, nil
}

func (m *MemoryRepository) InvalidateAll(_ context.Context, workItemID, reason string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	var invalidated []string
	for _, rec := range m.records {
		if rec.WorkItemID != workItemID || !rec.IsValid {
			continue
		}
		rec.IsValid = false
		rec.InvalidatedAt = &now
		rec.InvalidationReason = reason
		invalidated = append(invalidated, rec.ID)
	}
	return invalidated, nil
}

var _ Repository = (*MemoryRepository)(nil)
