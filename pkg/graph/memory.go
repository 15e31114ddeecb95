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

package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	appErrors "github.com/almforge/coreforge/internal/errors"
	"go.uber.org/zap"
)

type edgeKey struct {
	from, to, relType string
}

// MemoryExecutor is an in-process Executor backed by a mutex-guarded map.
// It is the only graph store in this repository: almserver and almctl
// always use it, and GRAPH_DB_URL is not consulted when choosing it.
type MemoryExecutor struct {
	mu            sync.RWMutex
	nodes         map[string]*Node
	relationships map[edgeKey]*Relationship
	logger        *zap.Logger
}

func NewMemoryExecutor(logger *zap.Logger) *MemoryExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryExecutor{
		nodes:         make(map[string]*Node),
		relationships: make(map[edgeKey]*Relationship),
		logger:        logger,
	}
}

func (m *MemoryExecutor) CreateNode(_ context.Context, label string, props map[string]interface{}) (*Node, error) {
	id, ok := props["id"].(string)
	if !ok || id == "" {
		return nil, appErrors.NewValidationError("node props must carry a non-empty string \"id\"")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.nodes[id]; exists {
		return nil, appErrors.NewConflictError(fmt.Sprintf("node with id %s already exists", id))
	}

	node := &Node{ID: id, Label: label, Props: cloneProps(props)}
	m.nodes[id] = node
	return cloneNode(node), nil
}

func (m *MemoryExecutor) GetNode(_ context.Context, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[id]
	if !ok {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	return cloneNode(node), nil
}

// UpdateNode merges props into the existing node; it never touches
// relationships.
func (m *MemoryExecutor) UpdateNode(_ context.Context, id string, props map[string]interface{}) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[id]
	if !ok {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	for k, v := range props {
		node.Props[k] = v
	}
	return cloneNode(node), nil
}

// DeleteNode removes the node and every relationship touching it
// (detach-delete).
func (m *MemoryExecutor) DeleteNode(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[id]; !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("node %s", id))
	}
	delete(m.nodes, id)

	for k, rel := range m.relationships {
		if rel.From == id || rel.To == id {
			delete(m.relationships, k)
		}
	}
	return nil
}

// CreateRelationship is idempotent on (from, to, type): a second call with
// the same triple merges the properties of the existing edge rather than
// creating a duplicate.
func (m *MemoryExecutor) CreateRelationship(_ context.Context, from, to, relType string, props map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[from]; !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("node %s", from))
	}
	if _, ok := m.nodes[to]; !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("node %s", to))
	}

	key := edgeKey{from, to, relType}
	if existing, ok := m.relationships[key]; ok {
		for k, v := range props {
			existing.Props[k] = v
		}
		return nil
	}
	m.relationships[key] = &Relationship{From: from, To: to, Type: relType, Props: cloneProps(props)}
	return nil
}

func (m *MemoryExecutor) RemoveRelationships(_ context.Context, filter RelationshipFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.relationships {
		if matchesFilter(k, filter) {
			delete(m.relationships, k)
		}
	}
	return nil
}

func (m *MemoryExecutor) Relationships(_ context.Context, filter RelationshipFilter) ([]*Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Relationship
	for k, rel := range m.relationships {
		if matchesFilter(k, filter) {
			out = append(out, cloneRelationship(rel))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// ExecuteQuery supports the structured-equality subset of the "cypher-like"
// contract: Pattern names a node label, and Params is matched field-by-
// field against each node's props. Free-text/range predicates go through
// FindNodes instead.
func (m *MemoryExecutor) ExecuteQuery(_ context.Context, q Query) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []Row
	for _, node := range m.nodes {
		if node.Label != q.Pattern {
			continue
		}
		if !matchesParams(node.Props, q.Params) {
			continue
		}
		rows = append(rows, Row(cloneProps(node.Props)))
	}
	return rows, nil
}

func (m *MemoryExecutor) FindNodes(_ context.Context, label string, predicate func(*Node) bool) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Node
	for _, node := range m.nodes {
		if node.Label != label {
			continue
		}
		if predicate == nil || predicate(node) {
			out = append(out, cloneNode(node))
		}
	}
	return out, nil
}

func matchesFilter(k edgeKey, filter RelationshipFilter) bool {
	if filter.From != "" && k.from != filter.From {
		return false
	}
	if filter.To != "" && k.to != filter.To {
		return false
	}
	if filter.Type != "" && k.relType != filter.Type {
		return false
	}
	return true
}

func matchesParams(props, params map[string]interface{}) bool {
	for k, want := range params {
		got, ok := props[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func cloneProps(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func cloneNode(n *Node) *Node {
	return &Node{ID: n.ID, Label: n.Label, Props: cloneProps(n.Props)}
}

func cloneRelationship(r *Relationship) *Relationship {
	return &Relationship{From: r.From, To: r.To, Type: r.Type, Props: cloneProps(r.Props)}
}

var _ Executor = (*MemoryExecutor)(nil)
