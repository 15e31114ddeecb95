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

// Package graph defines the property-graph executor contract every other
// core service mutates through: node/edge CRUD and a parameterized query
// primitive. The rest of the core never builds a query from unvalidated
// user input — every value flows through Params.
package graph

import "context"

// Node is a labelled property bag. Props always carries the node's "id".
type Node struct {
	ID    string
	Label string
	Props map[string]interface{}
}

// Relationship is a directed, typed edge between two node IDs.
type Relationship struct {
	From  string
	To    string
	Type  string
	Props map[string]interface{}
}

// Query is a parameterized graph query. Pattern is executor-specific
// (Cypher-like for a real graph database, a node label for the
// in-memory executor); Params is always bound, never interpolated.
type Query struct {
	Pattern string
	Params  map[string]interface{}
}

// Row is one result row: a property map, same shape regardless of whether
// it originated from a node or a relationship projection.
type Row map[string]interface{}

// RelationshipFilter selects relationships to remove. Any non-empty field
// narrows the match; all set fields must match for a relationship to be
// removed.
type RelationshipFilter struct {
	From string
	To   string
	Type string
}

// Executor is the minimal capability set the rest of the core consumes.
// CreateRelationship is idempotent on (from, to, type): calling it twice
// merges rather than duplicating the edge.
type Executor interface {
	CreateNode(ctx context.Context, label string, props map[string]interface{}) (*Node, error)
	GetNode(ctx context.Context, id string) (*Node, error)
	UpdateNode(ctx context.Context, id string, props map[string]interface{}) (*Node, error)
	DeleteNode(ctx context.Context, id string) error

	CreateRelationship(ctx context.Context, from, to, relType string, props map[string]interface{}) error
	RemoveRelationships(ctx context.Context, filter RelationshipFilter) error
	Relationships(ctx context.Context, filter RelationshipFilter) ([]*Relationship, error)

	ExecuteQuery(ctx context.Context, q Query) ([]Row, error)

	// FindNodes returns every node of the given label for which predicate
	// returns true. This is the engine-agnostic equivalent of a free-text or
	// range predicate in ExecuteQuery's "cypher-like" pattern: in-process
	// callers get a typed Go closure instead of building a query string, but
	// the contract is the same — parameterized filtering, never ad-hoc
	// string interpolation of caller-supplied values.
	FindNodes(ctx context.Context, label string, predicate func(*Node) bool) ([]*Node, error)
}
