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

// Package workitem implements the versioned work-item store: typed CRUD
// over requirements, tasks, test specs, test runs, risks, and documents,
// with an immutable NEXT_VERSION chain per identity and signature
// invalidation on every mutation.
package workitem

import "time"

// Type enumerates the work-item kinds this core manages.
type Type string

const (
	TypeRequirement Type = "requirement"
	TypeTask        Type = "task"
	TypeTestSpec    Type = "test_spec"
	TypeTestRun     Type = "test_run"
	TypeRisk        Type = "risk"
	TypeDocument    Type = "document"
)

// NodeLabel is the graph.Node label every work-item snapshot is stored
// under, regardless of Type.
const NodeLabel = "WorkItem"

var validTypes = map[Type]bool{
	TypeRequirement: true,
	TypeTask:        true,
	TypeTestSpec:    true,
	TypeTestRun:     true,
	TypeRisk:        true,
	TypeDocument:    true,
}

// baseStatuses are accepted for every type; callers may also pass a
// type-specific status (e.g. "in_review" for a test_spec) — C3 does not
// enforce a closed status vocabulary per type, only the common lifecycle
// states named in SPEC_FULL.md §3.
var baseStatuses = map[string]bool{
	"draft":     true,
	"active":    true,
	"completed": true,
	"archived":  true,
	"rejected":  true,
	"ready":     true,
	"in_review": true,
	"blocked":   true,
}

// Snapshot is one immutable version of a work item.
type Snapshot struct {
	ID                 string                 `json:"id"`
	Type               Type                   `json:"type"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description,omitempty"`
	Status             string                 `json:"status"`
	Priority           *int                   `json:"priority,omitempty"`
	AssignedTo         string                 `json:"assigned_to,omitempty"`
	Version            string                 `json:"version"`
	CreatedBy          string                 `json:"created_by"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	UpdatedBy          string                 `json:"updated_by,omitempty"`
	ChangeDescription  string                 `json:"change_description,omitempty"`
	AcceptanceCriteria string                 `json:"acceptance_criteria,omitempty"`
	EstimatedHours     *float64               `json:"estimated_hours,omitempty"`
	StoryPoints        *int                   `json:"story_points,omitempty"`
	SkillsNeeded       []string               `json:"skills_needed,omitempty"`
	Severity           *int                   `json:"severity,omitempty"`
	Occurrence         *int                   `json:"occurrence,omitempty"`
	Detection          *int                   `json:"detection,omitempty"`
	RPN                *int                   `json:"rpn,omitempty"`
	Extra              map[string]interface{} `json:"extra,omitempty"`
}

// CreateInput is the validated payload for Create.
type CreateInput struct {
	Type               Type                   `validate:"required,oneof=requirement task test_spec test_run risk document"`
	Title              string                 `validate:"required,min=5,max=500"`
	Description        string
	Status             string
	Priority           *int `validate:"omitempty,min=1,max=5"`
	AssignedTo         string
	CreatedBy          string `validate:"required"`
	AcceptanceCriteria string
	EstimatedHours     *float64 `validate:"omitempty,min=0"`
	StoryPoints        *int     `validate:"omitempty,min=0"`
	SkillsNeeded       []string
	Severity           *int `validate:"omitempty,min=1,max=10"`
	Occurrence         *int `validate:"omitempty,min=1,max=10"`
	Detection          *int `validate:"omitempty,min=1,max=10"`
	Extra              map[string]interface{}
}

// UpdateInput is a sparse set of field updates plus the mandatory audit
// justification.
type UpdateInput struct {
	Updates           map[string]interface{}
	ChangeDescription string
	UpdatedBy         string
}

// CompareResult is the output of Compare.
type CompareResult struct {
	ChangedFields   map[string]FieldDiff  `json:"changed_fields"`
	UnchangedFields []string              `json:"unchanged_fields"`
	AddedFields     []string              `json:"added_fields"`
	RemovedFields   []string              `json:"removed_fields"`
}

type FieldDiff struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// SearchFilter narrows Search results.
type SearchFilter struct {
	Text                string
	Type                Type
	Status              string
	Priority            *int
	AssignedTo          string
	CreatedBy           string
	Source              string
	HasAcceptanceCriteria *bool
	Limit               int
	Offset              int
}
