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

// Package resource implements the resource/milestone/skill matcher (C8):
// skill-match scoring with lead and department-affinity boosts,
// DEPENDS_ON/BEFORE cycle rejection for milestones, and allocation-kind
// mutual exclusion as the sole write path onto ALLOCATED_TO edges.
package resource

// Availability enumerates a Resource's current state.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityBusy        Availability = "busy"
	AvailabilityUnavailable Availability = "unavailable"
)

// NodeLabel is the graph.Node label Resource entities are stored under.
const NodeLabel = "Resource"

// DepartmentNodeLabel is the graph.Node label Department entities are
// stored under; Resource -LINKED_TO_DEPARTMENT-> Department.
const DepartmentNodeLabel = "Department"

// Edge types this package reads or writes.
const (
	EdgeAllocatedTo        = "ALLOCATED_TO"
	EdgeLinkedToDepartment = "LINKED_TO_DEPARTMENT"
	EdgeDependsOn          = "DEPENDS_ON"
	EdgeBefore             = "BEFORE"
)

// AllocationKind distinguishes what an ALLOCATED_TO edge points at — a
// Resource may hold edges of one kind only at a time.
type AllocationKind string

const (
	AllocationKindProject AllocationKind = "project"
	AllocationKindTask    AllocationKind = "task"
)

// Resource is a person or pool of capacity that can be allocated to
// projects or tasks and matched against a task's required skills.
type Resource struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Capacity     int          `json:"capacity"`
	DepartmentID string       `json:"department_id,omitempty"`
	Skills       []string     `json:"skills,omitempty"`
	Availability Availability `json:"availability"`
}

// Allocation is one ALLOCATED_TO edge's properties.
type Allocation struct {
	ResourceID           string         `json:"resource_id"`
	TargetID             string         `json:"target_id"`
	Kind                 AllocationKind `json:"kind"`
	AllocationPercentage float64        `json:"allocation_percentage"`
	Lead                 bool           `json:"lead"`
}

// Match is one scored candidate from MatchSkills.
type Match struct {
	Resource Resource `json:"resource"`
	Score    float64  `json:"score"`
	Count    int      `json:"count"`
	Lead     bool     `json:"lead"`
}

// MilestoneNodeLabel is the graph.Node label Milestone entities are
// stored under.
const MilestoneNodeLabel = "Milestone"

// Milestone is a dated marker a project tracks against, optionally
// bound to a fixed target date (manual constraint) or derived from the
// latest end time of the tasks it DEPENDS_ON.
type Milestone struct {
	ID                 string   `json:"id"`
	ProjectID          string   `json:"project_id"`
	Name               string   `json:"name"`
	Dependencies       []string `json:"dependencies,omitempty"`
	IsManualConstraint bool     `json:"is_manual_constraint"`
}
