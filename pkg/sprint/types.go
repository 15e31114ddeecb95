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

// Package sprint implements the sprint/backlog coordinator (C5): the
// planning/active/completed/cancelled state machine, at-most-one-active
// enforcement per project, mutual-exclusion task placement between a
// sprint and its project's backlog, capacity admission, and velocity and
// burndown computation.
package sprint

import "time"

// Status enumerates the Sprint lifecycle states. Transitions only ever
// move forward: planning -> active -> completed, or planning -> cancelled.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// SprintNodeLabel and BacklogNodeLabel are the graph.Node labels the
// coordinator stores its own entities under, distinct from
// workitem.NodeLabel.
const (
	SprintNodeLabel  = "Sprint"
	BacklogNodeLabel = "Backlog"
)

// Edge types linking a task (a workitem.NodeLabel node of type "task") to
// exactly one of a Sprint or a Backlog node. A task is never linked to
// both at once.
const (
	EdgeAssignedToSprint = "ASSIGNED_TO_SPRINT"
	EdgeInBacklog        = "IN_BACKLOG"
)

// Sprint is one planning period for a project.
type Sprint struct {
	ID                        string     `json:"id"`
	ProjectID                 string     `json:"project_id"`
	Name                      string     `json:"name"`
	Goal                      string     `json:"goal,omitempty"`
	StartDate                 time.Time  `json:"start_date"`
	EndDate                   time.Time  `json:"end_date"`
	Status                    Status     `json:"status"`
	CapacityHours             *float64   `json:"capacity_hours,omitempty"`
	CapacityStoryPoints       *int       `json:"capacity_story_points,omitempty"`
	ActualVelocityHours       float64    `json:"actual_velocity_hours"`
	ActualVelocityStoryPoints int       `json:"actual_velocity_story_points"`
}

// Backlog is a project's holding area for unscheduled tasks.
type Backlog struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// CreateInput is the validated payload for CreateSprint.
type CreateInput struct {
	ProjectID           string `validate:"required"`
	Name                string `validate:"required,min=3,max=200"`
	Goal                string
	StartDate           time.Time `validate:"required"`
	EndDate             time.Time `validate:"required"`
	Status              Status
	CapacityHours       *float64 `validate:"omitempty,min=0"`
	CapacityStoryPoints *int     `validate:"omitempty,min=0"`
}

// Velocity is a (hours, story points) pair, the unit C5 reports
// completed-work totals in.
type Velocity struct {
	Hours       float64 `json:"hours"`
	StoryPoints int     `json:"story_points"`
}

// BurndownPoint is one day's worth of planned-vs-actual remaining work.
type BurndownPoint struct {
	Date                  time.Time `json:"date"`
	IdealRemainingHours   float64   `json:"ideal_remaining_hours"`
	ActualRemainingHours  float64   `json:"actual_remaining_hours"`
	IdealRemainingPoints  float64   `json:"ideal_remaining_points"`
	ActualRemainingPoints float64   `json:"actual_remaining_points"`
}
