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

package sprint

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	appErrors "github.com/almforge/coreforge/internal/errors"
	"github.com/almforge/coreforge/pkg/audit"
	"github.com/almforge/coreforge/pkg/graph"
	"github.com/almforge/coreforge/pkg/lock"
	"github.com/almforge/coreforge/pkg/metrics"
	"github.com/almforge/coreforge/pkg/workitem"
)

const activeLockTTL = 5 * time.Second

var validate = validator.New()

// TaskReader is the narrow slice of the work-item store (C3) the
// coordinator needs: read access to a task's status and estimate fields.
// Defined here, on the consumer side, to keep this package testable with
// a fake rather than a full *workitem.Store.
type TaskReader interface {
	Get(ctx context.Context, id string) (*workitem.Snapshot, error)
}

// AuditRecorder is the narrow audit-writer contract this package emits
// events through.
type AuditRecorder interface {
	Record(event audit.Event)
}

// Coordinator is the sprint/backlog state machine and placement engine
// (C5). It persists Sprint and Backlog entities as their own graph nodes
// and expresses task placement purely as ASSIGNED_TO_SPRINT/IN_BACKLOG
// edges onto the task's existing workitem.NodeLabel node.
type Coordinator struct {
	g        graph.Executor
	tasks    TaskReader
	locker   lock.Locker
	auditLog AuditRecorder
}

func NewCoordinator(g graph.Executor, tasks TaskReader, locker lock.Locker, auditLog AuditRecorder) *Coordinator {
	return &Coordinator{g: g, tasks: tasks, locker: locker, auditLog: auditLog}
}

// CreateSprint validates in, rejects status=active if another active
// sprint already exists for the project, and persists the new Sprint
// node.
func (c *Coordinator) CreateSprint(ctx context.Context, in CreateInput) (*Sprint, error) {
	timer := metrics.NewTimer()
	defer timer.RecordWorkItemOperation("sprint_create")

	if err := validate.Struct(in); err != nil {
		metrics.RecordWorkItemOperationError("sprint_create", "validation")
		return nil, appErrors.NewValidationError(err.Error())
	}
	if !in.EndDate.After(in.StartDate) {
		metrics.RecordWorkItemOperationError("sprint_create", "validation")
		return nil, appErrors.NewValidationError("end_date must be after start_date")
	}

	status := in.Status
	if status == "" {
		status = StatusPlanning
	}

	s := &Sprint{
		ID:                  uuid.NewString(),
		ProjectID:           in.ProjectID,
		Name:                in.Name,
		Goal:                in.Goal,
		StartDate:           in.StartDate,
		EndDate:             in.EndDate,
		Status:              status,
		CapacityHours:       in.CapacityHours,
		CapacityStoryPoints: in.CapacityStoryPoints,
	}

	if status == StatusActive {
		release, err := c.acquireActiveLock(ctx, in.ProjectID)
		if err != nil {
			return nil, err
		}
		defer release()

		if err := c.rejectIfAnotherActive(ctx, in.ProjectID, ""); err != nil {
			metrics.RecordWorkItemOperationError("sprint_create", "conflict")
			return nil, err
		}
	}

	if _, err := c.g.CreateNode(ctx, SprintNodeLabel, toProps(s)); err != nil {
		metrics.RecordWorkItemOperationError("sprint_create", "store")
		return nil, err
	}
	c.emitAudit(s.ID, "created", "system", nil)
	return s, nil
}

// StartSprint transitions a planning sprint to active, enforcing
// at-most-one-active-per-project.
func (c *Coordinator) StartSprint(ctx context.Context, id string) (*Sprint, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusPlanning {
		return nil, appErrors.NewConflictError(fmt.Sprintf("sprint %s is %s, cannot start", id, s.Status))
	}

	release, err := c.acquireActiveLock(ctx, s.ProjectID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.rejectIfAnotherActive(ctx, s.ProjectID, id); err != nil {
		return nil, err
	}

	s.Status = StatusActive
	if _, err := c.g.UpdateNode(ctx, id, toProps(s)); err != nil {
		return nil, err
	}
	c.emitAudit(id, "started", "system", nil)
	return s, nil
}

// CancelSprint transitions a planning sprint to cancelled. No other
// source state may cancel.
func (c *Coordinator) CancelSprint(ctx context.Context, id string) (*Sprint, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusPlanning {
		return nil, appErrors.NewConflictError(fmt.Sprintf("sprint %s is %s, cannot cancel", id, s.Status))
	}
	s.Status = StatusCancelled
	if _, err := c.g.UpdateNode(ctx, id, toProps(s)); err != nil {
		return nil, err
	}
	c.emitAudit(id, "cancelled", "system", nil)
	return s, nil
}

// CompleteSprint transitions an active sprint to completed, computes and
// writes back its velocity, and returns incomplete ready tasks to the
// project's backlog.
func (c *Coordinator) CompleteSprint(ctx context.Context, id, backlogID string) (*Sprint, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusActive {
		return nil, appErrors.NewConflictError(fmt.Sprintf("sprint %s is %s, cannot complete", id, s.Status))
	}

	v, err := c.Velocity(ctx, id)
	if err != nil {
		return nil, err
	}

	rels, err := c.g.Relationships(ctx, graph.RelationshipFilter{To: id, Type: EdgeAssignedToSprint})
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		task, err := c.tasks.Get(ctx, rel.From)
		if err != nil {
			continue
		}
		if task.Status == "ready" {
			if err := c.RemoveTask(ctx, id, rel.From, backlogID, true); err != nil {
				return nil, err
			}
		}
	}

	s.Status = StatusCompleted
	s.ActualVelocityHours = v.Hours
	s.ActualVelocityStoryPoints = v.StoryPoints
	if _, err := c.g.UpdateNode(ctx, id, toProps(s)); err != nil {
		return nil, err
	}
	c.emitAudit(id, "completed", "system", map[string]interface{}{
		"actual_velocity_hours":        v.Hours,
		"actual_velocity_story_points": v.StoryPoints,
	})
	return s, nil
}

// DeleteSprint returns every assigned task to the backlog (when eligible)
// and detach-deletes the sprint node.
func (c *Coordinator) DeleteSprint(ctx context.Context, id, backlogID string) error {
	rels, err := c.g.Relationships(ctx, graph.RelationshipFilter{To: id, Type: EdgeAssignedToSprint})
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if err := c.RemoveTask(ctx, id, rel.From, backlogID, true); err != nil {
			return err
		}
	}
	if err := c.g.DeleteNode(ctx, id); err != nil {
		return err
	}
	c.emitAudit(id, "deleted", "system", nil)
	return nil
}

// AssignTask links taskID to sprintID, atomically removing any existing
// IN_BACKLOG edge first (mutual exclusion), after checking the sprint's
// capacity admits the task's estimate.
func (c *Coordinator) AssignTask(ctx context.Context, sprintID, taskID string) error {
	s, err := c.Get(ctx, sprintID)
	if err != nil {
		return err
	}
	task, err := c.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}

	if err := c.checkCapacity(ctx, s, task); err != nil {
		return err
	}

	if err := c.g.RemoveRelationships(ctx, graph.RelationshipFilter{From: taskID, Type: EdgeInBacklog}); err != nil {
		return err
	}
	if err := c.g.CreateRelationship(ctx, taskID, sprintID, EdgeAssignedToSprint, nil); err != nil {
		return err
	}
	c.emitAudit(sprintID, "task_assigned", "system", map[string]interface{}{"task_id": taskID})
	return nil
}

// RemoveTask unlinks taskID from sprintID. When returnToBacklog is true
// and the task's status is still "ready", the task is re-linked to
// backlogID.
func (c *Coordinator) RemoveTask(ctx context.Context, sprintID, taskID, backlogID string, returnToBacklog bool) error {
	if err := c.g.RemoveRelationships(ctx, graph.RelationshipFilter{From: taskID, To: sprintID, Type: EdgeAssignedToSprint}); err != nil {
		return err
	}
	if !returnToBacklog {
		c.emitAudit(sprintID, "task_removed", "system", map[string]interface{}{"task_id": taskID})
		return nil
	}
	return c.moveToBacklog(ctx, taskID, sprintID, backlogID)
}

func (c *Coordinator) moveToBacklog(ctx context.Context, taskID, sprintID, backlogID string) error {
	task, err := c.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != "ready" {
		return nil
	}
	if err := c.g.CreateRelationship(ctx, taskID, backlogID, EdgeInBacklog, nil); err != nil {
		return err
	}
	c.emitAudit(sprintID, "task_returned_to_backlog", "system", map[string]interface{}{"task_id": taskID})
	return nil
}

// Get fetches a Sprint by id.
func (c *Coordinator) Get(ctx context.Context, id string) (*Sprint, error) {
	n, err := c.g.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromProps(n.Props), nil
}

func (c *Coordinator) checkCapacity(ctx context.Context, s *Sprint, task *workitem.Snapshot) error {
	if s.CapacityHours == nil && s.CapacityStoryPoints == nil {
		return nil
	}

	rels, err := c.g.Relationships(ctx, graph.RelationshipFilter{To: s.ID, Type: EdgeAssignedToSprint})
	if err != nil {
		return err
	}

	var usedHours float64
	var usedPoints int
	for _, rel := range rels {
		t, err := c.tasks.Get(ctx, rel.From)
		if err != nil {
			continue
		}
		if t.EstimatedHours != nil {
			usedHours += *t.EstimatedHours
		}
		if t.StoryPoints != nil {
			usedPoints += *t.StoryPoints
		}
	}

	if s.CapacityHours != nil {
		var add float64
		if task.EstimatedHours != nil {
			add = *task.EstimatedHours
		}
		if usedHours+add > *s.CapacityHours {
			return appErrors.NewConflictError(fmt.Sprintf("assigning task exceeds sprint capacity_hours (%.2f + %.2f > %.2f)", usedHours, add, *s.CapacityHours))
		}
	}
	if s.CapacityStoryPoints != nil {
		var add int
		if task.StoryPoints != nil {
			add = *task.StoryPoints
		}
		if usedPoints+add > *s.CapacityStoryPoints {
			return appErrors.NewConflictError(fmt.Sprintf("assigning task exceeds sprint capacity_story_points (%d + %d > %d)", usedPoints, add, *s.CapacityStoryPoints))
		}
	}
	return nil
}

func (c *Coordinator) rejectIfAnotherActive(ctx context.Context, projectID, excludeID string) error {
	nodes, err := c.g.FindNodes(ctx, SprintNodeLabel, func(n *graph.Node) bool {
		if n.ID == excludeID {
			return false
		}
		return n.Props["project_id"] == projectID && n.Props["status"] == string(StatusActive)
	})
	if err != nil {
		return err
	}
	if len(nodes) > 0 {
		return appErrors.NewConflictError(fmt.Sprintf("project %s already has an active sprint", projectID))
	}
	return nil
}

func (c *Coordinator) acquireActiveLock(ctx context.Context, projectID string) (release func(), err error) {
	key := "sprint-active:" + projectID
	token, ok, err := c.locker.TryLock(ctx, key, activeLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewConflictError(fmt.Sprintf("project %s has a concurrent sprint-activation in progress", projectID))
	}
	return func() { _ = c.locker.Unlock(ctx, key, token) }, nil
}

func (c *Coordinator) emitAudit(sprintID, action, actorID string, details map[string]interface{}) {
	if c.auditLog == nil {
		return
	}
	c.auditLog.Record(audit.Event{
		ID:         uuid.NewString(),
		EntityType: "sprint",
		EntityID:   sprintID,
		Action:     action,
		ActorID:    actorID,
		Timestamp:  time.Now().UTC(),
		Details:    details,
	})
}

func toProps(s *Sprint) map[string]interface{} {
	props := map[string]interface{}{
		"id":                           s.ID,
		"project_id":                   s.ProjectID,
		"name":                         s.Name,
		"goal":                         s.Goal,
		"start_date":                   s.StartDate,
		"end_date":                     s.EndDate,
		"status":                       string(s.Status),
		"actual_velocity_hours":        s.ActualVelocityHours,
		"actual_velocity_story_points": s.ActualVelocityStoryPoints,
	}
	if s.CapacityHours != nil {
		props["capacity_hours"] = *s.CapacityHours
	}
	if s.CapacityStoryPoints != nil {
		props["capacity_story_points"] = *s.CapacityStoryPoints
	}
	return props
}

func fromProps(props map[string]interface{}) *Sprint {
	s := &Sprint{
		ID:        stringProp(props, "id"),
		ProjectID: stringProp(props, "project_id"),
		Name:      stringProp(props, "name"),
		Goal:      stringProp(props, "goal"),
		Status:    Status(stringProp(props, "status")),
	}
	if t, ok := props["start_date"].(time.Time); ok {
		s.StartDate = t
	}
	if t, ok := props["end_date"].(time.Time); ok {
		s.EndDate = t
	}
	if v, ok := props["actual_velocity_hours"].(float64); ok {
		s.ActualVelocityHours = v
	}
	if v, ok := props["actual_velocity_story_points"].(int); ok {
		s.ActualVelocityStoryPoints = v
	}
	if v, ok := props["capacity_hours"].(float64); ok {
		s.CapacityHours = &v
	}
	if v, ok := props["capacity_story_points"].(int); ok {
		s.CapacityStoryPoints = &v
	}
	return s
}

func stringProp(props map[string]interface{}, key string) string {
	v, _ := props[key].(string)
	return v
}
