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

	"github.com/google/uuid"

	"github.com/almforge/coreforge/pkg/graph"
)

// CreateBacklog creates a project's backlog. A project typically has
// exactly one, created once alongside the project itself.
func (c *Coordinator) CreateBacklog(ctx context.Context, projectID, name string) (*Backlog, error) {
	b := &Backlog{ID: uuid.NewString(), ProjectID: projectID, Name: name}
	_, err := c.g.CreateNode(ctx, BacklogNodeLabel, map[string]interface{}{
		"id":         b.ID,
		"project_id": b.ProjectID,
		"name":       b.Name,
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBacklog fetches a Backlog by id.
func (c *Coordinator) GetBacklog(ctx context.Context, id string) (*Backlog, error) {
	n, err := c.g.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Backlog{
		ID:        stringProp(n.Props, "id"),
		ProjectID: stringProp(n.Props, "project_id"),
		Name:      stringProp(n.Props, "name"),
	}, nil
}

// AddToBacklog links taskID directly to backlogID, removing any existing
// sprint assignment first (mutual exclusion).
func (c *Coordinator) AddToBacklog(ctx context.Context, backlogID, taskID string) error {
	if err := c.g.RemoveRelationships(ctx, graph.RelationshipFilter{From: taskID, Type: EdgeAssignedToSprint}); err != nil {
		return err
	}
	return c.g.CreateRelationship(ctx, taskID, backlogID, EdgeInBacklog, nil)
}
