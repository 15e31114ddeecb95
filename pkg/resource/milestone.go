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

package resource

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/almforge/coreforge/pkg/graph"
)

// CreateMilestone persists a new Milestone node.
func (c *Coordinator) CreateMilestone(ctx context.Context, m Milestone) (*Milestone, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := c.g.CreateNode(ctx, MilestoneNodeLabel, map[string]interface{}{
		"id":                   m.ID,
		"project_id":           m.ProjectID,
		"name":                 m.Name,
		"is_manual_constraint": m.IsManualConstraint,
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddDependency links Milestone m to Task t via a DEPENDS_ON edge,
// rejecting the edge if t already (directly or indirectly) depends on
// m — the graph's cycle-cache lives in the caller per DESIGN NOTES
// rather than as a server-side traversal.
func (c *Coordinator) AddDependency(ctx context.Context, milestoneID, taskID string) error {
	reachable, err := c.reachable(ctx, taskID, EdgeDependsOn)
	if err != nil {
		return err
	}
	if reachable[milestoneID] {
		return fmt.Errorf("adding DEPENDS_ON from %s to %s would close a cycle", milestoneID, taskID)
	}
	return c.g.CreateRelationship(ctx, milestoneID, taskID, EdgeDependsOn, nil)
}

// AddBefore links fromMilestoneID BEFORE toMilestoneID, rejecting the
// edge if toMilestoneID already (directly or indirectly) precedes
// fromMilestoneID.
func (c *Coordinator) AddBefore(ctx context.Context, fromMilestoneID, toMilestoneID string) error {
	reachable, err := c.reachable(ctx, toMilestoneID, EdgeBefore)
	if err != nil {
		return err
	}
	if reachable[fromMilestoneID] {
		return fmt.Errorf("adding BEFORE from %s to %s would close a cycle", fromMilestoneID, toMilestoneID)
	}
	return c.g.CreateRelationship(ctx, fromMilestoneID, toMilestoneID, EdgeBefore, nil)
}

// reachable performs a DFS from start following edges of the given
// type, returning the set of every node id reachable (start included).
func (c *Coordinator) reachable(ctx context.Context, start string, edgeType string) (map[string]bool, error) {
	visited := map[string]bool{start: true}
	stack := []string{start}

	for len(stack) > 0 {
		n := len(stack) - 1
		id := stack[n]
		stack = stack[:n]

		rels, err := c.g.Relationships(ctx, graph.RelationshipFilter{From: id, Type: edgeType})
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			if !visited[rel.To] {
				visited[rel.To] = true
				stack = append(stack, rel.To)
			}
		}
	}
	return visited, nil
}
