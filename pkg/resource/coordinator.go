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
	"sort"

	"github.com/google/uuid"

	appErrors "github.com/almforge/coreforge/internal/errors"
	"github.com/almforge/coreforge/pkg/graph"
)

// Coordinator is C8: resource CRUD, skill-match scoring, milestone
// dependency-cycle rejection, and the sole write path for ALLOCATED_TO
// edges.
type Coordinator struct {
	g graph.Executor
}

func NewCoordinator(g graph.Executor) *Coordinator {
	return &Coordinator{g: g}
}

// CreateResource persists a new Resource node and, if set, a
// LINKED_TO_DEPARTMENT edge.
func (c *Coordinator) CreateResource(ctx context.Context, r Resource) (*Resource, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Availability == "" {
		r.Availability = AvailabilityAvailable
	}
	_, err := c.g.CreateNode(ctx, NodeLabel, resourceProps(r))
	if err != nil {
		return nil, err
	}
	if r.DepartmentID != "" {
		if err := c.g.CreateRelationship(ctx, r.ID, r.DepartmentID, EdgeLinkedToDepartment, nil); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// GetResource fetches a Resource by id.
func (c *Coordinator) GetResource(ctx context.Context, id string) (*Resource, error) {
	n, err := c.g.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	return resourceFromProps(n.Props), nil
}

// Allocate creates an ALLOCATED_TO edge from resourceID to targetID of
// the given kind. A resource may hold ALLOCATED_TO edges to only one
// kind of target at a time; allocating to the other kind is rejected.
func (c *Coordinator) Allocate(ctx context.Context, resourceID, targetID string, kind AllocationKind, percentage float64, lead bool) error {
	existing, err := c.g.Relationships(ctx, graph.RelationshipFilter{From: resourceID, Type: EdgeAllocatedTo})
	if err != nil {
		return err
	}
	for _, rel := range existing {
		if existingKind, _ := rel.Props["kind"].(string); existingKind != "" && existingKind != string(kind) {
			return appErrors.NewConflictError(fmt.Sprintf(
				"resource %s already holds %s allocations, cannot also allocate to a %s", resourceID, existingKind, kind))
		}
	}

	return c.g.CreateRelationship(ctx, resourceID, targetID, EdgeAllocatedTo, map[string]interface{}{
		"kind":                  string(kind),
		"allocation_percentage": percentage,
		"lead":                  lead,
	})
}

// MatchSkills scores every Resource against a task's required skills,
// per SPEC_FULL.md §4.8: count = |S ∩ R|; score = count/|S|, +0.10 if
// the resource's department is among linkedDepartments, +0.05 if the
// resource holds any lead allocation. Resources with count=0 are
// excluded when skillsNeeded is non-empty; when it is empty every
// resource is returned, still lead-first.
func (c *Coordinator) MatchSkills(ctx context.Context, skillsNeeded, linkedDepartments []string) ([]Match, error) {
	nodes, err := c.g.FindNodes(ctx, NodeLabel, func(*graph.Node) bool { return true })
	if err != nil {
		return nil, err
	}

	needed := map[string]bool{}
	for _, s := range skillsNeeded {
		needed[s] = true
	}
	linkedDept := map[string]bool{}
	for _, d := range linkedDepartments {
		linkedDept[d] = true
	}

	var matches []Match
	for _, n := range nodes {
		r := resourceFromProps(n.Props)
		count := intersectionCount(needed, r.Skills)
		if len(needed) > 0 && count == 0 {
			continue
		}

		lead, err := c.hasLeadAllocation(ctx, r.ID)
		if err != nil {
			return nil, err
		}

		var score float64
		if len(needed) > 0 {
			score = float64(count) / float64(len(needed))
		}
		if linkedDept[r.DepartmentID] {
			score += 0.10
		}
		if lead {
			score += 0.05
		}

		matches = append(matches, Match{Resource: *r, Score: score, Count: count, Lead: lead})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Lead != b.Lead {
			return a.Lead
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Resource.ID < b.Resource.ID
	})
	return matches, nil
}

func (c *Coordinator) hasLeadAllocation(ctx context.Context, resourceID string) (bool, error) {
	rels, err := c.g.Relationships(ctx, graph.RelationshipFilter{From: resourceID, Type: EdgeAllocatedTo})
	if err != nil {
		return false, err
	}
	for _, rel := range rels {
		if lead, _ := rel.Props["lead"].(bool); lead {
			return true, nil
		}
	}
	return false, nil
}

func intersectionCount(needed map[string]bool, have []string) int {
	count := 0
	for _, s := range have {
		if needed[s] {
			count++
		}
	}
	return count
}

func resourceProps(r Resource) map[string]interface{} {
	return map[string]interface{}{
		"id":            r.ID,
		"name":          r.Name,
		"type":          r.Type,
		"capacity":      r.Capacity,
		"department_id": r.DepartmentID,
		"skills":        r.Skills,
		"availability":  string(r.Availability),
	}
}

func resourceFromProps(props map[string]interface{}) *Resource {
	r := &Resource{
		ID:           stringProp(props, "id"),
		Name:         stringProp(props, "name"),
		Type:         stringProp(props, "type"),
		DepartmentID: stringProp(props, "department_id"),
		Availability: Availability(stringProp(props, "availability")),
	}
	if v, ok := props["capacity"].(int); ok {
		r.Capacity = v
	}
	if skills, ok := props["skills"].([]string); ok {
		r.Skills = skills
	}
	return r
}

func stringProp(props map[string]interface{}, key string) string {
	v, _ := props[key].(string)
	return v
}
