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

package scheduler

import "fmt"

// synthesizeConflicts explains why a solve could not be made feasible:
// a dependency target that does not exist, a required resource that does
// not exist, a circular dependency (DFS with an explicit recursion
// stack), resource over-allocation (total demand*duration exceeding
// capacity*horizon), and an impossible deadline (available hours less
// than the estimate).
func synthesizeConflicts(in Input) []Conflict {
	var conflicts []Conflict

	tasksByID := make(map[string]Task, len(in.Tasks))
	for _, t := range in.Tasks {
		tasksByID[t.ID] = t
	}
	resourcesByID := make(map[string]Resource, len(in.Resources))
	for _, r := range in.Resources {
		resourcesByID[r.ID] = r
	}

	for _, t := range in.Tasks {
		for _, dep := range t.Dependencies {
			if _, ok := tasksByID[dep.PredecessorID]; !ok {
				conflicts = append(conflicts, Conflict{
					Kind: "missing_dependency_target", TaskID: t.ID,
					Message: fmt.Sprintf("task %s depends on unknown task %s", t.ID, dep.PredecessorID),
				})
			}
		}
		for _, rid := range t.RequiredResources {
			if _, ok := resourcesByID[rid]; !ok {
				conflicts = append(conflicts, Conflict{
					Kind: "missing_resource", TaskID: t.ID,
					Message: fmt.Sprintf("task %s requires unknown resource %s", t.ID, rid),
				})
			}
		}
	}

	if cycle := findCycle(in.Tasks); cycle != nil {
		conflicts = append(conflicts, Conflict{
			Kind:    "circular_dependency",
			Message: fmt.Sprintf("circular dependency: %v", cycle),
		})
	}

	horizon := in.Constraints.HorizonHours()
	demandByResource := map[string]float64{}
	for _, t := range in.Tasks {
		for rid, demand := range t.ResourceDemand {
			demandByResource[rid] += float64(demand) * t.EstimatedHours
		}
	}
	for rid, total := range demandByResource {
		r, ok := resourcesByID[rid]
		if !ok {
			continue
		}
		if total > float64(r.Capacity)*horizon {
			conflicts = append(conflicts, Conflict{
				Kind: "resource_over_allocation",
				Message: fmt.Sprintf("resource %s demand %.1f exceeds capacity %d over horizon %.1fh",
					rid, total, r.Capacity, horizon),
			})
		}
	}

	for _, t := range in.Tasks {
		earliest := 0.0
		if t.EarliestStart != nil {
			earliest = *t.EarliestStart
		}
		deadline := horizon
		if t.Deadline != nil {
			deadline = *t.Deadline
		}
		available := deadline - earliest
		if available < t.EstimatedHours {
			conflicts = append(conflicts, Conflict{
				Kind: "impossible_deadline", TaskID: t.ID,
				Message: fmt.Sprintf("task %s needs %.1fh but only %.1fh available before its deadline", t.ID, t.EstimatedHours, available),
			})
		}
	}

	return conflicts
}

// findCycle runs a DFS with an explicit recursion stack over the
// predecessor graph (edge predecessor -> successor) and returns the
// first cycle found, or nil if the graph is acyclic.
func findCycle(tasks []Task) []string {
	successors := map[string][]string{}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			successors[dep.PredecessorID] = append(successors[dep.PredecessorID], t.ID)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range successors[id] {
			switch color[next] {
			case gray:
				idx := indexOf(stack, next)
				cycle = append(append([]string{}, stack[idx:]...), next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			if visit(t.ID) {
				return cycle
			}
		}
	}
	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
