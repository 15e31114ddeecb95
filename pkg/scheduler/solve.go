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

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// solve runs the resource-constrained scheduling heuristic: a forward
// topological pass establishes each task's earliest feasible start/end
// under dependency and earliest-start constraints, then a serial
// schedule-generation pass places tasks (in that same topological order)
// at the earliest slot that additionally satisfies every resource's
// cumulative capacity and any deadline/milestone bound. Always taking
// the earliest feasible slot is what makes minimize(max end_i) fall out
// of the construction rather than needing a separate objective pass.
func solve(ctx context.Context, in Input) (*Schedule, error) {
	order, err := topologicalOrder(in.Tasks)
	if err != nil || len(order) != len(in.Tasks) {
		// A cycle, or a dependency on an unknown task, leaves some task's
		// indegree permanently nonzero — either way the graph cannot be
		// fully ordered and conflict synthesis explains why.
		return infeasible(in, synthesizeConflicts(in)), nil
	}

	tasksByID := make(map[string]Task, len(in.Tasks))
	for _, t := range in.Tasks {
		tasksByID[t.ID] = t
	}
	resourcesByID := make(map[string]Resource, len(in.Resources))
	for _, r := range in.Resources {
		resourcesByID[r.ID] = r
	}

	horizon := in.Constraints.HorizonHours()
	milestoneBound := milestoneUpperBounds(in.Milestones, in.Constraints.ProjectStart)

	starts := map[string]float64{}
	ends := map[string]float64{}
	usage := newResourceUsage()

	for _, id := range order {
		select {
		case <-ctx.Done():
			return infeasible(in, []Conflict{{Kind: "timeout", Message: "solve exceeded its time budget"}}), nil
		default:
		}

		t := tasksByID[id]

		earliest := 0.0
		if t.EarliestStart != nil {
			earliest = *t.EarliestStart
		}
		for _, dep := range t.Dependencies {
			predEnd, predStart := ends[dep.PredecessorID], starts[dep.PredecessorID]
			switch dep.DependencyType {
			case FinishToStart:
				earliest = maxF(earliest, predEnd+dep.LagHours)
			case StartToStart:
				earliest = maxF(earliest, predStart+dep.LagHours)
			case FinishToFinish:
				earliest = maxF(earliest, predEnd+dep.LagHours-t.EstimatedHours)
			}
		}

		deadline := horizon
		if t.Deadline != nil {
			deadline = minF(deadline, *t.Deadline)
		}
		if in.Constraints.ProjectDeadline != nil {
			deadline = minF(deadline, *in.Constraints.ProjectDeadline)
		}
		if b, ok := milestoneBound[t.ID]; ok {
			deadline = minF(deadline, b)
		}

		start, ok := usage.earliestFeasibleSlot(t, earliest, deadline, resourcesByID)
		if !ok {
			return infeasible(in, synthesizeConflicts(in)), nil
		}

		end := start + t.EstimatedHours
		if end > deadline {
			return infeasible(in, synthesizeConflicts(in)), nil
		}

		starts[id] = start
		ends[id] = end
		usage.reserve(t, start, end)
	}

	sched := &Schedule{
		ProjectID: in.ProjectID,
		Version:   1,
		Status:    StatusOptimal,
	}

	maxEnd := 0.0
	for _, id := range order {
		st, en := starts[id], ends[id]
		if en > maxEnd {
			maxEnd = en
		}
		sched.Schedule = append(sched.Schedule, TaskSchedule{
			TaskID:     id,
			StartHours: st,
			EndHours:   en,
			StartDate:  convert(in.Constraints.ProjectStart, st, in.Constraints),
			EndDate:    convert(in.Constraints.ProjectStart, en, in.Constraints),
		})
	}

	sched.ProjectStart = in.Constraints.ProjectStart
	sched.ProjectEnd = convert(in.Constraints.ProjectStart, maxEnd, in.Constraints)
	sched.ProjectDurationHours = maxEnd

	markCriticalPath(sched, in.Tasks)
	return sched, nil
}

func infeasible(in Input, conflicts []Conflict) *Schedule {
	return &Schedule{
		ProjectID: in.ProjectID,
		Version:   1,
		Status:    StatusInfeasible,
		Conflicts: conflicts,
	}
}

// topologicalOrder returns task IDs such that every predecessor precedes
// its dependents, erroring on a cycle (conflict synthesis reports the
// detail; this just needs to know solving cannot proceed).
func topologicalOrder(tasks []Task) ([]string, error) {
	if findCycle(tasks) != nil {
		return nil, fmt.Errorf("circular dependency")
	}

	indegree := map[string]int{}
	successors := map[string][]string{}
	for _, t := range tasks {
		if _, ok := indegree[t.ID]; !ok {
			indegree[t.ID] = 0
		}
		for _, dep := range t.Dependencies {
			successors[dep.PredecessorID] = append(successors[dep.PredecessorID], t.ID)
			indegree[t.ID]++
		}
	}

	var queue []string
	for _, t := range tasks {
		if indegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		var next []string
		for _, succ := range successors[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				next = append(next, succ)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}
	return order, nil
}

// milestoneUpperBounds collects, per task, the tightest manual-constraint
// milestone target converted to hours-from-project_start; non-manual
// milestones are read-only and contribute no bound here (their date is
// read back from the solved schedule instead, see Schedule.MilestoneDates).
func milestoneUpperBounds(milestones []Milestone, projectStart time.Time) map[string]float64 {
	bounds := map[string]float64{}
	for _, m := range milestones {
		if !m.IsManualConstraint {
			continue
		}
		target := m.TargetDate.Sub(projectStart).Hours()
		for _, taskID := range m.Dependencies {
			if existing, ok := bounds[taskID]; !ok || target < existing {
				bounds[taskID] = target
			}
		}
	}
	return bounds
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

