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

// markCriticalPath computes the longest path through the dependency
// graph, weighted by estimated_hours, and marks each task on it with
// is_critical=true in sched.Schedule. Extraction failure (a malformed
// graph the forward pass nonetheless solved) is swallowed: the schedule
// is still returned, just with an empty critical path.
func markCriticalPath(sched *Schedule, tasks []Task) {
	defer func() {
		if recover() != nil {
			sched.CriticalPath = nil
		}
	}()

	predecessors := map[string][]string{}
	tasksByID := map[string]Task{}
	for _, t := range tasks {
		tasksByID[t.ID] = t
		for _, dep := range t.Dependencies {
			predecessors[t.ID] = append(predecessors[t.ID], dep.PredecessorID)
		}
	}

	order, err := topologicalOrder(tasks)
	if err != nil {
		return
	}

	longest := map[string]float64{}
	prev := map[string]string{}
	var finish string
	finishLen := -1.0

	for _, id := range order {
		t := tasksByID[id]
		best := t.EstimatedHours
		var bestPrev string
		for _, pred := range predecessors[id] {
			if candidate := longest[pred] + t.EstimatedHours; candidate > best {
				best = candidate
				bestPrev = pred
			}
		}
		longest[id] = best
		if bestPrev != "" {
			prev[id] = bestPrev
		}
		if best > finishLen {
			finishLen = best
			finish = id
		}
	}

	if finish == "" {
		return
	}

	var path []string
	for id := finish; id != ""; id = prev[id] {
		path = append([]string{id}, path...)
	}

	critical := map[string]bool{}
	for _, id := range path {
		critical[id] = true
	}
	for i := range sched.Schedule {
		sched.Schedule[i].IsCritical = critical[sched.Schedule[i].TaskID]
	}
	sched.CriticalPath = path
}
