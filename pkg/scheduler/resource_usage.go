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

import "sort"

// interval is one task's reserved [start, end) span against a resource,
// at a given demand.
type interval struct {
	start, end float64
	demand     int
}

// resourceUsage tracks, per resource, every interval reserved so far so
// the serial schedule-generation pass can find the earliest slot whose
// cumulative demand never exceeds capacity.
type resourceUsage struct {
	intervals map[string][]interval
}

func newResourceUsage() *resourceUsage {
	return &resourceUsage{intervals: map[string][]interval{}}
}

// earliestFeasibleSlot scans candidate start times — earliest itself,
// and the end of every existing interval at or after earliest on any
// resource the task needs — for the first one where the task's full
// duration fits under every required resource's capacity and within
// [earliest, deadline].
func (u *resourceUsage) earliestFeasibleSlot(t Task, earliest, deadline float64, resources map[string]Resource) (float64, bool) {
	if len(t.RequiredResources) == 0 {
		if earliest+t.EstimatedHours <= deadline {
			return earliest, true
		}
		return 0, false
	}

	candidates := []float64{earliest}
	for _, rid := range t.RequiredResources {
		for _, iv := range u.intervals[rid] {
			if iv.end >= earliest {
				candidates = append(candidates, iv.end)
			}
		}
	}
	sort.Float64s(candidates)

	for _, start := range candidates {
		if start < earliest {
			continue
		}
		end := start + t.EstimatedHours
		if end > deadline {
			continue
		}
		if u.fits(t, start, end, resources) {
			return start, true
		}
	}
	return 0, false
}

func (u *resourceUsage) fits(t Task, start, end float64, resources map[string]Resource) bool {
	for _, rid := range t.RequiredResources {
		capacity := 1
		if r, ok := resources[rid]; ok {
			capacity = r.Capacity
		}
		demand := t.ResourceDemand[rid]
		if demand == 0 {
			demand = 1
		}
		used := demand
		for _, iv := range u.intervals[rid] {
			if overlaps(iv.start, iv.end, start, end) {
				used += iv.demand
			}
		}
		if used > capacity {
			return false
		}
	}
	return true
}

func (u *resourceUsage) reserve(t Task, start, end float64) {
	for _, rid := range t.RequiredResources {
		demand := t.ResourceDemand[rid]
		if demand == 0 {
			demand = 1
		}
		u.intervals[rid] = append(u.intervals[rid], interval{start: start, end: end, demand: demand})
	}
}

func overlaps(aStart, aEnd, bStart, bEnd float64) bool {
	return aStart < bEnd && bStart < aEnd
}

