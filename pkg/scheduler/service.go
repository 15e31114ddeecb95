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
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	appErrors "github.com/almforge/coreforge/internal/errors"
	"github.com/almforge/coreforge/pkg/metrics"
)

// SolveTimeout bounds a single solve's wall-clock budget, per
// SPEC_FULL.md's 60-second CP-SAT-equivalent solve limit.
const SolveTimeout = 60 * time.Second

// Service bounds how many solves run at once with a weighted semaphore
// (each solve runs on the calling goroutine) and retains the last
// feasible schedule per project.
type Service struct {
	sem *semaphore.Weighted

	mu        sync.Mutex
	schedules map[string]*Schedule
}

// NewService builds a Service whose semaphore admits at most
// maxConcurrentSolves solves at a time.
func NewService(maxConcurrentSolves int64) *Service {
	if maxConcurrentSolves < 1 {
		maxConcurrentSolves = 1
	}
	return &Service{
		sem:       semaphore.NewWeighted(maxConcurrentSolves),
		schedules: map[string]*Schedule{},
	}
}

// Solve runs the scheduling heuristic for in on the calling goroutine once
// a semaphore slot is free, bounded by SolveTimeout. A feasible result is
// stored as the project's last schedule; an infeasible result is returned
// but leaves the stored schedule untouched.
func (s *Service) Solve(ctx context.Context, in Input) (*Schedule, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, appErrors.NewTimeoutError("scheduler solve admission")
	}
	defer s.sem.Release(1)

	solveCtx, cancel := context.WithTimeout(ctx, SolveTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	defer timer.RecordSchedulerSolve()
	metrics.IncrementConcurrentSolves()
	defer metrics.DecrementConcurrentSolves()

	sched, err := solve(solveCtx, in)
	if err != nil {
		metrics.RecordWorkItemOperationError("scheduler_solve", "internal")
		return nil, err
	}

	applyMilestoneReadback(sched, in)

	if sched.Status != StatusInfeasible {
		s.mu.Lock()
		s.schedules[in.ProjectID] = sched
		s.mu.Unlock()
	}

	return sched, nil
}

// Get returns the last schedule computed for projectID, if any.
func (s *Service) Get(projectID string) (*Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[projectID]
	return sched, ok
}

// Update overrides start_date and/or end_date (recomputing whichever is
// omitted from duration_hours when that is given) for each adjustment,
// bumps the schedule's version, and re-derives project_start/end/
// duration from the adjusted set.
func (s *Service) Update(ctx context.Context, projectID string, adjustments []TaskAdjustment) (*Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[projectID]
	if !ok {
		return nil, appErrors.NewNotFoundError("schedule")
	}

	byID := make(map[string]int, len(sched.Schedule))
	for i, ts := range sched.Schedule {
		byID[ts.TaskID] = i
	}

	for _, adj := range adjustments {
		idx, ok := byID[adj.TaskID]
		if !ok {
			return nil, appErrors.NewValidationError("unknown task_id in adjustment: " + adj.TaskID)
		}
		ts := &sched.Schedule[idx]

		switch {
		case adj.StartDate != nil && adj.EndDate != nil:
			ts.StartDate = *adj.StartDate
			ts.EndDate = *adj.EndDate
		case adj.StartDate != nil && adj.DurationHours != nil:
			ts.StartDate = *adj.StartDate
			ts.EndDate = ts.StartDate.Add(time.Duration(*adj.DurationHours * float64(time.Hour)))
		case adj.EndDate != nil && adj.DurationHours != nil:
			ts.EndDate = *adj.EndDate
			ts.StartDate = ts.EndDate.Add(-time.Duration(*adj.DurationHours * float64(time.Hour)))
		case adj.StartDate != nil:
			ts.StartDate = *adj.StartDate
		case adj.EndDate != nil:
			ts.EndDate = *adj.EndDate
		}

		ts.StartHours = ts.StartDate.Sub(sched.ProjectStart).Hours()
		ts.EndHours = ts.EndDate.Sub(sched.ProjectStart).Hours()
	}

	var projectEnd time.Time
	var maxEnd float64
	for _, ts := range sched.Schedule {
		if ts.EndDate.After(projectEnd) {
			projectEnd = ts.EndDate
		}
		if ts.EndHours > maxEnd {
			maxEnd = ts.EndHours
		}
	}

	sched.ProjectEnd = projectEnd
	sched.ProjectDurationHours = maxEnd
	sched.Version++

	return sched, nil
}

// applyMilestoneReadback computes, for every non-manual milestone, its
// reported date as max(end_i) over its dependency tasks; manual
// milestones were already enforced as constraints during solve, so their
// date is simply their configured target.
func applyMilestoneReadback(sched *Schedule, in Input) {
	if sched.Status == StatusInfeasible || len(in.Milestones) == 0 {
		return
	}
	endByTask := make(map[string]time.Time, len(sched.Schedule))
	for _, ts := range sched.Schedule {
		endByTask[ts.TaskID] = ts.EndDate
	}

	sched.MilestoneDates = make(map[string]time.Time, len(in.Milestones))
	for _, m := range in.Milestones {
		if m.IsManualConstraint {
			sched.MilestoneDates[m.ID] = m.TargetDate
			continue
		}
		var latest time.Time
		for _, taskID := range m.Dependencies {
			if end, ok := endByTask[taskID]; ok && end.After(latest) {
				latest = end
			}
		}
		sched.MilestoneDates[m.ID] = latest
	}
}
