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

package scheduler_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/almforge/coreforge/pkg/scheduler"
)

var projectStart = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) // a Monday

func baseConstraints() scheduler.Constraints {
	return scheduler.Constraints{
		ProjectStart:       projectStart,
		HorizonDays:        30,
		WorkingHoursPerDay: 8,
		RespectWeekends:    false,
	}
}

var _ = Describe("Service", func() {
	var (
		svc *scheduler.Service
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = scheduler.NewService(4)
	})

	Describe("Dependency ordering", func() {
		It("schedules a finish_to_start successor after its predecessor ends", func() {
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 8},
					{ID: "B", EstimatedHours: 4, Dependencies: []scheduler.Dependency{
						{PredecessorID: "A", DependencyType: scheduler.FinishToStart},
					}},
				},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(sched.Status).To(Equal(scheduler.StatusOptimal))

			byID := indexSchedule(sched)
			Expect(byID["B"].StartHours).To(BeNumerically(">=", byID["A"].EndHours))
		})

		It("respects start_to_start and finish_to_finish lags", func() {
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 8},
					{ID: "B", EstimatedHours: 4, Dependencies: []scheduler.Dependency{
						{PredecessorID: "A", DependencyType: scheduler.StartToStart, LagHours: 2},
					}},
				},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			byID := indexSchedule(sched)
			Expect(byID["B"].StartHours).To(BeNumerically(">=", byID["A"].StartHours+2))
		})
	})

	Describe("Resource capacity", func() {
		It("does not overlap two tasks that both fully consume a capacity-1 resource", func() {
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 8, RequiredResources: []string{"R1"}},
					{ID: "B", EstimatedHours: 8, RequiredResources: []string{"R1"}},
				},
				Resources:   []scheduler.Resource{{ID: "R1", Name: "Dev", Capacity: 1}},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(sched.Status).To(Equal(scheduler.StatusOptimal))

			byID := indexSchedule(sched)
			overlap := byID["A"].StartHours < byID["B"].EndHours && byID["B"].StartHours < byID["A"].EndHours
			Expect(overlap).To(BeFalse())
		})

		It("allows two capacity-2-demand-1 tasks to run concurrently", func() {
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 8, RequiredResources: []string{"R1"}, ResourceDemand: map[string]int{"R1": 1}},
					{ID: "B", EstimatedHours: 8, RequiredResources: []string{"R1"}, ResourceDemand: map[string]int{"R1": 1}},
				},
				Resources:   []scheduler.Resource{{ID: "R1", Name: "Pool", Capacity: 2}},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			byID := indexSchedule(sched)
			Expect(byID["A"].StartHours).To(Equal(0.0))
			Expect(byID["B"].StartHours).To(Equal(0.0))
		})
	})

	Describe("Circular dependency", func() {
		It("returns infeasible with a circular_dependency conflict", func() {
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 4, Dependencies: []scheduler.Dependency{{PredecessorID: "B", DependencyType: scheduler.FinishToStart}}},
					{ID: "B", EstimatedHours: 4, Dependencies: []scheduler.Dependency{{PredecessorID: "A", DependencyType: scheduler.FinishToStart}}},
				},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(sched.Status).To(Equal(scheduler.StatusInfeasible))
			Expect(conflictKinds(sched)).To(ContainElement("circular_dependency"))
		})
	})

	Describe("Impossible deadline", func() {
		It("flags a task whose estimate exceeds its available window", func() {
			deadline := 4.0
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 8, Deadline: &deadline},
				},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(sched.Status).To(Equal(scheduler.StatusInfeasible))
			Expect(conflictKinds(sched)).To(ContainElement("impossible_deadline"))
		})
	})

	Describe("Missing dependency target", func() {
		It("flags a task depending on an unknown predecessor", func() {
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 4, Dependencies: []scheduler.Dependency{{PredecessorID: "ghost", DependencyType: scheduler.FinishToStart}}},
				},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(sched.Status).To(Equal(scheduler.StatusInfeasible))
			Expect(conflictKinds(sched)).To(ContainElement("missing_dependency_target"))
		})
	})

	Describe("Critical path", func() {
		It("marks the longest chain and leaves the parallel branch off it", func() {
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 8},
					{ID: "B", EstimatedHours: 16, Dependencies: []scheduler.Dependency{{PredecessorID: "A", DependencyType: scheduler.FinishToStart}}},
					{ID: "C", EstimatedHours: 2, Dependencies: []scheduler.Dependency{{PredecessorID: "A", DependencyType: scheduler.FinishToStart}}},
				},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(sched.CriticalPath).To(Equal([]string{"A", "B"}))
		})
	})

	Describe("Calendar conversion", func() {
		It("snaps across a weekend when respect_weekends is true", func() {
			c := baseConstraints()
			c.RespectWeekends = true
			c.ProjectStart = time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC) // Friday
			in := scheduler.Input{
				ProjectID: "P1",
				Tasks: []scheduler.Task{
					{ID: "A", EstimatedHours: 16}, // 2 full working days
				},
				Constraints: c,
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			byID := indexSchedule(sched)
			Expect(byID["A"].EndDate.Weekday()).NotTo(Equal(time.Saturday))
			Expect(byID["A"].EndDate.Weekday()).NotTo(Equal(time.Sunday))
		})
	})

	Describe("Update", func() {
		It("bumps version and re-derives project_end from adjustments", func() {
			in := scheduler.Input{
				ProjectID:   "P1",
				Tasks:       []scheduler.Task{{ID: "A", EstimatedHours: 8}},
				Constraints: baseConstraints(),
			}
			sched, err := svc.Solve(ctx, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(sched.Version).To(Equal(1))

			newEnd := sched.Schedule[0].EndDate.Add(24 * time.Hour)
			updated, err := svc.Update(ctx, "P1", []scheduler.TaskAdjustment{
				{TaskID: "A", EndDate: &newEnd},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Version).To(Equal(2))
			Expect(updated.ProjectEnd).To(Equal(newEnd))
		})
	})
})

func indexSchedule(sched *scheduler.Schedule) map[string]scheduler.TaskSchedule {
	m := make(map[string]scheduler.TaskSchedule, len(sched.Schedule))
	for _, ts := range sched.Schedule {
		m[ts.TaskID] = ts
	}
	return m
}

func conflictKinds(sched *scheduler.Schedule) []string {
	var kinds []string
	for _, c := range sched.Conflicts {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}
