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

package sprint_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/almforge/coreforge/pkg/graph"
	"github.com/almforge/coreforge/pkg/lock"
	"github.com/almforge/coreforge/pkg/sprint"
	"github.com/almforge/coreforge/pkg/workitem"
)

type fakeTaskReader struct {
	tasks map[string]*workitem.Snapshot
}

func newFakeTaskReader() *fakeTaskReader {
	return &fakeTaskReader{tasks: map[string]*workitem.Snapshot{}}
}

func (f *fakeTaskReader) Get(_ context.Context, id string) (*workitem.Snapshot, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, &notFoundErr{id}
	}
	return t, nil
}

type notFoundErr struct{ id string }

func (e *notFoundErr) Error() string { return "task not found: " + e.id }

func hours(h float64) *float64 { return &h }
func points(p int) *int        { return &p }

var _ = Describe("Coordinator", func() {
	var (
		g      graph.Executor
		tasks  *fakeTaskReader
		locker lock.Locker
		c      *sprint.Coordinator
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		g = graph.NewMemoryExecutor(zap.NewNop())
		tasks = newFakeTaskReader()
		locker = lock.NewMemoryLocker()
		c = sprint.NewCoordinator(g, tasks, locker, nil)
		for _, id := range []string{"T1", "T2"} {
			_, err := g.CreateNode(ctx, workitem.NodeLabel, map[string]interface{}{"id": id})
			Expect(err).NotTo(HaveOccurred())
		}
	})

	newSprint := func(projectID string, capHours *float64, capPoints *int) *sprint.Sprint {
		s, err := c.CreateSprint(ctx, sprint.CreateInput{
			ProjectID:           projectID,
			Name:                "Sprint 1",
			StartDate:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:             time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
			CapacityHours:       capHours,
			CapacityStoryPoints: capPoints,
		})
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	Describe("CreateSprint", func() {
		It("defaults to planning status", func() {
			s := newSprint("P1", nil, nil)
			Expect(s.Status).To(Equal(sprint.StatusPlanning))
		})

		It("rejects end_date not after start_date", func() {
			_, err := c.CreateSprint(ctx, sprint.CreateInput{
				ProjectID: "P1", Name: "Bad",
				StartDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("At-most-one-active", func() {
		It("rejects starting a second sprint while one is active", func() {
			s1 := newSprint("P1", nil, nil)
			_, err := c.StartSprint(ctx, s1.ID)
			Expect(err).NotTo(HaveOccurred())

			s2 := newSprint("P1", nil, nil)
			_, err = c.StartSprint(ctx, s2.ID)
			Expect(err).To(HaveOccurred())
		})

		It("allows active sprints in different projects", func() {
			s1 := newSprint("P1", nil, nil)
			_, err := c.StartSprint(ctx, s1.ID)
			Expect(err).NotTo(HaveOccurred())

			s2 := newSprint("P2", nil, nil)
			_, err = c.StartSprint(ctx, s2.ID)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("AssignTask mutual exclusion", func() {
		It("removes the backlog edge when a task is assigned to a sprint", func() {
			s := newSprint("P1", nil, nil)
			backlog, err := c.CreateBacklog(ctx, "P1", "Backlog")
			Expect(err).NotTo(HaveOccurred())

			tasks.tasks["T1"] = &workitem.Snapshot{ID: "T1", Status: "ready", EstimatedHours: hours(4)}
			Expect(c.AddToBacklog(ctx, backlog.ID, "T1")).To(Succeed())

			Expect(c.AssignTask(ctx, s.ID, "T1")).To(Succeed())

			backlogRels, err := g.Relationships(ctx, graph.RelationshipFilter{From: "T1", Type: sprint.EdgeInBacklog})
			Expect(err).NotTo(HaveOccurred())
			Expect(backlogRels).To(BeEmpty())

			sprintRels, err := g.Relationships(ctx, graph.RelationshipFilter{From: "T1", Type: sprint.EdgeAssignedToSprint})
			Expect(err).NotTo(HaveOccurred())
			Expect(sprintRels).To(HaveLen(1))
		})
	})

	Describe("Capacity admission", func() {
		It("rejects a task that would exceed capacity_hours", func() {
			capHours := 40.0
			s := newSprint("P1", &capHours, nil)

			tasks.tasks["T1"] = &workitem.Snapshot{ID: "T1", Status: "ready", EstimatedHours: hours(36)}
			Expect(c.AssignTask(ctx, s.ID, "T1")).To(Succeed())

			tasks.tasks["T2"] = &workitem.Snapshot{ID: "T2", Status: "ready", EstimatedHours: hours(8)}
			err := c.AssignTask(ctx, s.ID, "T2")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("capacity"))
		})
	})

	Describe("RemoveTask with return_to_backlog", func() {
		It("re-links a ready task to the backlog", func() {
			s := newSprint("P1", nil, nil)
			backlog, err := c.CreateBacklog(ctx, "P1", "Backlog")
			Expect(err).NotTo(HaveOccurred())

			tasks.tasks["T1"] = &workitem.Snapshot{ID: "T1", Status: "ready", EstimatedHours: hours(4)}
			Expect(c.AssignTask(ctx, s.ID, "T1")).To(Succeed())

			Expect(c.RemoveTask(ctx, s.ID, "T1", backlog.ID, true)).To(Succeed())

			backlogRels, err := g.Relationships(ctx, graph.RelationshipFilter{From: "T1", Type: sprint.EdgeInBacklog})
			Expect(err).NotTo(HaveOccurred())
			Expect(backlogRels).To(HaveLen(1))
			Expect(backlogRels[0].To).To(Equal(backlog.ID))
		})

		It("does not return a non-ready task to the backlog", func() {
			s := newSprint("P1", nil, nil)
			backlog, err := c.CreateBacklog(ctx, "P1", "Backlog")
			Expect(err).NotTo(HaveOccurred())

			tasks.tasks["T1"] = &workitem.Snapshot{ID: "T1", Status: "in_review", EstimatedHours: hours(4)}
			Expect(c.AssignTask(ctx, s.ID, "T1")).To(Succeed())

			Expect(c.RemoveTask(ctx, s.ID, "T1", backlog.ID, true)).To(Succeed())

			backlogRels, err := g.Relationships(ctx, graph.RelationshipFilter{From: "T1", Type: sprint.EdgeInBacklog})
			Expect(err).NotTo(HaveOccurred())
			Expect(backlogRels).To(BeEmpty())
		})
	})

	Describe("Velocity and CompleteSprint", func() {
		It("sums only completed tasks and writes back actual velocity", func() {
			s := newSprint("P1", nil, nil)
			backlog, err := c.CreateBacklog(ctx, "P1", "Backlog")
			Expect(err).NotTo(HaveOccurred())

			tasks.tasks["T1"] = &workitem.Snapshot{ID: "T1", Status: "completed", EstimatedHours: hours(5), StoryPoints: points(3)}
			tasks.tasks["T2"] = &workitem.Snapshot{ID: "T2", Status: "ready", EstimatedHours: hours(2), StoryPoints: points(1)}
			Expect(c.AssignTask(ctx, s.ID, "T1")).To(Succeed())
			Expect(c.AssignTask(ctx, s.ID, "T2")).To(Succeed())

			v, err := c.Velocity(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Hours).To(Equal(5.0))
			Expect(v.StoryPoints).To(Equal(3))

			_, err = c.StartSprint(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())

			completed, err := c.CompleteSprint(ctx, s.ID, backlog.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(completed.Status).To(Equal(sprint.StatusCompleted))
			Expect(completed.ActualVelocityHours).To(Equal(5.0))
			Expect(completed.ActualVelocityStoryPoints).To(Equal(3))

			backlogRels, err := g.Relationships(ctx, graph.RelationshipFilter{From: "T2", Type: sprint.EdgeInBacklog})
			Expect(err).NotTo(HaveOccurred())
			Expect(backlogRels).To(HaveLen(1))
		})
	})

	Describe("Burndown", func() {
		It("produces a monotone non-increasing series bounded by start/end dates", func() {
			s := newSprint("P1", nil, nil)
			tasks.tasks["T1"] = &workitem.Snapshot{
				ID: "T1", Status: "completed", EstimatedHours: hours(10),
				UpdatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			}
			Expect(c.AssignTask(ctx, s.ID, "T1")).To(Succeed())

			pointsSeries, err := c.Burndown(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(pointsSeries).NotTo(BeEmpty())
			Expect(pointsSeries[0].Date).To(Equal(s.StartDate))
			Expect(pointsSeries[len(pointsSeries)-1].Date).To(Equal(s.EndDate))

			for i := 1; i < len(pointsSeries); i++ {
				Expect(pointsSeries[i].IdealRemainingHours).To(BeNumerically("<=", pointsSeries[i-1].IdealRemainingHours))
				Expect(pointsSeries[i].ActualRemainingHours).To(BeNumerically("<=", pointsSeries[i-1].ActualRemainingHours))
			}
			Expect(pointsSeries[len(pointsSeries)-1].ActualRemainingHours).To(Equal(0.0))
		})
	})
})
