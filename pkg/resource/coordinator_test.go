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

package resource_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/almforge/coreforge/pkg/graph"
	"github.com/almforge/coreforge/pkg/resource"
)

var _ = Describe("Coordinator", func() {
	var (
		g   graph.Executor
		c   *resource.Coordinator
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		g = graph.NewMemoryExecutor(zap.NewNop())
		c = resource.NewCoordinator(g)
	})

	Describe("MatchSkills", func() {
		It("scores by intersection count, department affinity, and lead allocation", func() {
			_, err := g.CreateNode(ctx, resource.DepartmentNodeLabel, map[string]interface{}{"id": "dept-eng", "name": "Engineering"})
			Expect(err).NotTo(HaveOccurred())

			full, err := c.CreateResource(ctx, resource.Resource{
				ID: "r-full", Name: "Full match", DepartmentID: "dept-eng",
				Skills: []string{"go", "postgres"},
			})
			Expect(err).NotTo(HaveOccurred())

			partial, err := c.CreateResource(ctx, resource.Resource{
				ID: "r-partial", Name: "Partial match",
				Skills: []string{"go"},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = c.CreateResource(ctx, resource.Resource{
				ID: "r-none", Name: "No match", Skills: []string{"java"},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = g.CreateNode(ctx, "Project", map[string]interface{}{"id": "proj-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Allocate(ctx, partial.ID, "proj-1", resource.AllocationKindProject, 50, true)).To(Succeed())

			matches, err := c.MatchSkills(ctx, []string{"go", "postgres"}, []string{"dept-eng"})
			Expect(err).NotTo(HaveOccurred())

			// r-none excluded (count=0, |S|>0).
			Expect(matches).To(HaveLen(2))

			// lead desc first: r-partial has a lead allocation despite a lower
			// raw score than r-full.
			Expect(matches[0].Resource.ID).To(Equal(partial.ID))
			Expect(matches[0].Lead).To(BeTrue())

			Expect(matches[1].Resource.ID).To(Equal(full.ID))
			Expect(matches[1].Score).To(BeNumerically("~", 1.0+0.10, 1e-9))
		})

		It("returns every resource, lead-first, when no skills are required", func() {
			_, err := c.CreateResource(ctx, resource.Resource{ID: "r-a", Name: "A"})
			Expect(err).NotTo(HaveOccurred())
			_, err = c.CreateResource(ctx, resource.Resource{ID: "r-b", Name: "B"})
			Expect(err).NotTo(HaveOccurred())
			_, err = g.CreateNode(ctx, "Task", map[string]interface{}{"id": "task-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Allocate(ctx, "r-b", "task-1", resource.AllocationKindTask, 100, true)).To(Succeed())

			matches, err := c.MatchSkills(ctx, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].Resource.ID).To(Equal("r-b"))
		})

		It("breaks ties deterministically by id ascending", func() {
			_, err := c.CreateResource(ctx, resource.Resource{ID: "r-z", Name: "Z", Skills: []string{"go"}})
			Expect(err).NotTo(HaveOccurred())
			_, err = c.CreateResource(ctx, resource.Resource{ID: "r-a", Name: "A", Skills: []string{"go"}})
			Expect(err).NotTo(HaveOccurred())

			matches, err := c.MatchSkills(ctx, []string{"go"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].Resource.ID).To(Equal("r-a"))
			Expect(matches[1].Resource.ID).To(Equal("r-z"))
		})
	})

	Describe("Allocate", func() {
		BeforeEach(func() {
			for _, n := range []struct{ label, id string }{{"Project", "proj-1"}, {"Task", "task-1"}, {"Task", "task-2"}} {
				_, err := g.CreateNode(ctx, n.label, map[string]interface{}{"id": n.id})
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("rejects mixing project and task allocation kinds for the same resource", func() {
			_, err := c.CreateResource(ctx, resource.Resource{ID: "r-1", Name: "R1"})
			Expect(err).NotTo(HaveOccurred())

			Expect(c.Allocate(ctx, "r-1", "proj-1", resource.AllocationKindProject, 50, false)).To(Succeed())
			err = c.Allocate(ctx, "r-1", "task-1", resource.AllocationKindTask, 50, false)
			Expect(err).To(HaveOccurred())
		})

		It("allows multiple allocations of the same kind", func() {
			_, err := c.CreateResource(ctx, resource.Resource{ID: "r-1", Name: "R1"})
			Expect(err).NotTo(HaveOccurred())

			Expect(c.Allocate(ctx, "r-1", "task-1", resource.AllocationKindTask, 50, false)).To(Succeed())
			Expect(c.Allocate(ctx, "r-1", "task-2", resource.AllocationKindTask, 25, true)).To(Succeed())
		})
	})
})
