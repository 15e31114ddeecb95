package graph_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/almforge/coreforge/pkg/graph"
)

var _ = Describe("MemoryExecutor", func() {
	var (
		ex  *graph.MemoryExecutor
		ctx context.Context
	)

	BeforeEach(func() {
		ex = graph.NewMemoryExecutor(zap.NewNop())
		ctx = context.Background()
	})

	Describe("CreateNode", func() {
		It("creates a node with the given label and props", func() {
			node, err := ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "wi-1", "title": "Auth"})
			Expect(err).NotTo(HaveOccurred())
			Expect(node.ID).To(Equal("wi-1"))
			Expect(node.Label).To(Equal("WorkItem"))
		})

		It("rejects a missing id", func() {
			_, err := ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"title": "Auth"})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a duplicate id", func() {
			_, err := ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "wi-2"})
			Expect(err).NotTo(HaveOccurred())
			_, err = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "wi-2"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateNode", func() {
		It("merges properties without touching relationships", func() {
			_, err := ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "wi-3", "title": "A"})
			Expect(err).NotTo(HaveOccurred())
			_, err = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "wi-4"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ex.CreateRelationship(ctx, "wi-3", "wi-4", "NEXT_VERSION", nil)).To(Succeed())

			updated, err := ex.UpdateNode(ctx, "wi-3", map[string]interface{}{"status": "active"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Props["title"]).To(Equal("A"))
			Expect(updated.Props["status"]).To(Equal("active"))

			rels, err := ex.Relationships(ctx, graph.RelationshipFilter{From: "wi-3"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rels).To(HaveLen(1))
		})

		It("errors for a missing node", func() {
			_, err := ex.UpdateNode(ctx, "nope", map[string]interface{}{"x": 1})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DeleteNode", func() {
		It("detach-deletes: removes the node and all incident edges", func() {
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "a"})
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "b"})
			Expect(ex.CreateRelationship(ctx, "a", "b", "NEXT_VERSION", nil)).To(Succeed())

			Expect(ex.DeleteNode(ctx, "a")).To(Succeed())

			_, err := ex.GetNode(ctx, "a")
			Expect(err).To(HaveOccurred())

			rels, err := ex.Relationships(ctx, graph.RelationshipFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rels).To(BeEmpty())
		})
	})

	Describe("CreateRelationship", func() {
		It("is idempotent on (from, to, type): a second call merges rather than duplicates", func() {
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "a"})
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "b"})

			Expect(ex.CreateRelationship(ctx, "a", "b", "DEPENDS_ON", map[string]interface{}{"lag": 0})).To(Succeed())
			Expect(ex.CreateRelationship(ctx, "a", "b", "DEPENDS_ON", map[string]interface{}{"lag": 5})).To(Succeed())

			rels, err := ex.Relationships(ctx, graph.RelationshipFilter{From: "a", To: "b", Type: "DEPENDS_ON"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rels).To(HaveLen(1))
			Expect(rels[0].Props["lag"]).To(Equal(5))
		})

		It("errors when an endpoint does not exist", func() {
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "a"})
			err := ex.CreateRelationship(ctx, "a", "missing", "DEPENDS_ON", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RemoveRelationships", func() {
		It("removes by endpoint and type filter", func() {
			_, _ = ex.CreateNode(ctx, "Task", map[string]interface{}{"id": "t"})
			_, _ = ex.CreateNode(ctx, "Backlog", map[string]interface{}{"id": "bl"})
			_, _ = ex.CreateNode(ctx, "Sprint", map[string]interface{}{"id": "s"})

			Expect(ex.CreateRelationship(ctx, "t", "bl", "IN_BACKLOG", nil)).To(Succeed())
			Expect(ex.RemoveRelationships(ctx, graph.RelationshipFilter{From: "t", Type: "IN_BACKLOG"})).To(Succeed())
			Expect(ex.CreateRelationship(ctx, "t", "s", "ASSIGNED_TO_SPRINT", nil)).To(Succeed())

			rels, err := ex.Relationships(ctx, graph.RelationshipFilter{From: "t"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rels).To(HaveLen(1))
			Expect(rels[0].Type).To(Equal("ASSIGNED_TO_SPRINT"))
		})
	})

	Describe("ExecuteQuery", func() {
		It("matches nodes of a label by equality params", func() {
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "a", "status": "active"})
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "b", "status": "draft"})

			rows, err := ex.ExecuteQuery(ctx, graph.Query{Pattern: "WorkItem", Params: map[string]interface{}{"status": "active"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]["id"]).To(Equal("a"))
		})
	})

	Describe("FindNodes", func() {
		It("applies an arbitrary predicate over a label", func() {
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "a", "title": "Authenticate users"})
			_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": "b", "title": "Payments"})

			nodes, err := ex.FindNodes(ctx, "WorkItem", func(n *graph.Node) bool {
				title, _ := n.Props["title"].(string)
				return len(title) > 0 && title[0] == 'A'
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(1))
			Expect(nodes[0].ID).To(Equal("a"))
		})
	})

	Describe("Concurrent access", func() {
		It("handles concurrent reads and writes safely", func() {
			done := make(chan bool, 2)

			go func() {
				defer GinkgoRecover()
				for i := 0; i < 50; i++ {
					_, _ = ex.CreateNode(ctx, "WorkItem", map[string]interface{}{"id": fmt.Sprintf("c-%d", i)})
				}
				done <- true
			}()

			go func() {
				defer GinkgoRecover()
				for i := 0; i < 50; i++ {
					_, _ = ex.FindNodes(ctx, "WorkItem", nil)
				}
				done <- true
			}()

			<-done
			<-done
		})
	})
})
