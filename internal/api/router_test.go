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

package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/almforge/coreforge/internal/api"
	"github.com/almforge/coreforge/pkg/audit"
	"github.com/almforge/coreforge/pkg/authz"
	"github.com/almforge/coreforge/pkg/graph"
	"github.com/almforge/coreforge/pkg/lock"
	"github.com/almforge/coreforge/pkg/resource"
	"github.com/almforge/coreforge/pkg/scheduler"
	"github.com/almforge/coreforge/pkg/signature"
	"github.com/almforge/coreforge/pkg/sprint"
	"github.com/almforge/coreforge/pkg/workerpool"
	"github.com/almforge/coreforge/pkg/workitem"
)

type noopAuditStore struct{}

func (noopAuditStore) RecordBatch(context.Context, []audit.Event) error { return nil }
func (noopAuditStore) Query(context.Context, audit.Filter) ([]audit.Event, error) {
	return nil, nil
}

// bearerToken builds an unsigned JWT-shaped token carrying the given
// subject and roles, matching what authenticate() parses.
func bearerToken(subject string, roles []string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload, _ := json.Marshal(map[string]interface{}{"sub": subject, "roles": roles})
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func newTestRouter() http.Handler {
	logger := zap.NewNop()
	auditLog := audit.NewBufferedStore(noopAuditStore{}, audit.DefaultBufferedStoreConfig(), logger)
	g := graph.NewMemoryExecutor(logger)

	signatureSvc := signature.NewService(signature.NewMemoryRepository(), auditLog)
	items := workitem.NewStore(g, signatureSvc, auditLog)
	sprints := sprint.NewCoordinator(g, items, lock.NewMemoryLocker(), auditLog)
	resources := resource.NewCoordinator(g)
	schedulerSvc := scheduler.NewService(2)

	authzEval, err := authz.NewEvaluator(context.Background(), authz.DefaultRolesByAction())
	Expect(err).NotTo(HaveOccurred())

	return api.NewRouter(api.Deps{
		Items:      items,
		Sprints:    sprints,
		Scheduler:  schedulerSvc,
		Resources:  resources,
		Signatures: signatureSvc,
		Email:      nil,
		Authz:      authzEval,
		CPUPool:    workerpool.New(),
		JWTSecret:  "test-secret",
		Logger:     logger,
	})
}

func doRequest(router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("router", func() {
	var router http.Handler

	BeforeEach(func() {
		router = newTestRouter()
	})

	It("serves /health without authentication", func() {
		rec := doRequest(router, http.MethodGet, "/health", "", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("rejects a v1 request with no bearer token", func() {
		rec := doRequest(router, http.MethodGet, "/v1/requirements/abc", "", nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("creates, fetches, and updates a requirement", func() {
		token := bearerToken("alice", []string{"contributor"})

		createRec := doRequest(router, http.MethodPost, "/v1/requirements/", token, map[string]interface{}{
			"Title":     "Support SSO login",
			"CreatedBy": "alice",
		})
		Expect(createRec.Code).To(Equal(http.StatusCreated))

		var created workitem.Snapshot
		Expect(json.Unmarshal(createRec.Body.Bytes(), &created)).To(Succeed())
		Expect(created.Type).To(Equal(workitem.TypeRequirement))

		getRec := doRequest(router, http.MethodGet, "/v1/requirements/"+created.ID, token, nil)
		Expect(getRec.Code).To(Equal(http.StatusOK))

		updateRec := doRequest(router, http.MethodPatch, "/v1/requirements/"+created.ID, token, map[string]interface{}{
			"updates":            map[string]interface{}{"status": "ready"},
			"change_description": "marked ready for review",
		})
		Expect(updateRec.Code).To(Equal(http.StatusOK))
	})

	It("denies deleting a work item without the project_lead or admin role", func() {
		token := bearerToken("alice", []string{"contributor"})

		createRec := doRequest(router, http.MethodPost, "/v1/requirements/", token, map[string]interface{}{
			"Title":     "Needs admin to delete",
			"CreatedBy": "alice",
		})
		Expect(createRec.Code).To(Equal(http.StatusCreated))
		var created workitem.Snapshot
		Expect(json.Unmarshal(createRec.Body.Bytes(), &created)).To(Succeed())

		deleteRec := doRequest(router, http.MethodDelete, "/v1/requirements/"+created.ID, token, nil)
		Expect(deleteRec.Code).To(Equal(http.StatusForbidden))
	})

	It("allows an admin to delete a work item", func() {
		token := bearerToken("root", []string{"admin"})

		createRec := doRequest(router, http.MethodPost, "/v1/requirements/", token, map[string]interface{}{
			"Title":     "Safe to delete",
			"CreatedBy": "root",
		})
		var created workitem.Snapshot
		Expect(json.Unmarshal(createRec.Body.Bytes(), &created)).To(Succeed())

		deleteRec := doRequest(router, http.MethodDelete, "/v1/requirements/"+created.ID, token, nil)
		Expect(deleteRec.Code).To(Equal(http.StatusNoContent))
	})

	It("creates a resource and matches it by skill", func() {
		token := bearerToken("alice", []string{"resource_manager"})

		createRec := doRequest(router, http.MethodPost, "/v1/resources/", token, resource.Resource{
			Name:     "Jordan Price",
			Type:     "person",
			Capacity: 40,
			Skills:   []string{"go", "postgres"},
		})
		Expect(createRec.Code).To(Equal(http.StatusCreated))

		matchRec := doRequest(router, http.MethodGet, "/v1/resources/match?skills=go", token, nil)
		Expect(matchRec.Code).To(Equal(http.StatusOK))

		var matches []resource.Match
		Expect(json.Unmarshal(matchRec.Body.Bytes(), &matches)).To(Succeed())
		Expect(matches).To(HaveLen(1))
	})

	It("runs a schedule solve through the bounded worker pool", func() {
		token := bearerToken("alice", []string{"contributor"})

		solveRec := doRequest(router, http.MethodPost, "/v1/projects/proj-1/schedule/solve", token, scheduler.Input{
			Tasks: []scheduler.Task{{ID: "t1", Title: "Design", EstimatedHours: 8}},
		})
		Expect(solveRec.Code).To(Equal(http.StatusOK))

		getRec := doRequest(router, http.MethodGet, "/v1/projects/proj-1/schedule", token, nil)
		Expect(getRec.Code).To(Equal(http.StatusOK))
	})
})
