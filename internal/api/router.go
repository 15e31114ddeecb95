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

// Package api wires the versioned work-item store, sprint coordinator,
// scheduler, resource/milestone coordinator, signature service, and email
// service behind the illustrative REST surface of spec.md §6. Handlers
// translate *internal/errors.AppError into the matching HTTP status and
// never leak a raw internal error message to the client.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/almforge/coreforge/pkg/authz"
	"github.com/almforge/coreforge/pkg/email"
	"github.com/almforge/coreforge/pkg/resource"
	"github.com/almforge/coreforge/pkg/scheduler"
	"github.com/almforge/coreforge/pkg/signature"
	"github.com/almforge/coreforge/pkg/sprint"
	"github.com/almforge/coreforge/pkg/workerpool"
	"github.com/almforge/coreforge/pkg/workitem"
)

// Deps is every service the router dispatches to. Constructed once in
// cmd/almserver and handed to NewRouter.
type Deps struct {
	Items      *workitem.Store
	Sprints    *sprint.Coordinator
	Scheduler  *scheduler.Service
	Resources  *resource.Coordinator
	Signatures *signature.Service
	Email      *email.Service
	Authz      *authz.Evaluator
	CPUPool    *workerpool.Pool
	JWTSecret  string
	Logger     *zap.Logger
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &handlers{Deps: d}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(authenticate(d.JWTSecret))

		v1.Route("/requirements", func(wr chi.Router) {
			wr.Post("/", h.createWorkItem(workitem.TypeRequirement))
			wr.Get("/", h.searchWorkItems(workitem.TypeRequirement))
			wr.Get("/{id}", h.getWorkItem)
			wr.Patch("/{id}", h.updateWorkItem)
			wr.Delete("/{id}", h.deleteWorkItem)
		})

		v1.Route("/risks", func(wr chi.Router) {
			wr.Post("/", h.createWorkItem(workitem.TypeRisk))
			wr.Get("/", h.searchWorkItems(workitem.TypeRisk))
			wr.Get("/{id}", h.getWorkItem)
			wr.Patch("/{id}", h.updateWorkItem)
		})

		v1.Route("/test-specs", func(wr chi.Router) {
			wr.Post("/", h.createWorkItem(workitem.TypeTestSpec))
			wr.Get("/{id}", h.getWorkItem)
			wr.Patch("/{id}", h.updateWorkItem)
		})

		v1.Route("/test-runs", func(wr chi.Router) {
			wr.Post("/", h.createWorkItem(workitem.TypeTestRun))
			wr.Get("/{id}", h.getWorkItem)
			wr.Patch("/{id}", h.updateWorkItem)
		})

		v1.Route("/work-items/{id}/comments", func(wr chi.Router) {
			wr.Post("/", h.sendEmailComment)
		})

		v1.Route("/signatures", func(wr chi.Router) {
			wr.Post("/", h.sign)
			wr.Get("/{id}/verify", h.verifySignature)
			wr.Post("/{id}/invalidate", h.invalidateSignatures)
		})

		v1.Route("/sprints", func(wr chi.Router) {
			wr.Post("/", h.createSprint)
			wr.Get("/{id}", h.getSprint)
			wr.Delete("/{id}", h.deleteSprint)
			wr.Post("/{id}/start", h.startSprint)
			wr.Post("/{id}/complete", h.completeSprint)
			wr.Post("/{id}/tasks/{tid}", h.assignTask)
			wr.Delete("/{id}/tasks/{tid}", h.removeTask)
			wr.Get("/{id}/velocity", h.sprintVelocity)
			wr.Get("/{id}/burndown", h.sprintBurndown)
		})

		v1.Route("/projects/{pid}/sprints", func(wr chi.Router) {
			wr.Post("/", h.createProjectSprint)
		})

		v1.Route("/projects/{pid}/velocity", func(wr chi.Router) {
			wr.Get("/", h.teamAvgVelocity)
			wr.Get("/history", h.teamAvgVelocity)
		})

		v1.Route("/projects/{pid}/schedule", func(wr chi.Router) {
			wr.Post("/solve", h.solveSchedule)
			wr.Get("/", h.getSchedule)
		})

		v1.Route("/resources", func(wr chi.Router) {
			wr.Post("/", h.createResource)
			wr.Post("/{id}/allocate", h.allocateResource)
			wr.Get("/match", h.matchSkills)
		})

		v1.Route("/milestones", func(wr chi.Router) {
			wr.Post("/", h.createMilestone)
			wr.Post("/{id}/depends-on/{taskID}", h.addMilestoneDependency)
			wr.Post("/{id}/before/{otherID}", h.addMilestoneBefore)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// requireRole evaluates action against the caller's principal and writes
// a 403 if authz.Evaluator denies it. Returns false when the request has
// already been answered.
func (h *handlers) requireRole(w http.ResponseWriter, r *http.Request, action, resourceID string) bool {
	p := principalFromContext(r.Context())
	decision, err := h.Authz.Evaluate(r.Context(), authz.Request{
		Subject:  p.Subject,
		Action:   action,
		Resource: resourceID,
		Roles:    p.Roles,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "authorization check failed")
		return false
	}
	if !decision.Allowed {
		writeError(w, http.StatusForbidden, "permission denied")
		return false
	}
	return true
}
