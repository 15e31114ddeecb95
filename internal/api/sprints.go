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

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/almforge/coreforge/pkg/sprint"
)

func (h *handlers) createSprint(w http.ResponseWriter, r *http.Request) {
	h.createSprintFor(w, r, "")
}

func (h *handlers) createProjectSprint(w http.ResponseWriter, r *http.Request) {
	h.createSprintFor(w, r, chi.URLParam(r, "pid"))
}

func (h *handlers) createSprintFor(w http.ResponseWriter, r *http.Request, pathProjectID string) {
	var in sprint.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if pathProjectID != "" {
		in.ProjectID = pathProjectID
	}

	s, err := h.Sprints.CreateSprint(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *handlers) getSprint(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sprints.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) startSprint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.requireRole(w, r, "sprint:start", id) {
		return
	}
	s, err := h.Sprints.StartSprint(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) completeSprint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.requireRole(w, r, "sprint:close", id) {
		return
	}
	var body struct {
		BacklogID string `json:"backlog_id"`
	}
	_ = decodeJSON(r, &body)

	s, err := h.Sprints.CompleteSprint(r.Context(), id, body.BacklogID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) deleteSprint(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BacklogID string `json:"backlog_id"`
	}
	_ = decodeJSON(r, &body)

	if err := h.Sprints.DeleteSprint(r.Context(), chi.URLParam(r, "id"), body.BacklogID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) assignTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Sprints.AssignTask(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tid")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) removeTask(w http.ResponseWriter, r *http.Request) {
	backlogID := r.URL.Query().Get("backlog_id")
	returnToBacklog := r.URL.Query().Get("return_to_backlog") != "false"

	if err := h.Sprints.RemoveTask(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tid"), backlogID, returnToBacklog); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) sprintVelocity(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sprints.Velocity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handlers) sprintBurndown(w http.ResponseWriter, r *http.Request) {
	points, err := h.Sprints.Burndown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *handlers) teamAvgVelocity(w http.ResponseWriter, r *http.Request) {
	n := 5
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}
	v, err := h.Sprints.TeamAvgVelocity(r.Context(), chi.URLParam(r, "pid"), n)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
