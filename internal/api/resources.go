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
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/almforge/coreforge/pkg/resource"
)

func (h *handlers) createResource(w http.ResponseWriter, r *http.Request) {
	var in resource.Resource
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	res, err := h.Resources.CreateResource(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handlers) allocateResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.requireRole(w, r, "resource:allocate", id) {
		return
	}

	var body struct {
		TargetID   string                  `json:"target_id"`
		Kind       resource.AllocationKind `json:"kind"`
		Percentage float64                 `json:"allocation_percentage"`
		Lead       bool                    `json:"lead"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}

	if err := h.Resources.Allocate(r.Context(), id, body.TargetID, body.Kind, body.Percentage, body.Lead); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) matchSkills(w http.ResponseWriter, r *http.Request) {
	var skills, departments []string
	if v := r.URL.Query().Get("skills"); v != "" {
		skills = strings.Split(v, ",")
	}
	if v := r.URL.Query().Get("departments"); v != "" {
		departments = strings.Split(v, ",")
	}

	matches, err := h.Resources.MatchSkills(r.Context(), skills, departments)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *handlers) createMilestone(w http.ResponseWriter, r *http.Request) {
	var in resource.Milestone
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	m, err := h.Resources.CreateMilestone(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handlers) addMilestoneDependency(w http.ResponseWriter, r *http.Request) {
	if err := h.Resources.AddDependency(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "taskID")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) addMilestoneBefore(w http.ResponseWriter, r *http.Request) {
	if err := h.Resources.AddBefore(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "otherID")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
