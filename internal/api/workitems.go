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

	"github.com/go-chi/chi/v5"

	"github.com/almforge/coreforge/pkg/workitem"
)

type handlers struct {
	Deps
}

func (h *handlers) createWorkItem(t workitem.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in workitem.CreateInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "malformed request body")
			return
		}
		in.Type = t
		in.CreatedBy = principalFromContext(r.Context()).Subject

		snap, err := h.Items.Create(r.Context(), in)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

func (h *handlers) getWorkItem(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) updateWorkItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Updates           map[string]interface{} `json:"updates"`
		ChangeDescription string                  `json:"change_description"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	if cd := r.URL.Query().Get("change_description"); cd != "" {
		body.ChangeDescription = cd
	}

	snap, err := h.Items.Update(r.Context(), chi.URLParam(r, "id"), workitem.UpdateInput{
		Updates:           body.Updates,
		ChangeDescription: body.ChangeDescription,
		UpdatedBy:         principalFromContext(r.Context()).Subject,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) deleteWorkItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "work_item:delete", chi.URLParam(r, "id")) {
		return
	}
	force := r.URL.Query().Get("force") == "true"
	if err := h.Items.Delete(r.Context(), chi.URLParam(r, "id"), principalFromContext(r.Context()).Subject, force); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) searchWorkItems(t workitem.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := h.Items.Search(r.Context(), workitem.SearchFilter{
			Type: t,
			Text: r.URL.Query().Get("q"),
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}
