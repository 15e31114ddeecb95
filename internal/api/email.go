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

	"github.com/almforge/coreforge/pkg/email"
)

// sendEmailComment composes and sends the outbound work-instruction email
// for a work item to the given recipients (POST /v1/work-items/{id}/comments).
func (h *handlers) sendEmailComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.Items.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var body struct {
		Recipients []string `json:"recipients"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}

	msg, err := h.Email.SendWorkInstruction(r.Context(), &email.WorkItem{ID: snap.ID, Title: snap.Title, Extra: snap.Extra}, body.Recipients)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
