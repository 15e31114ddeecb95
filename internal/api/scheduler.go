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

	"github.com/almforge/coreforge/pkg/scheduler"
)

func (h *handlers) solveSchedule(w http.ResponseWriter, r *http.Request) {
	var in scheduler.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}
	in.ProjectID = chi.URLParam(r, "pid")

	var sched *scheduler.Schedule
	err := h.CPUPool.Run(r.Context(), func() error {
		var solveErr error
		sched, solveErr = h.Scheduler.Solve(r.Context(), in)
		return solveErr
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (h *handlers) getSchedule(w http.ResponseWriter, r *http.Request) {
	sched, ok := h.Scheduler.Get(chi.URLParam(r, "pid"))
	if !ok {
		writeError(w, http.StatusNotFound, "no schedule computed for this project yet")
		return
	}
	writeJSON(w, http.StatusOK, sched)
}
