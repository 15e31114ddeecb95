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

	"github.com/almforge/coreforge/pkg/signature"
)

func (h *handlers) sign(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "signature:create", "") {
		return
	}

	var body struct {
		WorkItemID      string `json:"work_item_id"`
		WorkItemVersion string `json:"work_item_version"`
		PrivateKeyPEM   string `json:"private_key_pem"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed request body")
		return
	}

	snap, err := h.Items.GetVersion(r.Context(), body.WorkItemID, body.WorkItemVersion)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var rec *signature.Record
	err = h.CPUPool.Run(r.Context(), func() error {
		var signErr error
		rec, signErr = h.Signatures.Sign(r.Context(), body.WorkItemID, body.WorkItemVersion, snap, principalFromContext(r.Context()).Subject, body.PrivateKeyPEM)
		return signErr
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handlers) verifySignature(w http.ResponseWriter, r *http.Request) {
	publicKeyPEM := r.URL.Query().Get("public_key_pem")
	workItemID := r.URL.Query().Get("work_item_id")
	version := r.URL.Query().Get("work_item_version")

	snap, err := h.Items.GetVersion(r.Context(), workItemID, version)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var result signature.VerifyResult
	err = h.CPUPool.Run(r.Context(), func() error {
		var verifyErr error
		result, verifyErr = h.Signatures.Verify(r.Context(), chi.URLParam(r, "id"), snap, publicKeyPEM)
		return verifyErr
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) invalidateSignatures(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, "signature:invalidate", chi.URLParam(r, "id")) {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = decodeJSON(r, &body)

	ids, err := h.Signatures.Invalidate(r.Context(), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invalidated_ids": ids})
}
