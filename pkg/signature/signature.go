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

// Package signature implements the digital signature engine (C4): sign a
// work-item snapshot, verify it, invalidate every valid signature on a
// work item, and answer is_signed/history queries. The relational store
// backing signature records lives behind the Repository interface so this
// package stays testable without a database.
package signature

import "time"

// Record is one persisted signature row.
type Record struct {
	ID                 string     `db:"id"`
	WorkItemID         string     `db:"workitem_id"`
	WorkItemVersion    string     `db:"workitem_version"`
	UserID             string     `db:"user_id"`
	ContentHash        string     `db:"content_hash"`
	SignatureHash      string     `db:"signature_hash"`
	SignedAt           time.Time  `db:"signed_at"`
	IsValid            bool       `db:"is_valid"`
	InvalidatedAt      *time.Time `db:"invalidated_at"`
	InvalidationReason string     `db:"invalidation_reason"`
}

// VerifyResult is the outcome tuple of Verify.
type VerifyResult struct {
	IsValid         bool   `json:"is_valid"`
	ContentMatches  bool   `json:"content_matches"`
	SignatureIntact bool   `json:"signature_intact"`
	Error           string `json:"error,omitempty"`
}
