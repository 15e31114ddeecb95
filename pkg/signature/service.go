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

package signature

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/almforge/coreforge/internal/errors"
	"github.com/almforge/coreforge/pkg/audit"
	appcrypto "github.com/almforge/coreforge/pkg/crypto"
	"github.com/almforge/coreforge/pkg/metrics"
)

// Service signs, verifies, and invalidates work-item signatures. It
// satisfies workitem.SignatureInvalidator so C3 can call Invalidate and
// IsSigned without importing this package's concrete types.
type Service struct {
	repo     Repository
	auditLog AuditRecorder
}

// AuditRecorder is the narrow audit-writer contract this service emits
// events through.
type AuditRecorder interface {
	Record(event audit.Event)
}

func NewService(repo Repository, auditLog AuditRecorder) *Service {
	return &Service{repo: repo, auditLog: auditLog}
}

// Sign computes content_hash = canonical_hash(snapshot), signs it with
// privateKeyPEM, persists the record as valid, and emits an audit event.
func (s *Service) Sign(ctx context.Context, workItemID, workItemVersion string, snapshot interface{}, userID, privateKeyPEM string) (*Record, error) {
	timer := metrics.NewTimer()
	defer timer.RecordWorkItemOperation("signature_sign")

	contentHash, err := appcrypto.CanonicalHash(snapshot)
	if err != nil {
		metrics.RecordWorkItemOperationError("signature_sign", "hash")
		return nil, err
	}

	signatureHash, err := appcrypto.Sign(contentHash, privateKeyPEM)
	if err != nil {
		metrics.RecordWorkItemOperationError("signature_sign", "crypto")
		return nil, err
	}

	rec := &Record{
		ID:              uuid.NewString(),
		WorkItemID:      workItemID,
		WorkItemVersion: workItemVersion,
		UserID:          userID,
		ContentHash:     contentHash,
		SignatureHash:   signatureHash,
		SignedAt:        time.Now().UTC(),
		IsValid:         true,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		metrics.RecordWorkItemOperationError("signature_sign", "store")
		return nil, err
	}

	s.emitAudit(workItemID, "signed", userID, map[string]interface{}{
		"signature_id":     rec.ID,
		"workitem_version": workItemVersion,
	})
	return rec, nil
}

// Verify re-derives the outcome tuple for signatureID against
// currentSnapshot, per the precedence rules: not-found beats everything;
// an already-invalidated signature reports its recorded reason; a content
// mismatch still attempts the cryptographic check so signature_intact is
// meaningful on its own.
func (s *Service) Verify(ctx context.Context, signatureID string, currentSnapshot interface{}, publicKeyPEM string) (VerifyResult, error) {
	timer := metrics.NewTimer()
	defer timer.RecordWorkItemOperation("signature_verify")

	rec, err := s.repo.Get(ctx, signatureID)
	if err != nil {
		if appErrors.GetType(err) == appErrors.ErrorTypeNotFound {
			return VerifyResult{Error: "Signature not found"}, nil
		}
		metrics.RecordWorkItemOperationError("signature_verify", "store")
		return VerifyResult{}, err
	}

	if !rec.IsValid {
		return VerifyResult{
			Error: fmt.Sprintf("Signature invalidated: %s", rec.InvalidationReason),
		}, nil
	}

	currentHash, err := appcrypto.CanonicalHash(currentSnapshot)
	if err != nil {
		metrics.RecordWorkItemOperationError("signature_verify", "hash")
		return VerifyResult{}, err
	}

	contentMatches := currentHash == rec.ContentHash
	signatureIntact := appcrypto.Verify(rec.ContentHash, rec.SignatureHash, publicKeyPEM)

	return VerifyResult{
		IsValid:         contentMatches && signatureIntact,
		ContentMatches:  contentMatches,
		SignatureIntact: signatureIntact,
	}, nil
}

// Invalidate transitions every valid signature on workItemID to invalid.
// Idempotent: a work item with no valid signatures returns an empty slice.
func (s *Service) Invalidate(ctx context.Context, workItemID, reason string) ([]string, error) {
	ids, err := s.repo.InvalidateAll(ctx, workItemID, reason)
	if err != nil {
		metrics.RecordWorkItemOperationError("signature_invalidate", "store")
		return nil, err
	}
	if len(ids) > 0 {
		s.emitAudit(workItemID, "signature_invalidated", "system", map[string]interface{}{
			"reason":          reason,
			"invalidated_ids": ids,
		})
	}
	return ids, nil
}

// IsSigned reports whether workItemID has any currently-valid signature.
func (s *Service) IsSigned(ctx context.Context, workItemID string) (bool, error) {
	recs, err := s.repo.ForWorkItem(ctx, workItemID, false)
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

// SignaturesFor returns the signature history for a work item, newest
// first per Repository.ForWorkItem's ordering.
func (s *Service) SignaturesFor(ctx context.Context, workItemID string, includeInvalid bool) ([]*Record, error) {
	return s.repo.ForWorkItem(ctx, workItemID, includeInvalid)
}

func (s *Service) emitAudit(workItemID, action, actorID string, details map[string]interface{}) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.Record(audit.Event{
		ID:         uuid.NewString(),
		EntityType: "signature",
		EntityID:   workItemID,
		Action:     action,
		ActorID:    actorID,
		Timestamp:  time.Now().UTC(),
		Details:    details,
	})
}
