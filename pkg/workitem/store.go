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

package workitem

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/almforge/coreforge/internal/errors"
	"github.com/almforge/coreforge/pkg/audit"
	"github.com/almforge/coreforge/pkg/graph"
	"github.com/almforge/coreforge/pkg/metrics"
)

// SignatureInvalidator is the narrow slice of the signature service (C4)
// that C3 calls on every mutation. Defined here, on the consumer side, so
// pkg/workitem depends on a two-method contract rather than the whole of
// pkg/signature.
type SignatureInvalidator interface {
	Invalidate(ctx context.Context, workItemID, reason string) (invalidatedIDs []string, err error)
	IsSigned(ctx context.Context, workItemID string) (bool, error)
}

// AuditRecorder is the narrow audit-writer contract C3 emits events
// through; satisfied by *audit.BufferedStore (non-blocking) or any other
// Record-based writer.
type AuditRecorder interface {
	Record(event audit.Event)
}

// Store is the versioned work-item store (C3).
type Store struct {
	graph       graph.Executor
	signatures  SignatureInvalidator
	auditLog    AuditRecorder
}

func NewStore(g graph.Executor, signatures SignatureInvalidator, auditLog AuditRecorder) *Store {
	return &Store{graph: g, signatures: signatures, auditLog: auditLog}
}

// Create validates in, assigns id/version 1.0, persists the first
// snapshot, and emits an audit event.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Snapshot, error) {
	timer := metrics.NewTimer()
	defer timer.RecordWorkItemOperation("create")

	if err := validateCreateInput(in); err != nil {
		metrics.RecordWorkItemOperationError("create", "validation")
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = "draft"
	}

	now := time.Now().UTC()
	snap := &Snapshot{
		ID:                 uuid.NewString(),
		Type:               in.Type,
		Title:              in.Title,
		Description:        in.Description,
		Status:             status,
		Priority:           in.Priority,
		AssignedTo:         in.AssignedTo,
		Version:            "1.0",
		CreatedBy:          in.CreatedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
		AcceptanceCriteria: in.AcceptanceCriteria,
		EstimatedHours:     in.EstimatedHours,
		StoryPoints:        in.StoryPoints,
		SkillsNeeded:       in.SkillsNeeded,
		Severity:           in.Severity,
		Occurrence:         in.Occurrence,
		Detection:          in.Detection,
		Extra:              in.Extra,
	}
	snap.RPN = computeRPN(snap.Severity, snap.Occurrence, snap.Detection)

	props, err := toProps(snap)
	if err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrorTypeInternal, "encode work item snapshot")
	}
	if _, err := s.graph.CreateNode(ctx, NodeLabel, props); err != nil {
		metrics.RecordWorkItemOperationError("create", string(appErrors.GetType(err)))
		return nil, err
	}
	metrics.RecordWorkItemProcessed()

	s.emitAudit(snap.ID, "create", in.CreatedBy, map[string]interface{}{"type": string(snap.Type)})
	return snap, nil
}

// Get returns the current version: the snapshot with no outgoing
// NEXT_VERSION edge.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	nodes, err := s.graph.FindNodes(ctx, NodeLabel, func(n *graph.Node) bool {
		wid, _ := n.Props["workitem_id"].(string)
		return wid == id
	})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("work item %s", id))
	}

	for _, n := range nodes {
		rels, err := s.graph.Relationships(ctx, graph.RelationshipFilter{From: nodeID(id, versionOf(n)), Type: "NEXT_VERSION"})
		if err != nil {
			return nil, err
		}
		if len(rels) == 0 {
			return fromProps(n.Props)
		}
	}
	// Every snapshot has an outgoing edge — a broken chain invariant.
	return nil, appErrors.NewValidationError(fmt.Sprintf("work item %s has no current version (broken version chain)", id))
}

// GetVersion returns a specific historical snapshot.
func (s *Store) GetVersion(ctx context.Context, id, version string) (*Snapshot, error) {
	n, err := s.graph.GetNode(ctx, nodeID(id, version))
	if err != nil {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("work item %s version %s", id, version))
	}
	return fromProps(n.Props)
}

// History returns every snapshot of id, newest-first by (MAJOR, MINOR).
func (s *Store) History(ctx context.Context, id string) ([]*Snapshot, error) {
	nodes, err := s.graph.FindNodes(ctx, NodeLabel, func(n *graph.Node) bool {
		wid, _ := n.Props["workitem_id"].(string)
		return wid == id
	})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("work item %s", id))
	}

	snaps := make([]*Snapshot, 0, len(nodes))
	for _, n := range nodes {
		snap, err := fromProps(n.Props)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		im, in := parseVersion(snaps[i].Version)
		jm, jn := parseVersion(snaps[j].Version)
		if im != jm {
			return im > jm
		}
		return in > jn
	})
	return snaps, nil
}

// Update loads the current snapshot, shallow-merges the sparse updates,
// persists a new version, invalidates all valid signatures, and audits the
// updated field set.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*Snapshot, error) {
	timer := metrics.NewTimer()
	defer timer.RecordWorkItemOperation("update")

	if err := validateChangeDescription(in.ChangeDescription); err != nil {
		metrics.RecordWorkItemOperationError("update", "validation")
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		metrics.RecordWorkItemOperationError("update", "not_found")
		return nil, err
	}

	next, err := applyUpdate(current, in)
	if err != nil {
		return nil, err
	}

	if err := s.persistNewVersion(ctx, current, next); err != nil {
		return nil, err
	}

	if s.signatures != nil {
		if _, err := s.signatures.Invalidate(ctx, id, "WorkItem modified"); err != nil {
			return nil, appErrors.Wrapf(err, appErrors.ErrorTypeInternal, "invalidate signatures after update")
		}
	}

	updatedFields := make([]string, 0, len(in.Updates))
	for k := range in.Updates {
		updatedFields = append(updatedFields, k)
	}
	sort.Strings(updatedFields)
	s.emitAudit(id, "update", in.UpdatedBy, map[string]interface{}{"updated_fields": updatedFields})

	return next, nil
}

// Delete refuses a work item with a valid signature unless force=true.
func (s *Store) Delete(ctx context.Context, id, actorID string, force bool) error {
	timer := metrics.NewTimer()
	defer timer.RecordWorkItemOperation("delete")

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !force && s.signatures != nil {
		signed, err := s.signatures.IsSigned(ctx, id)
		if err != nil {
			return err
		}
		if signed {
			metrics.RecordWorkItemOperationError("delete", "conflict")
			return appErrors.NewConflictError("work item has a valid signature; pass force=true to delete anyway")
		}
	}

	nodes, err := s.graph.FindNodes(ctx, NodeLabel, func(n *graph.Node) bool {
		wid, _ := n.Props["workitem_id"].(string)
		return wid == id
	})
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := s.graph.DeleteNode(ctx, n.ID); err != nil {
			return err
		}
	}

	s.emitAudit(id, "delete", actorID, map[string]interface{}{"version": current.Version, "force": force})
	return nil
}

// Search filters current-version snapshots.
func (s *Store) Search(ctx context.Context, filter SearchFilter) ([]*Snapshot, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	nodes, err := s.graph.FindNodes(ctx, NodeLabel, func(n *graph.Node) bool {
		wid, _ := n.Props["workitem_id"].(string)
		return wid != ""
	})
	if err != nil {
		return nil, err
	}

	var results []*Snapshot
	seen := map[string]bool{}
	for _, n := range nodes {
		wid, _ := n.Props["workitem_id"].(string)
		if seen[wid] {
			continue
		}
		// Only the current version (no outgoing NEXT_VERSION) participates.
		rels, err := s.graph.Relationships(ctx, graph.RelationshipFilter{From: n.ID, Type: "NEXT_VERSION"})
		if err != nil {
			return nil, err
		}
		if len(rels) > 0 {
			continue
		}
		seen[wid] = true

		snap, err := fromProps(n.Props)
		if err != nil {
			return nil, err
		}
		if !matchesSearchFilter(snap, filter) {
			metrics.RecordWorkItemFiltered("search")
			continue
		}
		results = append(results, snap)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })

	start := filter.Offset
	if start > len(results) {
		start = len(results)
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], nil
}

// Compare diffs two versions of the same work item field by field.
func (s *Store) Compare(ctx context.Context, id, versionA, versionB string) (*CompareResult, error) {
	a, err := s.GetVersion(ctx, id, versionA)
	if err != nil {
		return nil, err
	}
	b, err := s.GetVersion(ctx, id, versionB)
	if err != nil {
		return nil, err
	}

	am, err := toMap(a)
	if err != nil {
		return nil, err
	}
	bm, err := toMap(b)
	if err != nil {
		return nil, err
	}

	result := &CompareResult{ChangedFields: map[string]FieldDiff{}}
	for k, av := range am {
		bv, ok := bm[k]
		if !ok {
			result.RemovedFields = append(result.RemovedFields, k)
			continue
		}
		if fmt.Sprint(av) != fmt.Sprint(bv) {
			result.ChangedFields[k] = FieldDiff{From: av, To: bv}
		} else {
			result.UnchangedFields = append(result.UnchangedFields, k)
		}
	}
	for k := range bm {
		if _, ok := am[k]; !ok {
			result.AddedFields = append(result.AddedFields, k)
		}
	}

	sort.Strings(result.UnchangedFields)
	sort.Strings(result.AddedFields)
	sort.Strings(result.RemovedFields)
	return result, nil
}

// Restore writes the target version's content as a brand new version on
// top of current.
func (s *Store) Restore(ctx context.Context, id, targetVersion, userID string) (*Snapshot, error) {
	target, err := s.GetVersion(ctx, id, targetVersion)
	if err != nil {
		return nil, err
	}

	updates, err := toMap(target)
	if err != nil {
		return nil, err
	}
	delete(updates, "id")
	delete(updates, "version")
	delete(updates, "created_at")
	delete(updates, "created_by")

	return s.Update(ctx, id, UpdateInput{
		Updates:           updates,
		ChangeDescription: fmt.Sprintf("Restored to version %s", targetVersion),
		UpdatedBy:         userID,
	})
}

func (s *Store) persistNewVersion(ctx context.Context, current, next *Snapshot) error {
	props, err := toProps(next)
	if err != nil {
		return appErrors.Wrapf(err, appErrors.ErrorTypeInternal, "encode work item snapshot")
	}
	if _, err := s.graph.CreateNode(ctx, NodeLabel, props); err != nil {
		return err
	}
	return s.graph.CreateRelationship(ctx, nodeID(current.ID, current.Version), nodeID(next.ID, next.Version), "NEXT_VERSION", nil)
}

func (s *Store) emitAudit(entityID, action, actorID string, details map[string]interface{}) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.Record(audit.Event{
		ID:         uuid.NewString(),
		EntityType: "work_item",
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Timestamp:  time.Now().UTC(),
		Details:    details,
	})
}

func applyUpdate(current *Snapshot, in UpdateInput) (*Snapshot, error) {
	merged, err := toMap(current)
	if err != nil {
		return nil, err
	}
	for k, v := range in.Updates {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrorTypeInternal, "merge work item update")
	}
	next := &Snapshot{}
	if err := json.Unmarshal(raw, next); err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrorTypeInternal, "decode merged work item")
	}

	next.Version = nextVersion(current.Version)
	next.UpdatedAt = time.Now().UTC()
	next.UpdatedBy = in.UpdatedBy
	next.ChangeDescription = in.ChangeDescription
	next.RPN = computeRPN(next.Severity, next.Occurrence, next.Detection)
	return next, nil
}

func matchesSearchFilter(snap *Snapshot, f SearchFilter) bool {
	if f.Type != "" && snap.Type != f.Type {
		return false
	}
	if f.Status != "" && snap.Status != f.Status {
		return false
	}
	if f.Priority != nil && (snap.Priority == nil || *snap.Priority != *f.Priority) {
		return false
	}
	if f.AssignedTo != "" && snap.AssignedTo != f.AssignedTo {
		return false
	}
	if f.CreatedBy != "" && snap.CreatedBy != f.CreatedBy {
		return false
	}
	if f.HasAcceptanceCriteria != nil {
		has := strings.TrimSpace(snap.AcceptanceCriteria) != ""
		if has != *f.HasAcceptanceCriteria {
			return false
		}
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		haystack := strings.ToLower(snap.Title + " " + snap.Description + " " + snap.AcceptanceCriteria)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func nodeID(workItemID, version string) string {
	return workItemID + "@" + version
}

func versionOf(n *graph.Node) string {
	v, _ := n.Props["version"].(string)
	return v
}

func toProps(snap *Snapshot) (map[string]interface{}, error) {
	m, err := toMap(snap)
	if err != nil {
		return nil, err
	}
	// The graph node's own unique id is "<workitem-id>@<version>"; the
	// logical work-item id that repeats across every version of its chain
	// moves to "workitem_id" so it survives fromProps' round trip.
	m["workitem_id"] = snap.ID
	m["id"] = nodeID(snap.ID, snap.Version)
	return m, nil
}

func fromProps(props map[string]interface{}) (*Snapshot, error) {
	clean := make(map[string]interface{}, len(props))
	for k, v := range props {
		clean[k] = v
	}
	if wid, ok := clean["workitem_id"]; ok {
		clean["id"] = wid
	}
	delete(clean, "workitem_id")

	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrorTypeInternal, "encode props")
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrorTypeInternal, "decode work item snapshot")
	}
	return snap, nil
}

func toMap(snap *Snapshot) (map[string]interface{}, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
