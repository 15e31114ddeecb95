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
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/almforge/coreforge/internal/errors"
)

// PostgresRepository persists signature records to the relational store
// keyed by (id), with indexes on workitem_id and (workitem_id, is_valid)
// (see internal/database/migrations).
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertSignatureSQL = `
INSERT INTO signatures (id, workitem_id, workitem_version, user_id, content_hash, signature_hash, signed_at, is_valid, invalidated_at, invalidation_reason)
VALUES (:id, :workitem_id, :workitem_version, :user_id, :content_hash, :signature_hash, :signed_at, :is_valid, :invalidated_at, :invalidation_reason)
`

func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) error {
	if _, err := r.db.NamedExecContext(ctx, insertSignatureSQL, rec); err != nil {
		return appErrors.NewDatabaseError("insert signature", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM signatures WHERE id = $1`, id)
	if err != nil {
		return nil, appErrors.NewDatabaseError("get signature", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) ForWorkItem(ctx context.Context, workItemID string, includeInvalid bool) ([]*Record, error) {
	query := `SELECT * FROM signatures WHERE workitem_id = $1`
	if !includeInvalid {
		query += ` AND is_valid = TRUE`
	}
	query += ` ORDER BY signed_at DESC`

	var recs []*Record
	if err := r.db.SelectContext(ctx, &recs, query, workItemID); err != nil {
		return nil, appErrors.NewDatabaseError("list signatures for work item", err)
	}
	return recs, nil
}

func (r *PostgresRepository) InvalidateAll(ctx context.Context, workItemID, reason string) ([]string, error) {
	now := time.Now().UTC()

	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT id FROM signatures WHERE workitem_id = $1 AND is_valid = TRUE`, workItemID)
	if err != nil {
		return nil, appErrors.NewDatabaseError("select signatures to invalidate", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE signatures SET is_valid = FALSE, invalidated_at = $1, invalidation_reason = $2 WHERE workitem_id = $3 AND is_valid = TRUE`,
		now, reason, workItemID)
	if err != nil {
		return nil, appErrors.NewDatabaseError("invalidate signatures", err)
	}
	return ids, nil
}

var _ Repository = (*PostgresRepository)(nil)
