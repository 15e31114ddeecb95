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

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	sharederrors "github.com/almforge/coreforge/pkg/shared/errors"
)

// PostgresStore persists audit events to the relational store alongside
// signature records.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertEventSQL = `
INSERT INTO audit_events (id, entity_type, entity_id, action, actor_id, timestamp, details)
VALUES (:id, :entity_type, :entity_id, :action, :actor_id, :timestamp, :details)
`

func (s *PostgresStore) RecordBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return sharederrors.DatabaseError("begin audit transaction", err)
	}
	defer tx.Rollback()

	for i := range events {
		raw, err := json.Marshal(events[i].Details)
		if err != nil {
			return sharederrors.ParseError("audit event details", "json", err)
		}
		events[i].DetailsRaw = raw

		if _, err := tx.NamedExecContext(ctx, insertEventSQL, events[i]); err != nil {
			return sharederrors.DatabaseError("insert audit event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return sharederrors.DatabaseError("commit audit transaction", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	var conditions []string
	args := map[string]interface{}{}

	if filter.EntityType != "" {
		conditions = append(conditions, "entity_type = :entity_type")
		args["entity_type"] = filter.EntityType
	}
	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = :entity_id")
		args["entity_id"] = filter.EntityID
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = :actor_id")
		args["actor_id"] = filter.ActorID
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= :since")
		args["since"] = filter.Since
	}

	query := "SELECT id, entity_type, entity_id, action, actor_id, timestamp, details FROM audit_events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	stmt, err := s.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, sharederrors.DatabaseError("prepare audit query", err)
	}
	defer stmt.Close()

	var rows []Event
	if err := stmt.SelectContext(ctx, &rows, args); err != nil {
		return nil, sharederrors.DatabaseError("query audit events", err)
	}

	for i := range rows {
		if len(rows[i].DetailsRaw) > 0 {
			_ = json.Unmarshal(rows[i].DetailsRaw, &rows[i].Details)
		}
	}
	return rows, nil
}

var _ Store = (*PostgresStore)(nil)
