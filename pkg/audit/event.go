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

// Package audit records who changed what, tying every mutation of a work
// item, signature, sprint, or resource allocation to an actor and a
// timestamp. Writes are buffered and flushed asynchronously so a slow or
// unavailable audit store never blocks the operation being audited.
package audit

import "time"

// Event is one audited state change.
type Event struct {
	ID         string                 `db:"id"`
	EntityType string                 `db:"entity_type"`
	EntityID   string                 `db:"entity_id"`
	Action     string                 `db:"action"`
	ActorID    string                 `db:"actor_id"`
	Timestamp  time.Time              `db:"timestamp"`
	Details    map[string]interface{} `db:"-"`
	DetailsRaw []byte                 `db:"details"`
}

// Filter narrows a Query to a subset of recorded events.
type Filter struct {
	EntityType string
	EntityID   string
	ActorID    string
	Since      time.Time
	Limit      int
}
