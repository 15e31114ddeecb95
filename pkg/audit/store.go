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

import "context"

// Store persists and retrieves audit events. Implementations must treat
// RecordBatch as an all-or-nothing write, so a batch that BufferedStore
// gives up on leaves no partial rows behind; BufferedStore does not
// retry a failed batch.
type Store interface {
	RecordBatch(ctx context.Context, events []Event) error
	Query(ctx context.Context, filter Filter) ([]Event, error)
}
