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

package main

import (
	"context"

	"github.com/almforge/coreforge/pkg/email"
	"github.com/almforge/coreforge/pkg/workitem"
)

// workItemAdapter satisfies email.WorkItemUpdater over the versioned
// work-item store, translating between workitem.Snapshot and the email
// package's narrower WorkItem view, and folding a parsed reply's status
// and free-form fields into one UpdateInput.
type workItemAdapter struct {
	store *workitem.Store
}

func (a workItemAdapter) Get(ctx context.Context, id string) (*email.WorkItem, error) {
	snap, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &email.WorkItem{ID: snap.ID, Title: snap.Title, Extra: snap.Extra}, nil
}

func (a workItemAdapter) Update(ctx context.Context, id string, updates map[string]interface{}, changeDescription, updatedBy string) error {
	_, err := a.store.Update(ctx, id, workitem.UpdateInput{
		Updates:           updates,
		ChangeDescription: changeDescription,
		UpdatedBy:         updatedBy,
	})
	return err
}

var _ email.WorkItemUpdater = workItemAdapter{}
