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

// Package lock provides the distributed mutual-exclusion primitive the
// sprint coordinator uses to hold "at most one active sprint per project"
// and "one writer per work item" invariants across concurrent requests.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotHeld is returned by Unlock when the caller's token does not match
// (or no longer matches) the current holder — the lock already expired or
// was released by someone else.
var ErrNotHeld = errors.New("lock: not held by this token")

// Locker is a distributed mutual-exclusion primitive keyed by an arbitrary
// string (a project ID, a work item ID). TryLock is non-blocking:
// implementations never wait for a contended key, since callers decide
// their own retry/backoff policy.
type Locker interface {
	// TryLock attempts to acquire key for ttl. ok is false if key is
	// already held by someone else. token identifies this holder and must
	// be passed to Unlock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}
