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

// Package workerpool bounds CPU-bound work (schedule solving, signature
// sign/verify, canonical hashing) to GOMAXPROCS concurrent goroutines so
// a burst of requests cannot starve the HTTP server's I/O-bound work.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool runs CPU-bound closures under a fixed concurrency limit.
type Pool struct {
	sem *semaphore.Weighted
}

// New returns a Pool sized at GOMAXPROCS.
func New() *Pool {
	return &Pool{sem: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))}
}

// Run acquires a slot, runs fn, and releases the slot. It returns ctx.Err()
// without running fn if ctx is canceled before a slot becomes free.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
