// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the job store abstraction for docmill.
//
// This package defines the repository interface that decouples the job
// store implementation from the orchestration logic, so different backends
// (BadgerDB, in-memory, etc.) can be used interchangeably.
//
// The job store is the single source of truth for job ownership. All state
// transitions are optimistic compare-and-set operations: a transition
// specifies the state it expects to find and fails with ErrConflict if the
// stored record has moved on, which makes concurrent retries and worker
// crash recovery safe without any global lock.
//
// # Usage
//
// Create a repository instance:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	repo, err := badger.NewJobRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryJobRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
