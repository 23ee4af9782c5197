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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested job record was not found.
	ErrNotFound = errors.New("job not found")

	// ErrConflict indicates that a compare-and-set transition found a record
	// in a different state, or held by a different ownership token, than the
	// caller expected.
	ErrConflict = errors.New("job transition conflict")

	// ErrInvalidTransition indicates a transition that the state machine
	// graph does not permit, regardless of concurrency.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
