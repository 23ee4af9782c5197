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


package pipeline

import "errors"

var (
	// ErrJobStoreRequired is returned when no job repository is provided.
	ErrJobStoreRequired = errors.New("job repository is required")

	// ErrBlobStoreRequired is returned when no blob store is provided.
	ErrBlobStoreRequired = errors.New("blob store is required")

	// ErrParserRequired is returned when no parser is provided.
	ErrParserRequired = errors.New("parser is required")

	// ErrInvalidMaxAttempts is returned for a retry policy without a
	// positive attempt cap.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// errOwnershipLost aborts a job run when the worker's token no
	// longer owns the record (cancelled, or reclaimed by the sweep).
	errOwnershipLost = errors.New("job ownership lost")
)
