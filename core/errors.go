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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidOptions indicates job options failed validation.
	// Submissions rejected with this error never create a job record.
	ErrInvalidOptions = errors.New("invalid job options")

	// ErrEmptyDocumentRef indicates the submission carried no document reference.
	ErrEmptyDocumentRef = errors.New("document reference cannot be empty")

	// ErrInvalidTargetSize indicates a non-positive chunk target size.
	ErrInvalidTargetSize = errors.New("target size must be positive")

	// ErrInvalidOverlap indicates a negative overlap or one at least as
	// large as the target size.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than target size")

	// ErrInvalidOverlapRatio indicates a max overlap ratio outside [0, 1].
	ErrInvalidOverlapRatio = errors.New("max overlap ratio must be within [0, 1]")

	// ErrUnknownSplitter indicates an unrecognized splitter strategy name.
	ErrUnknownSplitter = errors.New("unknown splitter strategy")

	// ErrInvalidCallbackURL indicates the callback URL could not be parsed
	// or does not use an http(s) scheme.
	ErrInvalidCallbackURL = errors.New("invalid callback URL")
)
