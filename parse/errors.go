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


package parse

import "errors"

var (
	// ErrFatal marks documents that can never be parsed: corrupt bytes,
	// unsupported formats, conversions rejected by the backend. Retrying
	// cannot help.
	ErrFatal = errors.New("document cannot be parsed")

	// ErrTransient marks failures of the parsing infrastructure rather
	// than the document: network faults, 5xx responses, rate limiting.
	ErrTransient = errors.New("parser temporarily unavailable")

	// ErrTimeout marks a parse attempt that exhausted its time budget
	// before the backend produced a result.
	ErrTimeout = errors.New("parse attempt timed out")
)

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}
