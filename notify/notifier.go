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


package notify

import (
	"context"
	"errors"

	"github.com/poiesic/docmill/core"
)

// ErrDeliveryFailed marks a callback attempt that did not reach the
// receiver or was not acknowledged with a success status.
var ErrDeliveryFailed = errors.New("callback delivery failed")

// Payload is the body of a completion callback.
type Payload struct {
	JobID     string         `json:"job_id"`
	State     string         `json:"state"`
	ResultRef string         `json:"result_ref,omitempty"`
	Error     *core.JobError `json:"error,omitempty"`
}

// Notifier delivers one completion callback. Implementations perform a
// single attempt and report failures as ErrDeliveryFailed.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string, payload Payload) error
}
