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


package mock

import (
	"context"
	"sync"

	"github.com/poiesic/docmill/notify"
)

// MockNotifier is a test double for notify.Notifier. It records every
// delivery and allows custom behavior injection via NotifyFunc.
type MockNotifier struct {
	// NotifyFunc is called by Notify if set. If nil, the delivery is
	// recorded and succeeds.
	NotifyFunc func(ctx context.Context, callbackURL string, payload notify.Payload) error

	// FailFirst makes the first N calls fail with FailWith before the
	// default behavior takes over. Ignored when NotifyFunc is set.
	FailFirst int
	FailWith  error

	mu         sync.Mutex
	deliveries []notify.Payload
	callCount  int
}

var _ notify.Notifier = (*MockNotifier)(nil)

// NewMockNotifier creates a mock notifier that records deliveries.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Notify records the payload and returns the injected behavior.
func (m *MockNotifier) Notify(ctx context.Context, callbackURL string, payload notify.Payload) error {
	m.mu.Lock()
	m.callCount++
	calls := m.callCount
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, callbackURL, payload)
	}
	if m.FailWith != nil && calls <= m.FailFirst {
		return m.FailWith
	}

	m.mu.Lock()
	m.deliveries = append(m.deliveries, payload)
	m.mu.Unlock()
	return nil
}

// Deliveries returns the successfully recorded payloads in order.
func (m *MockNotifier) Deliveries() []notify.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notify.Payload, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

// CallCount returns the number of times Notify was called.
func (m *MockNotifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
