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
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA256 signature of the request
// body.
const SignatureHeader = "X-Docmill-Signature"

// Sign computes the hex HMAC-SHA256 signature of body under secret.
// Receivers recompute it to authenticate the callback origin.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookNotifier posts signed JSON callbacks to the job's callback URL.
type WebhookNotifier struct {
	httpClient *http.Client
	secret     string
	logger     *slog.Logger
}

var _ Notifier = (*WebhookNotifier)(nil)

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient replaces the HTTP client used for deliveries.
func WithHTTPClient(hc *http.Client) WebhookOption {
	return func(n *WebhookNotifier) { n.httpClient = hc }
}

// NewWebhookNotifier creates a notifier signing bodies with secret.
func NewWebhookNotifier(secret string, opts ...WebhookOption) *WebhookNotifier {
	n := &WebhookNotifier{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		secret:     secret,
		logger:     slog.Default().With("component", "notify.webhook"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify performs one signed delivery attempt. Any 2xx answer counts as
// delivered; everything else is ErrDeliveryFailed.
func (n *WebhookNotifier) Notify(ctx context.Context, callbackURL string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %w", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(n.secret, body))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: receiver answered %d", ErrDeliveryFailed, resp.StatusCode)
	}

	n.logger.Debug("callback delivered", "job_id", payload.JobID, "state", payload.State)
	return nil
}
