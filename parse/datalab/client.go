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


package datalab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/parse"
)

const (
	defaultBaseURL      = "https://www.datalab.to/api/v1/marker"
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 600
)

// Client is a parse.Parser backed by the Datalab Marker API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxPolls     int
	logger       *slog.Logger
}

var _ parse.Parser = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different API endpoint.
// Used by tests; defaults to the production Marker endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithPollInterval sets the delay between conversion status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxPolls bounds how many status polls one attempt may consume
// before it is reported as timed out.
func WithMaxPolls(n int) Option {
	return func(c *Client) { c.maxPolls = n }
}

// New creates a Marker API client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("datalab: API key is required")
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		baseURL:      defaultBaseURL,
		apiKey:       apiKey,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		logger:       slog.Default().With("component", "parse.datalab"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Parse submits the document for conversion and waits for the result.
func (c *Client) Parse(ctx context.Context, doc parse.Document, opts core.ParseOptions) (*parse.Result, error) {
	requestID, err := c.submit(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("conversion submitted", "request_id", requestID, "name", doc.Name)

	status, err := c.waitForConversion(ctx, requestID)
	if err != nil {
		return nil, err
	}

	result := resultFromMarkdown(status.Markdown, status.PageCount)
	c.logger.Debug("conversion complete",
		"request_id", requestID,
		"pages", status.PageCount,
		"blocks", len(result.Blocks))
	return result, nil
}

type submitResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

type conversionStatus struct {
	Status    string `json:"status"`
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Markdown  string `json:"markdown"`
	PageCount int    `json:"page_count"`
}

// submit uploads the document and returns the conversion request id.
func (c *Client) submit(ctx context.Context, doc parse.Document, opts core.ParseOptions) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := map[string]string{
		"force_ocr":                strconv.FormatBool(opts.ForceOCR),
		"format_lines":             strconv.FormatBool(opts.FormatLines),
		"strip_existing_ocr":       strconv.FormatBool(opts.StripExistingOCR),
		"disable_image_extraction": strconv.FormatBool(opts.DisableImageExtraction),
		"disable_ocr_math":         strconv.FormatBool(opts.DisableOCRMath),
		"use_llm":                  strconv.FormatBool(opts.UseLLM),
		// Fixed: downstream block extraction expects paginated markdown.
		"output_format": "markdown",
		"paginate":      "true",
	}
	if opts.Mode != "" {
		fields["mode"] = opts.Mode
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return "", fmt.Errorf("%w: encode form: %w", parse.ErrTransient, err)
		}
	}

	name := doc.Name
	if name == "" {
		name = "document"
	}
	fileWriter, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("%w: encode form: %w", parse.ErrTransient, err)
	}
	if _, err := fileWriter.Write(doc.Data); err != nil {
		return "", fmt.Errorf("%w: encode form: %w", parse.ErrTransient, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("%w: encode form: %w", parse.ErrTransient, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", parse.ErrFatal, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: submit: %w", parse.ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatusCode(resp.StatusCode, "submit"); err != nil {
		return "", err
	}

	var sub submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return "", fmt.Errorf("%w: submit: decode response: %w", parse.ErrTransient, err)
	}
	if !sub.Success || sub.RequestID == "" {
		return "", fmt.Errorf("%w: submission rejected: %s", parse.ErrFatal, sub.Error)
	}
	return sub.RequestID, nil
}

// waitForConversion polls the conversion until it leaves "processing" or
// the poll budget runs out. Transient poll failures (rate limits, 5xx,
// network faults) consume a poll slot and the loop continues; only a
// definitive API answer ends the wait early.
func (c *Client) waitForConversion(ctx context.Context, requestID string) (*conversionStatus, error) {
	url := c.baseURL + "/" + requestID

	for poll := 0; poll < c.maxPolls; poll++ {
		if poll > 0 {
			if err := sleepCtx(ctx, c.pollInterval); err != nil {
				return nil, err
			}
		}

		status, err := c.pollOnce(ctx, url)
		if err != nil {
			if !errors.Is(err, parse.ErrTransient) {
				return nil, err
			}
			c.logger.Warn("conversion poll failed, will retry",
				"request_id", requestID, "error", err)
			continue
		}

		if status.Status == "processing" {
			continue
		}
		if status.Status == "failed" || !status.Success {
			return nil, fmt.Errorf("%w: conversion failed: %s", parse.ErrFatal, status.Error)
		}
		return status, nil
	}

	return nil, fmt.Errorf("%w: conversion %s still processing after %d polls",
		parse.ErrTimeout, requestID, c.maxPolls)
}

func (c *Client) pollOnce(ctx context.Context, url string) (*conversionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", parse.ErrFatal, err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: poll: %w", parse.ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatusCode(resp.StatusCode, "poll"); err != nil {
		return nil, err
	}

	var status conversionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: poll: decode response: %w", parse.ErrTransient, err)
	}
	return &status, nil
}

// classifyStatusCode maps an HTTP status onto the parse failure classes.
// Rate limiting and server faults are transient; every other non-2xx
// answer means this document or request will never succeed.
func classifyStatusCode(code int, op string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500:
		return fmt.Errorf("%w: %s returned %d", parse.ErrTransient, op, code)
	default:
		return fmt.Errorf("%w: %s returned %d", parse.ErrFatal, op, code)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", parse.ErrTimeout, ctx.Err())
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
