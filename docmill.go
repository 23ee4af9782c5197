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


package docmill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/poiesic/docmill/blobstore"
	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/notify"
	"github.com/poiesic/docmill/parse"
	"github.com/poiesic/docmill/pipeline"
	"github.com/poiesic/docmill/storage"
	"github.com/poiesic/docmill/storage/badger"
)

// Engine bundles the job store, the blob store, a parser, and the
// orchestrator into one handle. Open it once per process; it is safe for
// concurrent use.
type Engine struct {
	backend *badger.Backend
	jobs    storage.JobRepository
	blobs   blobstore.Store
	orch    *pipeline.Orchestrator
	logger  *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	inMemory      bool
	blobs         blobstore.Store
	parser        parse.Parser
	notifier      notify.Notifier
	webhookSecret string
	pipelineOpts  []pipeline.Option
}

// WithInMemory keeps the job store in memory and, unless a blob store is
// supplied, keeps blobs in memory too. Nothing survives Close.
func WithInMemory() EngineOption {
	return func(o *engineOptions) { o.inMemory = true }
}

// WithBlobStore replaces the default filesystem blob store.
func WithBlobStore(s blobstore.Store) EngineOption {
	return func(o *engineOptions) { o.blobs = s }
}

// WithParser replaces the default local parser.
func WithParser(p parse.Parser) EngineOption {
	return func(o *engineOptions) { o.parser = p }
}

// WithNotifier replaces the default webhook notifier.
func WithNotifier(n notify.Notifier) EngineOption {
	return func(o *engineOptions) { o.notifier = n }
}

// WithWebhookSecret sets the HMAC secret used to sign completion
// callbacks. Ignored when WithNotifier is also given.
func WithWebhookSecret(secret string) EngineOption {
	return func(o *engineOptions) { o.webhookSecret = secret }
}

// WithPipelineOptions forwards options to the orchestrator.
func WithPipelineOptions(opts ...pipeline.Option) EngineOption {
	return func(o *engineOptions) { o.pipelineOpts = append(o.pipelineOpts, opts...) }
}

// Open creates an Engine rooted at dataDir: the job store lives under
// dataDir/jobs and blobs under dataDir/blobs unless overridden.
func Open(dataDir string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}

	blobs := options.blobs
	if blobs == nil {
		if options.inMemory {
			blobs = blobstore.NewMemoryStore()
		} else {
			fs, err := blobstore.NewFSStore(filepath.Join(dataDir, "blobs"))
			if err != nil {
				return nil, err
			}
			blobs = fs
		}
	}

	backend, err := badger.OpenBackend(filepath.Join(dataDir, "jobs"), options.inMemory)
	if err != nil {
		return nil, err
	}

	jobs, err := badger.NewJobRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	parser := options.parser
	if parser == nil {
		parser = parse.NewLocalParser()
	}

	notifier := options.notifier
	if notifier == nil {
		notifier = notify.NewWebhookNotifier(options.webhookSecret)
	}

	pipelineOpts := append([]pipeline.Option{pipeline.WithNotifier(notifier)}, options.pipelineOpts...)
	orch, err := pipeline.NewOrchestrator(jobs, blobs, parser, pipelineOpts...)
	if err != nil {
		jobs.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend: backend,
		jobs:    jobs,
		blobs:   blobs,
		orch:    orch,
		logger:  slog.Default().With("component", "docmill"),
	}, nil
}

func (e *Engine) Close() error {
	if err := e.orch.Close(); err != nil {
		e.logger.Error("error closing orchestrator", "err", err)
	}

	if err := e.jobs.Close(); err != nil {
		e.logger.Error("error closing job repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// PutDocument stores source bytes in the blob store and returns the
// content-addressed reference to submit with.
func (e *Engine) PutDocument(ctx context.Context, name string, data []byte) (string, error) {
	key := blobstore.KeyFor(data, path.Ext(name))
	if err := e.blobs.Put(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// Submit registers an ingestion job for a stored document.
func (e *Engine) Submit(ctx context.Context, documentRef string, opts core.JobOptions, callbackURL string) (*core.Job, error) {
	return e.orch.Submit(ctx, documentRef, opts, callbackURL)
}

// Status returns the current job record.
func (e *Engine) Status(ctx context.Context, id core.ID) (*core.Job, error) {
	return e.orch.Status(ctx, id)
}

// Cancel requests cooperative cancellation of a running job.
func (e *Engine) Cancel(ctx context.Context, id core.ID) (*core.Job, error) {
	return e.orch.Cancel(ctx, id)
}

// Manifest fetches the result manifest of a succeeded job.
func (e *Engine) Manifest(ctx context.Context, id core.ID) (*core.Manifest, error) {
	job, err := e.orch.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.ResultRef == "" {
		return nil, fmt.Errorf("job %d has no result (state %s)", uint64(id), job.State)
	}

	data, err := e.blobs.Get(ctx, job.ResultRef)
	if err != nil {
		return nil, err
	}
	var manifest core.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", job.ResultRef, err)
	}
	return &manifest, nil
}

// Chunks fetches the chunk sequence a manifest points at.
func (e *Engine) Chunks(ctx context.Context, manifest *core.Manifest) ([]core.Chunk, error) {
	data, err := e.blobs.Get(ctx, manifest.ChunksKey)
	if err != nil {
		return nil, err
	}
	var chunks []core.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks %s: %w", manifest.ChunksKey, err)
	}
	return chunks, nil
}

// Jobs exposes the underlying job repository.
func (e *Engine) Jobs() storage.JobRepository {
	return e.jobs
}

// Blobs exposes the underlying blob store.
func (e *Engine) Blobs() blobstore.Store {
	return e.blobs
}
