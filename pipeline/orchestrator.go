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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docmill/blobstore"
	"github.com/poiesic/docmill/chunk"
	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/notify"
	"github.com/poiesic/docmill/parse"
	"github.com/poiesic/docmill/storage"
)

// Orchestrator owns the job lifecycle: submission, worker scheduling,
// stage retries, lease sweeping, and terminal callbacks.
type Orchestrator struct {
	jobs     storage.JobRepository
	blobs    blobstore.Store
	parser   parse.Parser
	notifier notify.Notifier
	pool     *ants.Pool
	cfg      Config
	monitor  Monitor
	logger   *slog.Logger

	rootCtx    context.Context
	rootCancel context.CancelFunc
	sweepWG    sync.WaitGroup
	closeOnce  sync.Once
}

// WithNotifier installs the completion callback transport. Without one,
// callback URLs are recorded but never called.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) error {
		o.notifier = n
		return nil
	}
}

// NewOrchestrator creates an orchestrator and starts its lease sweep.
func NewOrchestrator(jobs storage.JobRepository, blobs blobstore.Store, parser parse.Parser, opts ...Option) (*Orchestrator, error) {
	if jobs == nil {
		return nil, ErrJobStoreRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if parser == nil {
		return nil, ErrParserRequired
	}

	o := &Orchestrator{
		jobs:    jobs,
		blobs:   blobs,
		parser:  parser,
		cfg:     defaultConfig(),
		monitor: &noopMonitor{},
		logger:  slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(o.cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	o.pool = pool

	o.rootCtx, o.rootCancel = context.WithCancel(context.Background())
	o.sweepWG.Add(1)
	go o.sweepLoop()

	return o, nil
}

// Close stops the sweep, cancels running jobs, and releases the pool.
// In-flight jobs end at their next stage boundary; their leases expire
// and another worker can pick them up.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		o.rootCancel()
		o.sweepWG.Wait()
		o.pool.Release()
	})
	return nil
}

// Submit validates the request and registers the job, returning
// immediately. Identical document+options submissions collapse onto one
// job: in-flight submissions return the running job, and resubmission
// after success returns the finished record with its result reference.
func (o *Orchestrator) Submit(ctx context.Context, documentRef string, opts core.JobOptions, callbackURL string) (*core.Job, error) {
	if err := core.ValidateSubmission(documentRef, opts, callbackURL); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &core.Job{
		Id:          core.JobFingerprint(documentRef, opts),
		State:       core.StatePending,
		DocumentRef: documentRef,
		CallbackURL: callbackURL,
		Options:     opts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stored, created, err := o.jobs.CreateOrGet(ctx, job)
	if err != nil {
		return nil, err
	}
	if created {
		o.logger.Info("job submitted",
			"job_id", uint64(stored.Id), "document_ref", documentRef)
	}

	if !stored.State.Terminal() {
		o.dispatch(stored.Id)
	}
	return stored, nil
}

// Status returns the current job record.
func (o *Orchestrator) Status(ctx context.Context, id core.ID) (*core.Job, error) {
	return o.jobs.Get(ctx, id)
}

// Cancel requests cooperative cancellation. The transition takes effect
// immediately in the store; a worker mid-stage notices at its next
// boundary and abandons the job. Cancelling a terminal job is a no-op
// returning the record as-is.
func (o *Orchestrator) Cancel(ctx context.Context, id core.ID) (*core.Job, error) {
	for {
		job, err := o.jobs.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.State.Terminal() {
			return job, nil
		}

		cancelled, err := o.jobs.Transition(ctx, id, job.State, core.StateCancelled, "", func(j *core.Job) {
			j.LastError = &core.JobError{Reason: core.ReasonCancelled, Detail: "cancelled by request"}
		})
		if errors.Is(err, storage.ErrConflict) {
			// The worker moved the job between our read and write.
			continue
		}
		if err != nil {
			return nil, err
		}
		o.monitor.JobFinished(cancelled)
		return cancelled, nil
	}
}

// SweepOnce scans active jobs and redispatches unowned jobs and jobs
// whose lease expired. Returns how many jobs were redispatched.
func (o *Orchestrator) SweepOnce(ctx context.Context) (int, error) {
	active, err := o.jobs.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	now := time.Now()
	for _, job := range active {
		switch {
		case job.OwnerToken == "":
			o.dispatch(job.Id)
			dispatched++
		case now.After(job.LeaseExpiresAt):
			o.monitor.JobReclaimed(job.Id, job.State)
			o.dispatch(job.Id)
			dispatched++
		}
	}
	return dispatched, nil
}

func (o *Orchestrator) sweepLoop() {
	defer o.sweepWG.Done()

	ticker := time.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.rootCtx.Done():
			return
		case <-ticker.C:
			if _, err := o.SweepOnce(o.rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Warn("lease sweep failed", "error", err)
			}
		}
	}
}

func (o *Orchestrator) dispatch(id core.ID) {
	err := o.pool.Submit(func() { o.runJob(id) })
	if err != nil {
		// The sweep will retry the dispatch; the record is durable.
		o.logger.Warn("dispatch failed", "job_id", uint64(id), "error", err)
	}
}

// runJob claims the job and drives it to a terminal state. Acquisition
// failure means another worker already holds it, which is the expected
// outcome of duplicate dispatches.
func (o *Orchestrator) runJob(id core.ID) {
	ctx, cancel := context.WithTimeout(o.rootCtx, o.cfg.JobDeadline)
	defer cancel()

	token := uuid.NewString()
	job, err := o.jobs.Acquire(ctx, id, token, o.cfg.LeaseTTL)
	if err != nil {
		o.logger.Debug("job not acquired", "job_id", uint64(id), "error", err)
		return
	}
	o.monitor.JobStarted(job)

	final, err := o.drive(ctx, job, token)
	switch {
	case err == nil:
		o.monitor.JobFinished(final)
	case errors.Is(err, errOwnershipLost), errors.Is(err, context.Canceled):
		o.logger.Debug("job run abandoned", "job_id", uint64(id), "error", err)
	default:
		o.logger.Error("job run failed outside the state machine",
			"job_id", uint64(id), "error", err)
	}
}

// drive executes the stages from the job's current state forward. When
// resuming a reclaimed job past PARSING, the parse and chunk results are
// recomputed in memory without regressing the persisted state; both are
// deterministic, and committed blobs are skipped during STORING.
func (o *Orchestrator) drive(ctx context.Context, job *core.Job, token string) (*core.Job, error) {
	var err error
	if job.State == core.StatePending {
		if job, err = o.advance(ctx, job, core.StateParsing, token, nil); err != nil {
			return nil, err
		}
	}

	var result *parse.Result
	switch job.State {
	case core.StateParsing, core.StateChunking, core.StateStoring:
		persistAttempts := job.State == core.StateParsing
		result, err = o.parseStage(ctx, job, token, persistAttempts)
		if err != nil {
			return o.settleFailure(ctx, job, token, err)
		}
	}

	if job.State == core.StateParsing {
		if job, err = o.advance(ctx, job, core.StateChunking, token, nil); err != nil {
			return nil, err
		}
	}

	var chunks []core.Chunk
	if job.State == core.StateChunking || job.State == core.StateStoring {
		chunks, err = chunk.Partition(result.Blocks, job.Options.Chunking)
		if err != nil {
			return o.settleFailure(ctx, job, token, err)
		}
	}

	if job.State == core.StateChunking {
		if job, err = o.advance(ctx, job, core.StateStoring, token, nil); err != nil {
			return nil, err
		}
	}

	if job.State == core.StateStoring {
		artifacts, err := buildArtifacts(job, result, chunks)
		if err != nil {
			return o.settleFailure(ctx, job, token, err)
		}
		if err := o.storeStage(ctx, job, token, artifacts); err != nil {
			return o.settleFailure(ctx, job, token, err)
		}
		job, err = o.advance(ctx, job, core.StateNotifying, token, func(j *core.Job) {
			j.ResultRef = artifacts.manifestKey
		})
		if err != nil {
			return nil, err
		}
	}

	if job.State == core.StateNotifying {
		o.notifyStage(ctx, job, token)
		if job, err = o.advance(ctx, job, core.StateSucceeded, token, nil); err != nil {
			return nil, err
		}
	}

	return job, nil
}

// advance moves the job to the next stage. A conflict means the worker
// no longer owns the record: cancelled, or reclaimed after an expired
// lease.
func (o *Orchestrator) advance(ctx context.Context, job *core.Job, next core.JobState, token string, update func(*core.Job)) (*core.Job, error) {
	updated, err := o.jobs.Transition(ctx, job.Id, job.State, next, token, update)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", errOwnershipLost, err)
		}
		return nil, err
	}
	if !next.Terminal() {
		if err := o.jobs.Renew(ctx, job.Id, token, o.cfg.LeaseTTL); err != nil {
			return nil, fmt.Errorf("%w: %w", errOwnershipLost, err)
		}
	}
	o.monitor.StageEntered(job.Id, next)
	return updated, nil
}

// heartbeat renews the lease and optionally persists an attempt bump
// through a same-state transition, so attempt counts are visible to
// status reads while the stage is still running.
func (o *Orchestrator) heartbeat(ctx context.Context, job *core.Job, token string, persist bool, bump func(*core.Job)) error {
	if err := o.jobs.Renew(ctx, job.Id, token, o.cfg.LeaseTTL); err != nil {
		return fmt.Errorf("%w: %w", errOwnershipLost, err)
	}
	if !persist {
		return nil
	}

	updated, err := o.jobs.Transition(ctx, job.Id, job.State, job.State, token, bump)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return fmt.Errorf("%w: %w", errOwnershipLost, err)
		}
		return err
	}
	*job = *updated
	return nil
}

func (o *Orchestrator) parseStage(ctx context.Context, job *core.Job, token string, persistAttempts bool) (*parse.Result, error) {
	var result *parse.Result

	err := RetryWithBackoff(ctx, o.cfg.ParseRetry, parse.Retryable, func(attempt int) error {
		if err := o.heartbeat(ctx, job, token, persistAttempts, func(j *core.Job) {
			j.Attempts.Parsing++
		}); err != nil {
			return err
		}

		doc, err := o.fetchDocument(ctx, job)
		if err != nil {
			o.monitor.AttemptFailed(job.Id, core.StateParsing, attempt, err)
			return err
		}

		cctx, cancel := context.WithTimeout(ctx, o.cfg.ParseTimeout)
		defer cancel()

		res, err := o.parser.Parse(cctx, doc, job.Options.Parsing)
		if err != nil {
			o.monitor.AttemptFailed(job.Id, core.StateParsing, attempt, err)
			return err
		}
		result = res
		return nil
	})
	return result, err
}

// fetchDocument resolves the job's document reference from the content
// store. A missing source can never parse; anything else is worth a
// retry.
func (o *Orchestrator) fetchDocument(ctx context.Context, job *core.Job) (parse.Document, error) {
	data, err := o.blobs.Get(ctx, job.DocumentRef)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return parse.Document{}, fmt.Errorf("%w: source %s not found", parse.ErrFatal, job.DocumentRef)
		}
		return parse.Document{}, fmt.Errorf("%w: fetch source: %w", parse.ErrTransient, err)
	}
	return parse.Document{Name: path.Base(job.DocumentRef), Data: data}, nil
}

func (o *Orchestrator) storeStage(ctx context.Context, job *core.Job, token string, artifacts *artifactSet) error {
	retryable := func(err error) bool { return errors.Is(err, blobstore.ErrUnavailable) }

	return RetryWithBackoff(ctx, o.cfg.StoreRetry, retryable, func(attempt int) error {
		if err := o.heartbeat(ctx, job, token, true, func(j *core.Job) {
			j.Attempts.Storing++
		}); err != nil {
			return err
		}

		for _, key := range artifacts.order {
			exists, err := o.blobs.Has(ctx, key)
			if err != nil {
				o.monitor.AttemptFailed(job.Id, core.StateStoring, attempt, err)
				return err
			}
			if exists {
				continue
			}

			pctx, cancel := context.WithTimeout(ctx, o.cfg.PutTimeout)
			err = o.blobs.Put(pctx, key, artifacts.blobs[key])
			cancel()
			if err != nil {
				o.monitor.AttemptFailed(job.Id, core.StateStoring, attempt, err)
				return err
			}
		}
		return nil
	})
}

// notifyStage delivers the completion callback with bounded retries.
// Delivery failure never fails the job; it is logged and visible in the
// attempt counters.
func (o *Orchestrator) notifyStage(ctx context.Context, job *core.Job, token string) {
	if o.notifier == nil || job.CallbackURL == "" {
		return
	}

	payload := notify.Payload{
		JobID:     strconv.FormatUint(uint64(job.Id), 10),
		State:     core.StateSucceeded.String(),
		ResultRef: job.ResultRef,
	}
	retryable := func(err error) bool { return errors.Is(err, notify.ErrDeliveryFailed) }

	err := RetryWithBackoff(ctx, o.cfg.NotifyRetry, retryable, func(attempt int) error {
		if err := o.heartbeat(ctx, job, token, true, func(j *core.Job) {
			j.Attempts.Notifying++
		}); err != nil {
			return err
		}
		if err := o.notifier.Notify(ctx, job.CallbackURL, payload); err != nil {
			o.monitor.AttemptFailed(job.Id, core.StateNotifying, attempt, err)
			return err
		}
		return nil
	})
	if err != nil {
		o.logger.Warn("completion callback not delivered",
			"job_id", uint64(job.Id), "callback_url", job.CallbackURL, "error", err)
	}
}

// settleFailure moves the job to FAILED with a stable reason code,
// unless ownership was lost first. The terminal write runs on a fresh
// context: the job context may be the very thing that expired.
func (o *Orchestrator) settleFailure(ctx context.Context, job *core.Job, token string, cause error) (*core.Job, error) {
	if errors.Is(cause, errOwnershipLost) || errors.Is(cause, context.Canceled) {
		return job, cause
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	jobErr := &core.JobError{Reason: reasonForError(cause), Detail: cause.Error()}
	failed, err := o.jobs.Transition(fctx, job.Id, job.State, core.StateFailed, token, func(j *core.Job) {
		j.LastError = jobErr
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return job, fmt.Errorf("%w: %w", errOwnershipLost, err)
		}
		return nil, err
	}

	o.monitor.JobFinished(failed)
	o.sendFailureCallback(fctx, failed)
	return failed, nil
}

// sendFailureCallback is a single best-effort delivery; a failed job is
// already terminal and callers can always poll the status read.
func (o *Orchestrator) sendFailureCallback(ctx context.Context, job *core.Job) {
	if o.notifier == nil || job.CallbackURL == "" {
		return
	}

	payload := notify.Payload{
		JobID: strconv.FormatUint(uint64(job.Id), 10),
		State: job.State.String(),
		Error: job.LastError,
	}
	if err := o.notifier.Notify(ctx, job.CallbackURL, payload); err != nil {
		o.logger.Warn("failure callback not delivered",
			"job_id", uint64(job.Id), "error", err)
	}
}

// reasonForError maps a stage failure onto the stable reason codes
// surfaced in last_error.
func reasonForError(err error) string {
	switch {
	case errors.Is(err, parse.ErrFatal):
		return core.ReasonParseFatal
	case errors.Is(err, parse.ErrTimeout):
		return core.ReasonParseTimeout
	case errors.Is(err, parse.ErrTransient):
		return core.ReasonParseTransient
	case errors.Is(err, blobstore.ErrUnavailable):
		return core.ReasonStorageUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return core.ReasonDeadline
	default:
		return core.ReasonInternal
	}
}
