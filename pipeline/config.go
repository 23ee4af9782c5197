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
	"log/slog"
	"runtime"
	"time"
)

// RetryPolicy bounds one stage's retry loop: at most MaxAttempts
// attempts, with exponential backoff starting at BaseDelay plus jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Config holds the tunable behavior of an Orchestrator. Values are
// deployment knobs, not correctness requirements; the defaults suit a
// single-node worker.
type Config struct {
	// PoolSize bounds how many jobs run concurrently.
	PoolSize int

	// LeaseTTL is how long an ownership token is honored without
	// renewal; SweepInterval is how often expired leases are reclaimed.
	LeaseTTL      time.Duration
	SweepInterval time.Duration

	// Per-call timeouts.
	ParseTimeout time.Duration
	PutTimeout   time.Duration

	// JobDeadline is the hard wall-clock ceiling for one job run; when
	// it passes the job is force-failed regardless of retry budget.
	JobDeadline time.Duration

	// Per-stage retry policies. Parsing tolerates more transient
	// failures than storage; notification is best-effort.
	ParseRetry  RetryPolicy
	StoreRetry  RetryPolicy
	NotifyRetry RetryPolicy
}

func defaultConfig() Config {
	poolSize := runtime.NumCPU()
	if poolSize < 2 {
		poolSize = 2
	}
	return Config{
		PoolSize:      poolSize,
		LeaseTTL:      2 * time.Minute,
		SweepInterval: 30 * time.Second,
		ParseTimeout:  15 * time.Minute,
		PutTimeout:    30 * time.Second,
		JobDeadline:   2 * time.Hour,
		ParseRetry:    RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second},
		StoreRetry:    RetryPolicy{MaxAttempts: 4, BaseDelay: 500 * time.Millisecond},
		NotifyRetry:   RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second},
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets how many jobs may run concurrently.
// Default is runtime.NumCPU(), with a minimum of 2.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		o.cfg.PoolSize = size
		return nil
	}
}

// WithLease sets the ownership lease TTL and the sweep interval.
func WithLease(ttl, sweepInterval time.Duration) Option {
	return func(o *Orchestrator) error {
		if ttl > 0 {
			o.cfg.LeaseTTL = ttl
		}
		if sweepInterval > 0 {
			o.cfg.SweepInterval = sweepInterval
		}
		return nil
	}
}

// WithTimeouts sets the per-call timeouts and the overall job deadline.
// Zero values keep the current setting.
func WithTimeouts(parseTimeout, putTimeout, jobDeadline time.Duration) Option {
	return func(o *Orchestrator) error {
		if parseTimeout > 0 {
			o.cfg.ParseTimeout = parseTimeout
		}
		if putTimeout > 0 {
			o.cfg.PutTimeout = putTimeout
		}
		if jobDeadline > 0 {
			o.cfg.JobDeadline = jobDeadline
		}
		return nil
	}
}

// WithParseRetry sets the parsing stage retry policy.
func WithParseRetry(policy RetryPolicy) Option {
	return func(o *Orchestrator) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.cfg.ParseRetry = policy
		return nil
	}
}

// WithStoreRetry sets the storing stage retry policy.
func WithStoreRetry(policy RetryPolicy) Option {
	return func(o *Orchestrator) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.cfg.StoreRetry = policy
		return nil
	}
}

// WithNotifyRetry sets the notification retry policy.
func WithNotifyRetry(policy RetryPolicy) Option {
	return func(o *Orchestrator) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.cfg.NotifyRetry = policy
		return nil
	}
}

// WithMonitor installs observation hooks for job progress.
// Default is a no-op monitor.
func WithMonitor(m Monitor) Option {
	return func(o *Orchestrator) error {
		if m == nil {
			m = &noopMonitor{}
		}
		o.monitor = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}
