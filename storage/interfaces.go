package storage

import (
	"context"
	"time"

	"github.com/poiesic/docmill/core"
)

// JobRepository provides durable storage for job records.
// Implementations must be thread-safe and support concurrent access; all
// mutating operations must be atomic.
type JobRepository interface {
	// CreateOrGet stores the job if no record exists for its ID and returns
	// the stored record. If a record already exists (the same fingerprint
	// was submitted before), the existing record is returned untouched and
	// created is false. Idempotent under concurrent submission.
	CreateOrGet(ctx context.Context, job *core.Job) (stored *core.Job, created bool, err error)

	// Get retrieves a job record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Job, error)

	// Acquire claims ownership of a job for a worker. It succeeds when the
	// job is non-terminal and either unowned or its lease has expired,
	// installing the token with a lease of ttl. Returns ErrConflict when
	// another worker currently holds a live lease or the job is terminal.
	Acquire(ctx context.Context, id core.ID, token string, ttl time.Duration) (*core.Job, error)

	// Renew extends the lease of a held ownership token.
	// Returns ErrConflict if the token no longer owns the job.
	Renew(ctx context.Context, id core.ID, token string, ttl time.Duration) error

	// Transition atomically moves a job from expected to next, applying
	// update to the record inside the same atomic step. It fails with
	// ErrConflict if the stored state is not expected at the moment of the
	// write, or if token is non-empty and does not match the stored
	// ownership token. A transition the state machine graph forbids fails
	// with ErrInvalidTransition. Transitions into a terminal state release
	// the ownership token.
	Transition(ctx context.Context, id core.ID, expected, next core.JobState, token string, update func(*core.Job)) (*core.Job, error)

	// ListActive returns all jobs in a non-terminal state.
	ListActive(ctx context.Context) ([]*core.Job, error)

	// Close closes the repository and releases resources.
	Close() error
}
