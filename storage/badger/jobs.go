package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
//
// Every mutating operation runs in a read-write badger transaction and
// re-checks its preconditions against the stored record, so the combination
// of the explicit checks and badger's serializable snapshot isolation gives
// compare-and-set semantics: of two racing writers, one commits and the
// other observes storage.ErrConflict.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &JobRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *JobRepository) Close() error {
	return nil
}

// CreateOrGet stores the job if no record exists for its ID, otherwise
// returns the existing record untouched.
func (r *JobRepository) CreateOrGet(ctx context.Context, job *core.Job) (*core.Job, bool, error) {
	var (
		stored  *core.Job
		created bool
	)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readJob(tx, job.Id)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		now := time.Now().UTC()
		fresh := *job
		if fresh.State == 0 {
			fresh.State = core.StatePending
		}
		fresh.CreatedAt = now
		fresh.UpdatedAt = now

		if err := writeJob(tx, &fresh); err != nil {
			return err
		}
		if err := tx.Set(makeJobActiveKey(fresh.Id), storage.MarshalID(fresh.Id)); err != nil {
			return err
		}

		stored = &fresh
		created = true
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		// Lost the race against a concurrent identical submission; the
		// committed record wins.
		existing, gerr := r.Get(ctx, job.Id)
		if gerr != nil {
			return nil, false, gerr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// Get retrieves a job record by ID.
func (r *JobRepository) Get(ctx context.Context, id core.ID) (*core.Job, error) {
	var job *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		job, err = readJob(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Acquire claims ownership of a non-terminal job whose lease is free or
// expired.
func (r *JobRepository) Acquire(ctx context.Context, id core.ID, token string, ttl time.Duration) (*core.Job, error) {
	var acquired *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		job, err := readJob(tx, id)
		if err != nil {
			return err
		}
		if job.State.Terminal() {
			return fmt.Errorf("%w: job is %s", storage.ErrConflict, job.State)
		}

		now := time.Now().UTC()
		if job.OwnerToken != "" && job.OwnerToken != token && job.LeaseExpiresAt.After(now) {
			return fmt.Errorf("%w: lease held until %s", storage.ErrConflict, job.LeaseExpiresAt.Format(time.RFC3339))
		}

		job.OwnerToken = token
		job.LeaseExpiresAt = now.Add(ttl)
		job.UpdatedAt = now

		if err := writeJob(tx, job); err != nil {
			return err
		}
		acquired = job
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return nil, fmt.Errorf("%w: concurrent acquire", storage.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return acquired, nil
}

// Renew extends the lease of a held ownership token.
func (r *JobRepository) Renew(ctx context.Context, id core.ID, token string, ttl time.Duration) error {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		job, err := readJob(tx, id)
		if err != nil {
			return err
		}
		if job.OwnerToken != token {
			return fmt.Errorf("%w: token no longer owns job", storage.ErrConflict)
		}

		now := time.Now().UTC()
		job.LeaseExpiresAt = now.Add(ttl)
		job.UpdatedAt = now

		if err := writeJob(tx, job); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: concurrent renew", storage.ErrConflict)
	}
	return err
}

// Transition atomically moves a job between states under compare-and-set.
func (r *JobRepository) Transition(ctx context.Context, id core.ID, expected, next core.JobState, token string, update func(*core.Job)) (*core.Job, error) {
	var result *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		job, err := readJob(tx, id)
		if err != nil {
			return err
		}
		if job.State != expected {
			return fmt.Errorf("%w: state is %s, expected %s", storage.ErrConflict, job.State, expected)
		}
		if token != "" && job.OwnerToken != token {
			return fmt.Errorf("%w: ownership token mismatch", storage.ErrConflict)
		}
		if !core.CanTransition(expected, next) {
			return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, expected, next)
		}

		if update != nil {
			update(job)
		}
		job.State = next
		job.UpdatedAt = time.Now().UTC()

		if next.Terminal() {
			job.OwnerToken = ""
			job.LeaseExpiresAt = time.Time{}
			if err := tx.Delete(makeJobActiveKey(id)); err != nil {
				return err
			}
		}

		if err := writeJob(tx, job); err != nil {
			return err
		}
		result = job
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return nil, fmt.Errorf("%w: concurrent transition", storage.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListActive returns all jobs in a non-terminal state, using the active-job
// index to avoid scanning finished jobs.
func (r *JobRepository) ListActive(ctx context.Context) ([]*core.Job, error) {
	var jobs []*core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobActivePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			job, err := readJob(tx, id)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// readJob reads and deserializes a job record within a transaction.
func readJob(tx *badger.Txn, id core.ID) (*core.Job, error) {
	item, err := tx.Get(makeJobKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: job %d", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var job *core.Job
	err = item.Value(func(val []byte) error {
		var err error
		job, err = storage.UnmarshalJob(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// writeJob serializes and stores a job record within a transaction.
func writeJob(tx *badger.Txn, job *core.Job) error {
	return tx.Set(makeJobKey(job.Id), storage.MarshalJob(job))
}
