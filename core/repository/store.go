package repository

import (
	"batch-size-optimizer/core/models"

	"github.com/pkg/errors"
)

// Store implements the optimizer's trial history store over Postgres,
// composing the job and trial repositories. The trial append and the
// accompanying job update commit in one transaction so a crash between
// the two can never leave a half-applied state transition.
type Store struct {
	db     *DB
	jobs   *JobRepository
	trials *TrialRepository
}

// NewStore creates a Postgres-backed store
func NewStore(db *DB) *Store {
	return &Store{
		db:     db,
		jobs:   NewJobRepository(db),
		trials: NewTrialRepository(db),
	}
}

// CreateJob persists a new job
func (s *Store) CreateJob(job *models.Job) error {
	return s.jobs.CreateJob(job)
}

// GetJob retrieves a job by id
func (s *Store) GetJob(jobID string) (*models.Job, error) {
	return s.jobs.GetJob(jobID)
}

// ListTrials retrieves a job's trial log ordered by sequence number
func (s *Store) ListTrials(jobID string) ([]models.Trial, error) {
	return s.trials.ListTrials(jobID)
}

// AppendTrial appends the trial and applies the job update atomically
func (s *Store) AppendTrial(trial *models.Trial, update models.JobUpdate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := s.trials.insertTrialTx(tx, trial); err != nil {
		return err
	}
	if err := s.jobs.updateJobTx(tx, trial.JobID, update); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "commit transaction")
}
