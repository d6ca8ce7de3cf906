package optimizer

import "batch-size-optimizer/core/models"

// Store is the durable trial history the engine runs against. The
// engine is the store's only mutating caller; the policy and judge see
// read-only snapshots and never touch it.
//
// Implementations must make AppendTrial atomic: the trial row and the
// job update commit together or not at all, so no partial state
// transition is ever observable.
type Store interface {
	// CreateJob persists a new job. Returns an already_exists error
	// if the job id is taken.
	CreateJob(job *models.Job) error

	// GetJob returns the job or an unknown_job error.
	GetJob(jobID string) (*models.Job, error)

	// ListTrials returns the job's trial log ordered by sequence number.
	ListTrials(jobID string) ([]models.Trial, error)

	// AppendTrial appends one trial and applies the job update as a
	// single atomic unit.
	AppendTrial(trial *models.Trial, update models.JobUpdate) error
}
