package repository

import (
	"database/sql"

	"batch-size-optimizer/core/models"
	"batch-size-optimizer/core/optimizer"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// JobRepository handles database operations for jobs
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// uniqueViolation is the Postgres error code for duplicate primary keys
const uniqueViolation = "23505"

// CreateJob inserts a new job row. A duplicate job id surfaces as an
// already_exists optimizer error, never a partial insert.
func (r *JobRepository) CreateJob(job *models.Job) error {
	query := `
		INSERT INTO jobs (
			id, batch_sizes, default_batch_size, max_trials, eta_knob, max_power,
			state, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(query,
		job.ID,
		pq.Array(intsToInt64(job.BatchSizes)),
		job.DefaultBatchSize,
		job.MaxTrials,
		job.EtaKnob,
		job.MaxPower,
		job.State,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return optimizer.NewError(optimizer.CodeAlreadyExists, job.ID, "",
				"job %s is already registered; use a new job_id for a different configuration", job.ID)
		}
		return errors.Wrap(err, "insert job")
	}
	return nil
}

// GetJob retrieves a job by id
func (r *JobRepository) GetJob(id string) (*models.Job, error) {
	query := `
		SELECT id, batch_sizes, default_batch_size, max_trials, eta_knob, max_power,
			state, stop_reason, best_batch_size, min_cost, min_cost_batch_size,
			created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var job models.Job
	var batchSizes pq.Int64Array
	var stopReason sql.NullString
	var bestBatchSize sql.NullInt64
	var minCost sql.NullFloat64
	var minCostBatchSize sql.NullInt64

	err := r.db.QueryRow(query, id).Scan(
		&job.ID,
		&batchSizes,
		&job.DefaultBatchSize,
		&job.MaxTrials,
		&job.EtaKnob,
		&job.MaxPower,
		&job.State,
		&stopReason,
		&bestBatchSize,
		&minCost,
		&minCostBatchSize,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, optimizer.NewError(optimizer.CodeUnknownJob, id, "",
			"job %s is not registered", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select job")
	}

	job.BatchSizes = int64sToInts(batchSizes)
	if stopReason.Valid {
		job.StopReason = stopReason.String
	}
	if bestBatchSize.Valid {
		bs := int(bestBatchSize.Int64)
		job.BestBatchSize = &bs
	}
	if minCost.Valid {
		job.MinCost = &minCost.Float64
	}
	if minCostBatchSize.Valid {
		bs := int(minCostBatchSize.Int64)
		job.MinCostBatchSize = &bs
	}

	return &job, nil
}

// updateJobTx applies a job update inside an open transaction
func (r *JobRepository) updateJobTx(tx *sql.Tx, jobID string, update models.JobUpdate) error {
	query := `
		UPDATE jobs
		SET state = $1, stop_reason = $2, best_batch_size = $3,
			min_cost = $4, min_cost_batch_size = $5, updated_at = NOW()
		WHERE id = $6
	`

	var stopReason *string
	if update.StopReason != "" {
		stopReason = &update.StopReason
	}

	_, err := tx.Exec(query,
		update.State,
		stopReason,
		update.BestBatchSize,
		update.MinCost,
		update.MinCostBatchSize,
		jobID,
	)
	return errors.Wrap(err, "update job")
}

func intsToInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func int64sToInts(in []int64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
