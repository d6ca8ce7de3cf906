package repository

import (
	"database/sql"

	"batch-size-optimizer/core/models"

	"github.com/pkg/errors"
)

// TrialRepository handles database operations for the append-only
// trial log
type TrialRepository struct {
	db *DB
}

// NewTrialRepository creates a new trial repository
func NewTrialRepository(db *DB) *TrialRepository {
	return &TrialRepository{db: db}
}

// ListTrials retrieves a job's trials ordered by sequence number
func (r *TrialRepository) ListTrials(jobID string) ([]models.Trial, error) {
	query := `
		SELECT job_id, seq_no, batch_size, time_cost, energy_cost, cost, recorded_at
		FROM trials
		WHERE job_id = $1
		ORDER BY seq_no ASC
	`

	rows, err := r.db.Query(query, jobID)
	if err != nil {
		return nil, errors.Wrap(err, "select trials")
	}
	defer rows.Close()

	var trials []models.Trial
	for rows.Next() {
		var t models.Trial
		if err := rows.Scan(
			&t.JobID,
			&t.SeqNo,
			&t.BatchSize,
			&t.TimeCost,
			&t.EnergyCost,
			&t.Cost,
			&t.RecordedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan trial")
		}
		trials = append(trials, t)
	}
	return trials, errors.Wrap(rows.Err(), "iterate trials")
}

// insertTrialTx appends a trial row inside an open transaction
func (r *TrialRepository) insertTrialTx(tx *sql.Tx, trial *models.Trial) error {
	query := `
		INSERT INTO trials (job_id, seq_no, batch_size, time_cost, energy_cost, cost, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(query,
		trial.JobID,
		trial.SeqNo,
		trial.BatchSize,
		trial.TimeCost,
		trial.EnergyCost,
		trial.Cost,
		trial.RecordedAt,
	)
	return errors.Wrap(err, "insert trial")
}
