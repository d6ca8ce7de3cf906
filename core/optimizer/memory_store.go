package optimizer

import (
	"sync"
	"time"

	"batch-size-optimizer/core/models"
)

// MemoryStore is an in-process Store used by tests and for running the
// server without Postgres. It honors the same contract as the SQL
// store: AppendTrial applies the trial and the job update as one unit
// under its mutex.
type MemoryStore struct {
	mu     sync.Mutex
	jobs   map[string]*models.Job
	trials map[string][]models.Trial
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[string]*models.Job),
		trials: make(map[string][]models.Trial),
	}
}

// CreateJob persists a new job
func (s *MemoryStore) CreateJob(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return NewError(CodeAlreadyExists, job.ID, "",
			"job %s is already registered; use a new job_id for a different configuration", job.ID)
	}
	cp := cloneJob(job)
	s.jobs[job.ID] = cp
	return nil
}

// GetJob retrieves a job by id
func (s *MemoryStore) GetJob(jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, NewError(CodeUnknownJob, jobID, "", "job %s is not registered", jobID)
	}
	return cloneJob(job), nil
}

// ListTrials retrieves a job's trials ordered by sequence number
func (s *MemoryStore) ListTrials(jobID string) ([]models.Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trials := s.trials[jobID]
	out := make([]models.Trial, len(trials))
	copy(out, trials)
	return out, nil
}

// AppendTrial appends the trial and applies the job update atomically
func (s *MemoryStore) AppendTrial(trial *models.Trial, update models.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[trial.JobID]
	if !ok {
		return NewError(CodeUnknownJob, trial.JobID, "", "job %s is not registered", trial.JobID)
	}

	s.trials[trial.JobID] = append(s.trials[trial.JobID], *trial)
	job.State = update.State
	job.StopReason = update.StopReason
	job.BestBatchSize = copyInt(update.BestBatchSize)
	job.MinCost = copyFloat(update.MinCost)
	job.MinCostBatchSize = copyInt(update.MinCostBatchSize)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneJob(job *models.Job) *models.Job {
	cp := *job
	cp.BatchSizes = append([]int(nil), job.BatchSizes...)
	cp.BestBatchSize = copyInt(job.BestBatchSize)
	cp.MinCost = copyFloat(job.MinCost)
	cp.MinCostBatchSize = copyInt(job.MinCostBatchSize)
	return &cp
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
