package models

import "time"

// Job is one batch size optimization context for a training job.
// Its arm set (the candidate batch sizes) is fixed at registration
// and every trial reported for the job must reference one of them.
type Job struct {
	ID               string
	BatchSizes       []int // candidate batch sizes, ascending
	DefaultBatchSize int
	MaxTrials        int
	EtaKnob          float64 // time/energy trade-off weight in [0,1]
	MaxPower         float64 // power normalization constant for the cost formula
	State            JobState
	StopReason       string
	BestBatchSize    *int     // set when the job reaches a terminal state
	MinCost          *float64 // lowest single-trial cost observed so far
	MinCostBatchSize *int     // batch size that produced MinCost
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// JobState represents the lifecycle state of a job
type JobState string

const (
	JobStateRegistered JobState = "registered"
	JobStateExploring  JobState = "exploring"
	JobStateConverged  JobState = "converged"
	JobStateStopped    JobState = "stopped"
)

// Terminal reports whether the job can accept further trials
func (j *Job) Terminal() bool {
	return j.State == JobStateConverged || j.State == JobStateStopped
}

// HasArm reports whether bs is a member of the job's arm set
func (j *Job) HasArm(bs int) bool {
	for _, b := range j.BatchSizes {
		if b == bs {
			return true
		}
	}
	return false
}

// JobConfig is the caller-supplied configuration for registering a
// job. EtaKnob is a pointer so an omitted knob can be told apart from
// an explicit 0 (pure time optimization); MaxTrials and MaxPower fall
// back to server defaults when left at zero.
type JobConfig struct {
	JobID            string   `json:"job_id"`
	BatchSizes       []int    `json:"batch_sizes"`
	DefaultBatchSize int      `json:"default_batch_size"`
	MaxTrials        int      `json:"max_trials"`
	EtaKnob          *float64 `json:"eta_knob"`
	MaxPower         float64  `json:"max_power"`
}

// JobUpdate describes the job-row mutation applied atomically with a
// trial append: the lifecycle transition plus running minimum tracking.
type JobUpdate struct {
	State            JobState
	StopReason       string
	BestBatchSize    *int
	MinCost          *float64
	MinCostBatchSize *int
}

// JobHandle is returned on registration and carries the first
// batch size the training job should try.
type JobHandle struct {
	JobID     string `json:"job_id"`
	BatchSize int    `json:"batch_size"`
	SeqNo     int    `json:"seq_no"`
}

// ArmSnapshot summarizes the observed cost of one batch size
type ArmSnapshot struct {
	BatchSize  int     `json:"batch_size"`
	TrialCount int     `json:"trial_count"`
	MeanCost   float64 `json:"mean_cost"`
	CostStdDev float64 `json:"cost_std_dev"`
}

// JobSnapshot is a read-only view of a job and its derived statistics,
// recomputed from the persisted trial log on every read.
type JobSnapshot struct {
	JobID            string        `json:"job_id"`
	BatchSizes       []int         `json:"batch_sizes"`
	DefaultBatchSize int           `json:"default_batch_size"`
	MaxTrials        int           `json:"max_trials"`
	EtaKnob          float64       `json:"eta_knob"`
	MaxPower         float64       `json:"max_power"`
	State            JobState      `json:"state"`
	StopReason       string        `json:"stop_reason,omitempty"`
	TrialCount       int           `json:"trial_count"`
	BestBatchSize    int           `json:"best_batch_size,omitempty"`
	Arms             []ArmSnapshot `json:"arms"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
