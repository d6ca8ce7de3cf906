package models

// DecisionKind tells the training job whether to keep going
type DecisionKind string

const (
	DecisionContinue DecisionKind = "continue"
	DecisionStop     DecisionKind = "stop"
)

// Decision is the optimizer's answer to one trial report. For a
// Continue decision NextBatchSize and NextSeqNo describe the trial the
// job should run next; for a Stop decision BestBatchSize is the arm
// with the lowest estimated cost and Reason explains the stop.
type Decision struct {
	JobID         string       `json:"job_id"`
	SeqNo         int          `json:"seq_no"`
	Kind          DecisionKind `json:"decision"`
	NextBatchSize int          `json:"next_batch_size,omitempty"`
	NextSeqNo     int          `json:"next_seq_no,omitempty"`
	BestBatchSize int          `json:"best_batch_size,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}
