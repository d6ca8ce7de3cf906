package models

import "time"

// Trial is one reported training outcome for a job. Trials are
// append-only: once stored they are never updated or deleted, and
// their sequence numbers are strictly increasing and gap-free.
type Trial struct {
	JobID      string    `json:"job_id"`
	SeqNo      int       `json:"seq_no"`
	BatchSize  int       `json:"batch_size"`
	TimeCost   float64   `json:"time"`
	EnergyCost float64   `json:"energy"`
	Cost       float64   `json:"cost"` // scalarized from time and energy at report time
	RecordedAt time.Time `json:"recorded_at"`
}

// TrialReport is the payload a training worker submits after running
// one trial at the recommended batch size. (job_id, seq_no) doubles as
// the idempotency key: retransmissions of a processed sequence number
// return the originally computed decision.
type TrialReport struct {
	JobID      string  `json:"job_id"`
	SeqNo      int     `json:"seq_no"`
	BatchSize  int     `json:"batch_size"`
	TimeCost   float64 `json:"time"`
	EnergyCost float64 `json:"energy"`
}
