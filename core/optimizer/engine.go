package optimizer

import (
	"fmt"
	"sort"
	"time"

	"batch-size-optimizer/core/models"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// Config tunes the engine's policy, judge, and per-job defaults
type Config struct {
	Exploration       float64 // policy exploration bonus weight
	ZScore            float64 // judge confidence interval half-width multiplier
	MinArmSamples     int     // judge minimum best-arm samples before convergence
	NoiseFloor        float64 // assumed relative measurement noise floor
	DecisionCacheSize int     // bounded cache for idempotent report replies

	DefaultEtaKnob   float64 // per-job eta when the caller omits it
	DefaultMaxTrials int     // per-job trial budget when the caller omits it
	DefaultMaxPower  float64 // per-job power normalization when the caller omits it
}

// DefaultConfig returns the stock engine tuning
func DefaultConfig() Config {
	return Config{
		Exploration:       1.96,
		ZScore:            1.96,
		MinArmSamples:     2,
		NoiseFloor:        0.05,
		DecisionCacheSize: 4096,
		DefaultEtaKnob:    0.5,
		DefaultMaxTrials:  100,
		DefaultMaxPower:   1.0,
	}
}

// Engine is the optimization orchestrator: it owns all mutation of the
// trial history store, serializes state transitions per job, and turns
// reported outcomes into next-batch-size decisions via the policy and
// judge. All of its derived state is recomputable from the store, so a
// restarted engine picks up exactly where the previous process stopped.
type Engine struct {
	store  Store
	cfg    Config
	policy Policy
	judge  Judge
	locks  *jobLocks
	cache  *lru.Cache // (job_id, seq_no) -> *models.Decision
	log    logrus.FieldLogger
}

// NewEngine creates an engine over the given store. Zero fields in cfg
// are filled from DefaultConfig.
func NewEngine(store Store, cfg Config, log logrus.FieldLogger) *Engine {
	def := DefaultConfig()
	if cfg.Exploration == 0 {
		cfg.Exploration = def.Exploration
	}
	if cfg.ZScore == 0 {
		cfg.ZScore = def.ZScore
	}
	if cfg.MinArmSamples == 0 {
		cfg.MinArmSamples = def.MinArmSamples
	}
	if cfg.NoiseFloor == 0 {
		cfg.NoiseFloor = def.NoiseFloor
	}
	if cfg.DecisionCacheSize == 0 {
		cfg.DecisionCacheSize = def.DecisionCacheSize
	}
	if cfg.DefaultEtaKnob == 0 {
		cfg.DefaultEtaKnob = def.DefaultEtaKnob
	}
	if cfg.DefaultMaxTrials == 0 {
		cfg.DefaultMaxTrials = def.DefaultMaxTrials
	}
	if cfg.DefaultMaxPower == 0 {
		cfg.DefaultMaxPower = def.DefaultMaxPower
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	cache, _ := lru.New(cfg.DecisionCacheSize)
	return &Engine{
		store:  store,
		cfg:    cfg,
		policy: Policy{Exploration: cfg.Exploration, NoiseFloor: cfg.NoiseFloor},
		judge:  Judge{ZScore: cfg.ZScore, MinArmSamples: cfg.MinArmSamples, NoiseFloor: cfg.NoiseFloor},
		locks:  newJobLocks(),
		cache:  cache,
		log:    log,
	}
}

// RegisterJob validates and persists a new job and returns the first
// batch size the training job should run.
func (e *Engine) RegisterJob(cfg models.JobConfig) (*models.JobHandle, error) {
	job, err := e.buildJob(cfg)
	if err != nil {
		return nil, err
	}

	if err := e.store.CreateJob(job); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"arms":       job.BatchSizes,
		"max_trials": job.MaxTrials,
	}).Info("Registered job")

	return &models.JobHandle{JobID: job.ID, BatchSize: job.DefaultBatchSize, SeqNo: 1}, nil
}

// ReportTrial records one training outcome and returns the decision
// for what the job should do next. Calls for the same job are applied
// one at a time under the per-job lock; a retransmission of an
// already-processed sequence number returns the original decision
// without touching history. applied reports whether this call appended
// a new trial, as opposed to answering a duplicate from the log.
func (e *Engine) ReportTrial(report models.TrialReport) (decision *models.Decision, applied bool, err error) {
	lk := e.locks.acquire(report.JobID)
	reclaim := false
	defer func() { e.locks.release(report.JobID, lk, reclaim) }()

	job, err := e.store.GetJob(report.JobID)
	if err != nil {
		reclaim = true
		return nil, false, err
	}

	trials, err := e.store.ListTrials(report.JobID)
	if err != nil {
		return nil, false, err
	}
	next := len(trials) + 1

	if report.SeqNo >= 1 && report.SeqNo < next {
		reclaim = job.Terminal()
		decision, err = e.replayDecision(job, trials, report)
		return decision, false, err
	}

	if job.Terminal() {
		reclaim = true
		return nil, false, NewError(CodeJobAlreadyTerminal, job.ID, string(job.State),
			"job is %s (%s), no further trials accepted", job.State, job.StopReason)
	}

	if !job.HasArm(report.BatchSize) {
		return nil, false, NewError(CodeInvalidArm, job.ID, fmt.Sprintf("%d", report.BatchSize),
			"batch size %d is not in the job's arm set %v", report.BatchSize, job.BatchSizes)
	}

	if report.SeqNo != next {
		return nil, false, NewError(CodeSequenceGap, job.ID, fmt.Sprintf("%d", report.SeqNo),
			"trial seq_no %d out of order, expected %d", report.SeqNo, next)
	}

	trial := models.Trial{
		JobID:      job.ID,
		SeqNo:      report.SeqNo,
		BatchSize:  report.BatchSize,
		TimeCost:   report.TimeCost,
		EnergyCost: report.EnergyCost,
		Cost:       TrialCost(report.EnergyCost, report.TimeCost, job.EtaKnob, job.MaxPower),
		RecordedAt: time.Now().UTC(),
	}

	stats := ComputeArmStats(job.BatchSizes, append(trials, trial))
	decision = e.decide(job, trial.SeqNo, stats)

	update := models.JobUpdate{
		State:            models.JobStateExploring,
		BestBatchSize:    job.BestBatchSize,
		MinCost:          job.MinCost,
		MinCostBatchSize: job.MinCostBatchSize,
	}
	if job.MinCost == nil || trial.Cost < *job.MinCost {
		cost, bs := trial.Cost, trial.BatchSize
		update.MinCost = &cost
		update.MinCostBatchSize = &bs
	}
	if decision.Kind == models.DecisionStop {
		if decision.Reason == ReasonConverged {
			update.State = models.JobStateConverged
		} else {
			update.State = models.JobStateStopped
		}
		update.StopReason = decision.Reason
		best := decision.BestBatchSize
		update.BestBatchSize = &best
	}

	if err := e.store.AppendTrial(&trial, update); err != nil {
		return nil, false, err
	}

	e.cache.Add(decisionKey(job.ID, trial.SeqNo), decision)
	reclaim = decision.Kind == models.DecisionStop

	e.log.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"seq_no":     trial.SeqNo,
		"batch_size": trial.BatchSize,
		"cost":       trial.Cost,
		"decision":   decision.Kind,
	}).Info("Recorded trial")

	return decision, true, nil
}

// GetState returns a read-only snapshot of a job with its arm
// statistics recomputed from the persisted trial log.
func (e *Engine) GetState(jobID string) (*models.JobSnapshot, error) {
	job, err := e.store.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	trials, err := e.store.ListTrials(jobID)
	if err != nil {
		return nil, err
	}

	stats := ComputeArmStats(job.BatchSizes, trials)
	snap := &models.JobSnapshot{
		JobID:            job.ID,
		BatchSizes:       job.BatchSizes,
		DefaultBatchSize: job.DefaultBatchSize,
		MaxTrials:        job.MaxTrials,
		EtaKnob:          job.EtaKnob,
		MaxPower:         job.MaxPower,
		State:            job.State,
		StopReason:       job.StopReason,
		TrialCount:       len(trials),
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
	for i := range stats {
		snap.Arms = append(snap.Arms, models.ArmSnapshot{
			BatchSize:  stats[i].BatchSize,
			TrialCount: stats[i].Count,
			MeanCost:   stats[i].Mean,
			CostStdDev: stats[i].StdDev(),
		})
	}
	if job.BestBatchSize != nil {
		snap.BestBatchSize = *job.BestBatchSize
	} else if len(trials) > 0 {
		best, _ := bestArm(stats)
		snap.BestBatchSize = stats[best].BatchSize
	}
	return snap, nil
}

// ListTrials returns the job's trial log for audit and replay
func (e *Engine) ListTrials(jobID string) ([]models.Trial, error) {
	if _, err := e.store.GetJob(jobID); err != nil {
		return nil, err
	}
	return e.store.ListTrials(jobID)
}

// replayDecision answers a duplicate report. The payload must match
// the stored trial exactly; the reply is served from the decision
// cache, or recomputed by replaying the log prefix when the cache was
// lost to a restart. Replay yields the identical decision because the
// policy and judge are deterministic over history.
func (e *Engine) replayDecision(job *models.Job, trials []models.Trial, report models.TrialReport) (*models.Decision, error) {
	stored := trials[report.SeqNo-1]
	if stored.BatchSize != report.BatchSize ||
		stored.TimeCost != report.TimeCost ||
		stored.EnergyCost != report.EnergyCost {
		return nil, NewError(CodeDuplicateMismatch, job.ID, fmt.Sprintf("%d", report.SeqNo),
			"trial seq_no %d was already reported with a different payload", report.SeqNo)
	}

	key := decisionKey(job.ID, report.SeqNo)
	if cached, ok := e.cache.Get(key); ok {
		return cached.(*models.Decision), nil
	}

	stats := ComputeArmStats(job.BatchSizes, trials[:report.SeqNo])
	decision := e.decide(job, report.SeqNo, stats)
	e.cache.Add(key, decision)

	e.log.WithFields(logrus.Fields{
		"job_id": job.ID,
		"seq_no": report.SeqNo,
	}).Debug("Replayed decision for duplicate report")

	return decision, nil
}

// decide turns the post-trial statistics into a decision. seq is the
// sequence number of the trial being answered.
func (e *Engine) decide(job *models.Job, seq int, stats []ArmStats) *models.Decision {
	verdict := e.judge.Evaluate(job.MaxTrials, seq, stats)
	decision := &models.Decision{JobID: job.ID, SeqNo: seq}
	if verdict.Stop {
		decision.Kind = models.DecisionStop
		decision.Reason = verdict.Reason
		decision.BestBatchSize = verdict.BestBatchSize
		return decision
	}
	decision.Kind = models.DecisionContinue
	decision.NextBatchSize = e.policy.NextBatchSize(stats)
	decision.NextSeqNo = seq + 1
	return decision
}

func (e *Engine) buildJob(cfg models.JobConfig) (*models.Job, error) {
	if cfg.JobID == "" {
		return nil, NewError(CodeInvalidConfig, "", "", "job_id must not be empty")
	}
	if len(cfg.BatchSizes) == 0 {
		return nil, NewError(CodeInvalidConfig, cfg.JobID, "", "batch_sizes must not be empty")
	}

	arms := make([]int, len(cfg.BatchSizes))
	copy(arms, cfg.BatchSizes)
	sort.Ints(arms)
	for i, bs := range arms {
		if bs <= 0 {
			return nil, NewError(CodeInvalidConfig, cfg.JobID, fmt.Sprintf("%d", bs),
				"batch sizes must be positive, got %d", bs)
		}
		if i > 0 && arms[i-1] == bs {
			return nil, NewError(CodeInvalidConfig, cfg.JobID, fmt.Sprintf("%d", bs),
				"duplicate batch size %d in arm set", bs)
		}
	}

	job := &models.Job{
		ID:               cfg.JobID,
		BatchSizes:       arms,
		DefaultBatchSize: cfg.DefaultBatchSize,
		MaxTrials:        cfg.MaxTrials,
		EtaKnob:          e.cfg.DefaultEtaKnob,
		MaxPower:         cfg.MaxPower,
		State:            models.JobStateRegistered,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if !job.HasArm(job.DefaultBatchSize) {
		return nil, NewError(CodeInvalidConfig, cfg.JobID, fmt.Sprintf("%d", job.DefaultBatchSize),
			"default_batch_size %d is not in batch_sizes %v", job.DefaultBatchSize, arms)
	}
	if job.MaxTrials == 0 {
		job.MaxTrials = e.cfg.DefaultMaxTrials
	}
	if job.MaxTrials < 1 {
		return nil, NewError(CodeInvalidConfig, cfg.JobID, fmt.Sprintf("%d", job.MaxTrials),
			"max_trials must be positive, got %d", job.MaxTrials)
	}
	if cfg.EtaKnob != nil {
		if *cfg.EtaKnob < 0 || *cfg.EtaKnob > 1 {
			return nil, NewError(CodeInvalidConfig, cfg.JobID, fmt.Sprintf("%g", *cfg.EtaKnob),
				"eta_knob must be in [0,1], got %g", *cfg.EtaKnob)
		}
		job.EtaKnob = *cfg.EtaKnob
	}
	if job.MaxPower == 0 {
		job.MaxPower = e.cfg.DefaultMaxPower
	}
	if job.MaxPower < 0 {
		return nil, NewError(CodeInvalidConfig, cfg.JobID, fmt.Sprintf("%g", job.MaxPower),
			"max_power must be positive, got %g", job.MaxPower)
	}
	return job, nil
}

func decisionKey(jobID string, seqNo int) string {
	return fmt.Sprintf("%s/%d", jobID, seqNo)
}
