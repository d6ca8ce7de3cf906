package optimizer

import (
	"sync"
	"testing"

	"batch-size-optimizer/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func newTestEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewEngine(store, Config{}, nil), store
}

// registerScenarioJob registers a three-arm job: arms [32, 64, 128],
// default 32, pure-energy cost so trial costs are exactly the reported
// energy values.
func registerScenarioJob(t *testing.T, e *Engine, jobID string) *models.JobHandle {
	t.Helper()
	handle, err := e.RegisterJob(models.JobConfig{
		JobID:            jobID,
		BatchSizes:       []int{32, 64, 128},
		DefaultBatchSize: 32,
		MaxTrials:        50,
		EtaKnob:          fptr(1.0),
	})
	require.NoError(t, err)
	require.Equal(t, 32, handle.BatchSize)
	require.Equal(t, 1, handle.SeqNo)
	return handle
}

func TestRegisterJobValidation(t *testing.T) {
	tests := map[string]struct {
		cfg  models.JobConfig
		code ErrorCode
	}{
		"empty job id": {
			cfg:  models.JobConfig{BatchSizes: []int{32}, DefaultBatchSize: 32},
			code: CodeInvalidConfig,
		},
		"empty arm set": {
			cfg:  models.JobConfig{JobID: "j", DefaultBatchSize: 32},
			code: CodeInvalidConfig,
		},
		"default outside arm set": {
			cfg:  models.JobConfig{JobID: "j", BatchSizes: []int{32, 64}, DefaultBatchSize: 100},
			code: CodeInvalidConfig,
		},
		"non-positive batch size": {
			cfg:  models.JobConfig{JobID: "j", BatchSizes: []int{0, 32}, DefaultBatchSize: 32},
			code: CodeInvalidConfig,
		},
		"duplicate batch size": {
			cfg:  models.JobConfig{JobID: "j", BatchSizes: []int{32, 32, 64}, DefaultBatchSize: 32},
			code: CodeInvalidConfig,
		},
		"eta knob out of range": {
			cfg: models.JobConfig{
				JobID: "j", BatchSizes: []int{32}, DefaultBatchSize: 32, EtaKnob: fptr(1.5),
			},
			code: CodeInvalidConfig,
		},
		"negative max trials": {
			cfg: models.JobConfig{
				JobID: "j", BatchSizes: []int{32}, DefaultBatchSize: 32, MaxTrials: -1,
			},
			code: CodeInvalidConfig,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			engine, _ := newTestEngine(t)
			_, err := engine.RegisterJob(tc.cfg)
			require.Error(t, err)
			assert.True(t, IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestRegisterJobRejectsDuplicateID(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	_, err := engine.RegisterJob(models.JobConfig{
		JobID:            "J1",
		BatchSizes:       []int{32, 64, 128},
		DefaultBatchSize: 32,
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeAlreadyExists), "got %v", err)
}

func TestRegisterJobSortsArmSet(t *testing.T) {
	engine, store := newTestEngine(t)
	_, err := engine.RegisterJob(models.JobConfig{
		JobID:            "J1",
		BatchSizes:       []int{1024, 32, 256},
		DefaultBatchSize: 256,
	})
	require.NoError(t, err)

	job, err := store.GetJob("J1")
	require.NoError(t, err)
	assert.Equal(t, []int{32, 256, 1024}, job.BatchSizes)
	assert.Equal(t, models.JobStateRegistered, job.State)
}

func TestWarmupRecommendsEveryArmBeforeRepeating(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	d1, applied, err := engine.ReportTrial(models.TrialReport{
		JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 5,
	})
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, models.DecisionContinue, d1.Kind)
	assert.Equal(t, 64, d1.NextBatchSize)
	assert.Equal(t, 2, d1.NextSeqNo)

	d2, _, err := engine.ReportTrial(models.TrialReport{
		JobID: "J1", SeqNo: 2, BatchSize: 64, TimeCost: 6, EnergyCost: 4,
	})
	require.NoError(t, err)
	require.Equal(t, models.DecisionContinue, d2.Kind)
	assert.Equal(t, 128, d2.NextBatchSize)

	// The third report completes warm-up; the engine must not stop
	// before every arm has a sample.
	d3, _, err := engine.ReportTrial(models.TrialReport{
		JobID: "J1", SeqNo: 3, BatchSize: 128, TimeCost: 4, EnergyCost: 6,
	})
	require.NoError(t, err)
	require.Equal(t, models.DecisionContinue, d3.Kind)
	assert.Equal(t, 64, d3.NextBatchSize)
}

func TestConvergenceStopsOnClearBestArm(t *testing.T) {
	engine, store := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	warmup := []models.TrialReport{
		{JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 5},
		{JobID: "J1", SeqNo: 2, BatchSize: 64, TimeCost: 6, EnergyCost: 4},
		{JobID: "J1", SeqNo: 3, BatchSize: 128, TimeCost: 4, EnergyCost: 6},
	}
	for _, r := range warmup {
		_, _, err := engine.ReportTrial(r)
		require.NoError(t, err)
	}

	// Repeated measurements of arm 64 pull its confidence interval
	// clear of the single samples on 32 and 128.
	var final *models.Decision
	for seq := 4; seq <= 5; seq++ {
		d, _, err := engine.ReportTrial(models.TrialReport{
			JobID: "J1", SeqNo: seq, BatchSize: 64, TimeCost: 6, EnergyCost: 4,
		})
		require.NoError(t, err)
		final = d
		if d.Kind == models.DecisionStop {
			break
		}
	}

	require.Equal(t, models.DecisionStop, final.Kind)
	assert.Equal(t, ReasonConverged, final.Reason)
	assert.Equal(t, 64, final.BestBatchSize)

	job, err := store.GetJob("J1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateConverged, job.State)
	require.NotNil(t, job.BestBatchSize)
	assert.Equal(t, 64, *job.BestBatchSize)
}

func TestTerminalJobRejectsFurtherReports(t *testing.T) {
	engine, store := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")
	seq := driveToStop(t, engine, "J1")

	before, err := store.ListTrials("J1")
	require.NoError(t, err)

	_, _, err = engine.ReportTrial(models.TrialReport{
		JobID: "J1", SeqNo: seq + 1, BatchSize: 64, TimeCost: 6, EnergyCost: 4,
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeJobAlreadyTerminal), "got %v", err)

	after, err := store.ListTrials("J1")
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}

func TestInvalidArmRejectedWithoutMutation(t *testing.T) {
	engine, store := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	_, _, err := engine.ReportTrial(models.TrialReport{
		JobID: "J1", SeqNo: 1, BatchSize: 100, TimeCost: 10, EnergyCost: 5,
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeInvalidArm), "got %v", err)

	trials, err := store.ListTrials("J1")
	require.NoError(t, err)
	assert.Empty(t, trials)
}

func TestSequenceGapRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	_, _, err := engine.ReportTrial(models.TrialReport{
		JobID: "J1", SeqNo: 3, BatchSize: 32, TimeCost: 10, EnergyCost: 5,
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeSequenceGap), "got %v", err)
}

func TestUnknownJobReport(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, _, err := engine.ReportTrial(models.TrialReport{
		JobID: "nope", SeqNo: 1, BatchSize: 32, TimeCost: 1, EnergyCost: 1,
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeUnknownJob), "got %v", err)
}

func TestDuplicateReportIsIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	report := models.TrialReport{JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 5}

	first, applied, err := engine.ReportTrial(report)
	require.NoError(t, err)
	require.True(t, applied)

	second, applied, err := engine.ReportTrial(report)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, first, second)

	trials, err := store.ListTrials("J1")
	require.NoError(t, err)
	assert.Len(t, trials, 1)
}

func TestDuplicateReportWithDifferentPayloadRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	_, _, err := engine.ReportTrial(models.TrialReport{
		JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 5,
	})
	require.NoError(t, err)

	_, _, err = engine.ReportTrial(models.TrialReport{
		JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 9,
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeDuplicateMismatch), "got %v", err)
}

func TestDuplicateReportSurvivesRestart(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, Config{}, nil)
	registerScenarioJob(t, engine, "J1")

	report := models.TrialReport{JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 5}
	first, _, err := engine.ReportTrial(report)
	require.NoError(t, err)

	// A fresh engine over the same store has an empty decision cache
	// and must replay the identical decision from the trial log.
	restarted := NewEngine(store, Config{}, nil)
	second, applied, err := restarted.ReportTrial(report)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, first, second)
}

func TestBudgetExhaustionStopsWithBestObservedArm(t *testing.T) {
	engine, store := newTestEngine(t)
	_, err := engine.RegisterJob(models.JobConfig{
		JobID:            "J2",
		BatchSizes:       []int{32, 64},
		DefaultBatchSize: 32,
		MaxTrials:        3,
		EtaKnob:          fptr(1.0),
	})
	require.NoError(t, err)

	reports := []models.TrialReport{
		{JobID: "J2", SeqNo: 1, BatchSize: 32, TimeCost: 5, EnergyCost: 10},
		{JobID: "J2", SeqNo: 2, BatchSize: 64, TimeCost: 5, EnergyCost: 8},
		{JobID: "J2", SeqNo: 3, BatchSize: 64, TimeCost: 5, EnergyCost: 8},
	}
	var final *models.Decision
	for _, r := range reports {
		d, _, err := engine.ReportTrial(r)
		require.NoError(t, err)
		final = d
	}

	require.Equal(t, models.DecisionStop, final.Kind)
	assert.Equal(t, ReasonBudgetExhausted, final.Reason)
	assert.Equal(t, 64, final.BestBatchSize)

	job, err := store.GetJob("J2")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateStopped, job.State)
}

func TestConcurrentWorkersCollapseToOneTrial(t *testing.T) {
	engine, store := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	const workers = 8
	report := models.TrialReport{JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 5}

	var wg sync.WaitGroup
	decisions := make([]*models.Decision, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], _, errs[i] = engine.ReportTrial(report)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, decisions[0], decisions[i])
	}

	trials, err := store.ListTrials("J1")
	require.NoError(t, err)
	assert.Len(t, trials, 1)
}

func TestSequenceNumbersAreGapFree(t *testing.T) {
	engine, store := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	seq := 1
	bs := 32
	for i := 0; i < 10; i++ {
		d, _, err := engine.ReportTrial(models.TrialReport{
			JobID: "J1", SeqNo: seq, BatchSize: bs,
			TimeCost: float64(10 + i), EnergyCost: float64(5 + i%3),
		})
		require.NoError(t, err)
		if d.Kind == models.DecisionStop {
			break
		}
		seq = d.NextSeqNo
		bs = d.NextBatchSize
	}

	trials, err := store.ListTrials("J1")
	require.NoError(t, err)
	for i, trial := range trials {
		assert.Equal(t, i+1, trial.SeqNo)
	}
}

func TestGetStateRecomputesFromTrialLog(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	reports := []models.TrialReport{
		{JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 5},
		{JobID: "J1", SeqNo: 2, BatchSize: 64, TimeCost: 6, EnergyCost: 4},
	}
	for _, r := range reports {
		_, _, err := engine.ReportTrial(r)
		require.NoError(t, err)
	}

	snap, err := engine.GetState("J1")
	require.NoError(t, err)

	assert.Equal(t, "J1", snap.JobID)
	assert.Equal(t, models.JobStateExploring, snap.State)
	assert.Equal(t, 2, snap.TrialCount)
	assert.Equal(t, 64, snap.BestBatchSize)
	require.Len(t, snap.Arms, 3)
	assert.Equal(t, 1, snap.Arms[0].TrialCount)
	assert.Equal(t, 5.0, snap.Arms[0].MeanCost)
	assert.Equal(t, 4.0, snap.Arms[1].MeanCost)
	assert.Equal(t, 0, snap.Arms[2].TrialCount)

	// A fresh engine over the same store must derive the same view.
	restartedSnap, err := NewEngine(engineStore(engine), Config{}, nil).GetState("J1")
	require.NoError(t, err)
	assert.Equal(t, snap, restartedSnap)
}

// engineStore exposes the store for restart-style tests
func engineStore(e *Engine) Store { return e.store }

func TestUnknownJobState(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.GetState("nope")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeUnknownJob), "got %v", err)

	_, err = engine.ListTrials("nope")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeUnknownJob), "got %v", err)
}

func TestMinCostTracking(t *testing.T) {
	engine, store := newTestEngine(t)
	registerScenarioJob(t, engine, "J1")

	reports := []models.TrialReport{
		{JobID: "J1", SeqNo: 1, BatchSize: 32, TimeCost: 10, EnergyCost: 5},
		{JobID: "J1", SeqNo: 2, BatchSize: 64, TimeCost: 6, EnergyCost: 4},
		{JobID: "J1", SeqNo: 3, BatchSize: 128, TimeCost: 4, EnergyCost: 6},
	}
	for _, r := range reports {
		_, _, err := engine.ReportTrial(r)
		require.NoError(t, err)
	}

	job, err := store.GetJob("J1")
	require.NoError(t, err)
	require.NotNil(t, job.MinCost)
	assert.Equal(t, 4.0, *job.MinCost)
	require.NotNil(t, job.MinCostBatchSize)
	assert.Equal(t, 64, *job.MinCostBatchSize)
}

// driveToStop reports deterministic outcomes until the job stops and
// returns the last sequence number used.
func driveToStop(t *testing.T, e *Engine, jobID string) int {
	t.Helper()
	costs := map[int]struct{ time, energy float64 }{
		32:  {10, 5},
		64:  {6, 4},
		128: {4, 6},
	}
	seq := 1
	bs := 32
	for i := 0; i < 100; i++ {
		c := costs[bs]
		d, _, err := e.ReportTrial(models.TrialReport{
			JobID: jobID, SeqNo: seq, BatchSize: bs, TimeCost: c.time, EnergyCost: c.energy,
		})
		require.NoError(t, err)
		if d.Kind == models.DecisionStop {
			return seq
		}
		seq = d.NextSeqNo
		bs = d.NextBatchSize
	}
	t.Fatalf("job %s never stopped", jobID)
	return 0
}

