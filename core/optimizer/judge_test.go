package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testJudge() Judge {
	return Judge{ZScore: 1.96, MinArmSamples: 2, NoiseFloor: 0.05}
}

func TestJudgeStopsWhenBudgetExhausted(t *testing.T) {
	judge := testJudge()
	stats := ComputeArmStats([]int{32, 64}, trialsWithCosts(map[int][]float64{
		32: {10},
		64: {8, 8},
	}))

	verdict := judge.Evaluate(3, 3, stats)

	assert.True(t, verdict.Stop)
	assert.Equal(t, ReasonBudgetExhausted, verdict.Reason)
	assert.Equal(t, 64, verdict.BestBatchSize)
}

func TestJudgeContinuesBeforeWarmupCompletes(t *testing.T) {
	judge := testJudge()
	// Arm 128 has never been sampled, so no ranking can be stable yet
	// no matter how separated the sampled arms look.
	stats := ComputeArmStats([]int{32, 64, 128}, trialsWithCosts(map[int][]float64{
		32: {100, 100, 100},
		64: {1, 1, 1},
	}))

	verdict := judge.Evaluate(50, 6, stats)

	assert.False(t, verdict.Stop)
}

func TestJudgeRequiresMinimumBestArmSamples(t *testing.T) {
	judge := testJudge()
	// Every arm sampled once with wide separation: still no stop,
	// because a single measurement of the best arm is not trusted.
	stats := ComputeArmStats([]int{32, 64, 128}, trialsWithCosts(map[int][]float64{
		32:  {50},
		64:  {1},
		128: {80},
	}))

	verdict := judge.Evaluate(50, 3, stats)

	assert.False(t, verdict.Stop)
	assert.Equal(t, 64, verdict.BestBatchSize)
}

func TestJudgeStopsOnDisjointConfidenceIntervals(t *testing.T) {
	judge := testJudge()
	stats := ComputeArmStats([]int{32, 64, 128}, trialsWithCosts(map[int][]float64{
		32:  {5},
		64:  {4, 4, 4},
		128: {6},
	}))

	verdict := judge.Evaluate(50, 5, stats)

	assert.True(t, verdict.Stop)
	assert.Equal(t, ReasonConverged, verdict.Reason)
	assert.Equal(t, 64, verdict.BestBatchSize)
}

func TestJudgeContinuesWhileIntervalsOverlap(t *testing.T) {
	judge := testJudge()
	stats := ComputeArmStats([]int{32, 64}, trialsWithCosts(map[int][]float64{
		32: {4.3},
		64: {4, 4},
	}))

	verdict := judge.Evaluate(50, 3, stats)

	assert.False(t, verdict.Stop)
	assert.Equal(t, 64, verdict.BestBatchSize)
}

func TestJudgeReportsBestObservedArmNotLastTried(t *testing.T) {
	judge := testJudge()
	// Arm 64 was measured early and never revisited; it still has the
	// lowest mean and must be the reported best at a budget stop.
	stats := ComputeArmStats([]int{32, 64, 128}, trialsWithCosts(map[int][]float64{
		32:  {9, 9, 9},
		64:  {4},
		128: {7, 7},
	}))

	verdict := judge.Evaluate(6, 6, stats)

	assert.True(t, verdict.Stop)
	assert.Equal(t, ReasonBudgetExhausted, verdict.Reason)
	assert.Equal(t, 64, verdict.BestBatchSize)
}
