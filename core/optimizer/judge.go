package optimizer

import "math"

// Stop reasons reported in terminal decisions.
const (
	ReasonBudgetExhausted = "trial budget exhausted"
	ReasonConverged       = "converged"
)

// Verdict is the judge's answer after one reported trial
type Verdict struct {
	Stop          bool
	Reason        string
	BestBatchSize int
}

// Judge decides whether further exploration is worthwhile. Like the
// Policy it is pure: it looks only at the statistics snapshot handed
// to it, never at storage or the clock.
//
// Conditions are evaluated in order, first match wins:
//  1. the job's trial budget is exhausted
//  2. the best arm's confidence interval is disjoint from every other
//     sampled arm's interval and the best arm has at least
//     MinArmSamples samples, so the ranking is stable
//
// In both cases the verdict names the arm with the lowest mean cost
// among all sampled arms, not the last arm tried.
type Judge struct {
	// ZScore is the half-width multiplier for confidence intervals.
	ZScore float64
	// MinArmSamples is the minimum sample count the best arm needs
	// before a convergence stop is allowed.
	MinArmSamples int
	// NoiseFloor mirrors Policy.NoiseFloor for interval widths of
	// thinly sampled arms.
	NoiseFloor float64
}

// Evaluate returns the stop/continue verdict for a job with the given
// trial budget and per-arm statistics. stats must cover the whole arm
// set in arm set order.
func (j Judge) Evaluate(maxTrials, totalTrials int, stats []ArmStats) Verdict {
	best, sampled := bestArm(stats)

	if totalTrials >= maxTrials {
		return Verdict{Stop: true, Reason: ReasonBudgetExhausted, BestBatchSize: stats[best].BatchSize}
	}

	// Convergence is only meaningful once warm-up has covered every arm.
	if sampled < len(stats) || stats[best].Count < j.MinArmSamples {
		return Verdict{BestBatchSize: stats[best].BatchSize}
	}

	bestUpper := stats[best].Mean + j.halfWidth(&stats[best])
	for i := range stats {
		if i == best {
			continue
		}
		if bestUpper >= stats[i].Mean-j.halfWidth(&stats[i]) {
			// Intervals still overlap, ranking not yet stable.
			return Verdict{BestBatchSize: stats[best].BatchSize}
		}
	}
	return Verdict{Stop: true, Reason: ReasonConverged, BestBatchSize: stats[best].BatchSize}
}

func (j Judge) halfWidth(s *ArmStats) float64 {
	return j.ZScore * armSigma(s, j.NoiseFloor) / math.Sqrt(float64(s.Count))
}

// bestArm returns the index of the sampled arm with the lowest mean
// cost, ties preferring the larger batch size, plus the number of
// sampled arms. With no samples at all it falls back to the first arm.
func bestArm(stats []ArmStats) (best, sampled int) {
	best = -1
	bestMean := math.Inf(1)
	for i := range stats {
		if stats[i].Count == 0 {
			continue
		}
		sampled++
		if stats[i].Mean <= bestMean {
			bestMean = stats[i].Mean
			best = i
		}
	}
	if best == -1 {
		best = 0
	}
	return best, sampled
}
