package optimizer

import "math"

// Policy selects the next batch size to try. It is a pure function of
// the arm statistics: given the same trial history it always returns
// the same arm, which keeps recommendations reproducible and lets
// duplicate reports be answered by replaying the log.
//
// Selection runs in two phases. During warm-up every arm is tried once,
// in ascending batch size order, because cost estimates with zero
// samples are worthless. After warm-up the policy picks the arm with
// the lowest confidence-adjusted cost: the sample mean minus an
// exploration bonus that shrinks with 1/sqrt(count), so an arm that
// looked bad on a single noisy measurement stays competitive until it
// has been revisited.
type Policy struct {
	// Exploration scales the confidence bonus. Higher values revisit
	// under-sampled arms more aggressively.
	Exploration float64
	// NoiseFloor is the minimum assumed relative noise of a cost
	// measurement, used when an arm has too few samples to estimate
	// its own spread.
	NoiseFloor float64
}

// NextBatchSize returns the batch size to run next. stats must be in
// arm set order and cover the whole arm set.
func (p Policy) NextBatchSize(stats []ArmStats) int {
	// Warm-up: lowest untried batch size first.
	for i := range stats {
		if stats[i].Count == 0 {
			return stats[i].BatchSize
		}
	}

	best := 0
	bestScore := math.Inf(1)
	for i := range stats {
		bonus := p.Exploration * armSigma(&stats[i], p.NoiseFloor) / math.Sqrt(float64(stats[i].Count))
		score := stats[i].Mean - bonus
		// <= so ties go to the larger batch size (higher throughput).
		if score <= bestScore {
			bestScore = score
			best = i
		}
	}
	return stats[best].BatchSize
}

// armSigma estimates the cost spread of an arm. With fewer than two
// samples the sample deviation is zero, so it is floored at a fixed
// fraction of the mean to keep confidence widths nonzero.
func armSigma(s *ArmStats, noiseFloor float64) float64 {
	sigma := s.StdDev()
	if floor := noiseFloor * math.Abs(s.Mean); sigma < floor {
		sigma = floor
	}
	return sigma
}
