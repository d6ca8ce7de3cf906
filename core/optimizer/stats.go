package optimizer

import (
	"math"

	"batch-size-optimizer/core/models"
)

// ArmStats holds the running cost statistics for one batch size,
// recomputed from the raw trial log rather than cached, so a restarted
// server derives the same numbers from durable state alone.
type ArmStats struct {
	BatchSize int
	Count     int
	Mean      float64
	m2        float64 // sum of squared deviations (Welford)
}

func (s *ArmStats) observe(cost float64) {
	s.Count++
	delta := cost - s.Mean
	s.Mean += delta / float64(s.Count)
	s.m2 += delta * (cost - s.Mean)
}

// Variance returns the sample variance of observed costs, 0 with
// fewer than two samples.
func (s *ArmStats) Variance() float64 {
	if s.Count < 2 {
		return 0
	}
	return s.m2 / float64(s.Count-1)
}

// StdDev returns the sample standard deviation of observed costs
func (s *ArmStats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// ComputeArmStats folds the trial log into per-arm statistics, in the
// arm set's order. Every arm appears even with zero trials.
func ComputeArmStats(armSet []int, trials []models.Trial) []ArmStats {
	stats := make([]ArmStats, len(armSet))
	index := make(map[int]int, len(armSet))
	for i, bs := range armSet {
		stats[i].BatchSize = bs
		index[bs] = i
	}
	for _, t := range trials {
		if i, ok := index[t.BatchSize]; ok {
			stats[i].observe(t.Cost)
		}
	}
	return stats
}
