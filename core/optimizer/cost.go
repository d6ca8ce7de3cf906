package optimizer

// TrialCost scalarizes a trial's energy and time measurements into a
// single cost the policy can rank arms by:
//
//	cost = eta * energy + (1 - eta) * maxPower * time
//
// eta = 1 optimizes for energy alone, eta = 0 for time alone, with
// maxPower putting the time term on the same scale as joules.
func TrialCost(energy, time, eta, maxPower float64) float64 {
	return eta*energy + (1-eta)*maxPower*time
}
