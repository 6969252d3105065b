package risk

import "math"

const (
	heuristicFloor = 0.01
	heuristicCeil  = 0.99

	// DefaultModuleRate stands in for the module failure rate when there is no
	// target or the target has no history.
	DefaultModuleRate = 0.5
)

// HeuristicInputs are the student-level facts the fallback path needs.
type HeuristicInputs struct {
	MeanGrade  float64
	StdGrade   float64
	ModuleRate float64
	// HasModule is false when no module rate is known; DefaultModuleRate is used.
	HasModule bool
}

// Heuristic estimates a failure probability without the learned model:
// 0.5*band + 0.35*module rate + 0.15*stability, clamped to [0.01, 0.99].
func Heuristic(in HeuristicInputs) HeuristicEstimate {
	rate := DefaultModuleRate
	if in.HasModule && !math.IsNaN(in.ModuleRate) {
		rate = math.Max(0, math.Min(1, in.ModuleRate))
	}
	band := gradeBand(in.MeanGrade)
	stab := stability(in.StdGrade)
	// Evaluated left to right in float64: a top-band student with the default
	// rate lands on 0.19999999999999998, which categorizes as MINIMAL.
	p := 0.5*band + 0.35*rate + 0.15*stab
	p = math.Max(heuristicFloor, math.Min(heuristicCeil, p))
	return HeuristicEstimate{
		Probability: p,
		Band:        band,
		ModuleRate:  rate,
		Stability:   stab,
	}
}

func gradeBand(mean float64) float64 {
	switch {
	case mean >= 14:
		return 0.05
	case mean >= 12:
		return 0.15
	case mean >= 10:
		return 0.35
	case mean >= 7:
		return 0.60
	default:
		return 0.85
	}
}

func stability(std float64) float64 {
	switch {
	case std > 5:
		return 0.2
	case std > 3:
		return 0.1
	default:
		return 0
	}
}
