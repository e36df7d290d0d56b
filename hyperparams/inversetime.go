package hyperparams

import (
	"math"
)

type inverseTime struct {
	initial   float64
	steps     float64
	rate      float64
	staircase bool
}

// InverseTimeDecay returns a HyperParameter that decays as
//	initial / (1 + rate * iter/decaySteps)
// If staircase is true, iter/decaySteps is rounded down, so that the value only changes every
// decaySteps iterations. decaySteps values less than one are treated as one.
func InverseTimeDecay(initial float64, decaySteps int, rate float64, staircase bool) inverseTime {
	if decaySteps < 1 {
		decaySteps = 1
	}

	return inverseTime{initial, float64(decaySteps), rate, staircase}
}

func (d inverseTime) TypeString() string {
	return "inverse-time"
}

func (d inverseTime) Value(iter int) float64 {
	t := float64(iter) / d.steps
	if d.staircase {
		t = math.Floor(t)
	}

	return d.initial / (1 + d.rate*t)
}
