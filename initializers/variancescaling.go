package initializers

import (
	"math"
	"math/rand"
)

type varianceScaling struct {
	// either: "in", "out", "avg"
	mode   string
	factor float64
}

const defaultVarianceMode string = "avg"

// VarianceScaling returns the variance scaling initializer, which has 3 modes and a user-defined
// scaling factor. The three modes can be set by In, Out, and Avg. It defaults to Avg.
func VarianceScaling() *varianceScaling {
	return &varianceScaling{defaultVarianceMode, defaultValue["varscl-factor"]}
}

// Factor sets the scaling factor to be used for the Initializer. The default factor can be set by
// SetDefault("varscl-factor")
func (v *varianceScaling) Factor(f float64) *varianceScaling {
	v.factor = f
	return v
}

// In sets the scaling to be based on the number of inputs to the layer.
func (v *varianceScaling) In() *varianceScaling {
	v.mode = "in"
	return v
}

// Out sets the scaling to be based on the number of outputs of the layer.
func (v *varianceScaling) Out() *varianceScaling {
	v.mode = "out"
	return v
}

// Avg sets the scaling to be based on the average of the numbers of inputs and outputs.
func (v *varianceScaling) Avg() *varianceScaling {
	v.mode = "avg"
	return v
}

// Set fills ws from a normal distribution truncated at two standard deviations, with variance
// factor/scale.
func (v *varianceScaling) Set(rng *rand.Rand, fanIn, fanOut int, ws []float64) {
	var scale float64
	switch v.mode {
	case "in":
		scale = float64(fanIn)
	case "out":
		scale = float64(fanOut)
	default:
		scale = float64(fanIn+fanOut) / 2
	}

	fill(TruncNormal().SD(math.Sqrt(v.factor/scale)), rng, ws)
}
