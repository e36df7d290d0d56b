package costfuncs

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type abs struct{}

// Abs returns the mean absolute error cost function
func Abs() abs {
	return abs{}
}

func (abs) TypeString() string {
	return "abs"
}

func (abs) Cost(outs, targets *mat.Dense) float64 {
	return elementwise(outs, targets, func(o, t float64) float64 { return math.Abs(o - t) }) / size(outs)
}

func (abs) Deriv(outs, targets *mat.Dense) *mat.Dense {
	return elementwiseDeriv(outs, targets, 1/size(outs), func(o, t float64) float64 {
		if o == t {
			return 0
		}
		return math.Copysign(1, o-t)
	})
}
