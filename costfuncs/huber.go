package costfuncs

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type huber struct {
	delta float64
}

// Huber returns the Huber loss function. delta controls the bounds of the transition between MSE
// and Abs.
func Huber(delta float64) huber {
	return huber{delta}
}

func (h huber) TypeString() string {
	return "huber"
}

func (h huber) Cost(outs, targets *mat.Dense) float64 {
	return elementwise(outs, targets, func(o, t float64) float64 {
		d := math.Abs(o - t)
		if d <= h.delta {
			return 0.5 * d * d
		}
		return h.delta*d - 0.5*h.delta*h.delta
	}) / size(outs)
}

func (h huber) Deriv(outs, targets *mat.Dense) *mat.Dense {
	return elementwiseDeriv(outs, targets, 1/size(outs), func(o, t float64) float64 {
		d := o - t
		if math.Abs(d) <= h.delta {
			return d
		}
		return h.delta * math.Copysign(1, d)
	})
}
