package costfuncs

import (
	"gonum.org/v1/gonum/mat"
)

type nll struct{}

// NLL returns the negative log-likelihood, where outputs are log-probabilities (as given by the
// log-softmax Activation) and targets are one-hot (or any other distribution over the classes).
func NLL() nll {
	return nll{}
}

func (nll) TypeString() string {
	return "nll"
}

func (nll) Cost(outs, targets *mat.Dense) float64 {
	return -elementwise(outs, targets, func(o, t float64) float64 { return o * t }) / rows(outs)
}

func (nll) Deriv(outs, targets *mat.Dense) *mat.Dense {
	return elementwiseDeriv(outs, targets, -1/rows(outs), func(_, t float64) float64 { return t })
}
