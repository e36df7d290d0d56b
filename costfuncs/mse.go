package costfuncs

import (
	"gonum.org/v1/gonum/mat"
)

type mse struct{}

// MSE returns the mean squared error cost function, halved so that its derivative is the mean
// residual.
func MSE() mse {
	return mse{}
}

func (mse) TypeString() string {
	return "mse"
}

func (mse) Cost(outs, targets *mat.Dense) float64 {
	return elementwise(outs, targets, func(o, t float64) float64 {
		d := o - t
		return 0.5 * d * d
	}) / size(outs)
}

func (mse) Deriv(outs, targets *mat.Dense) *mat.Dense {
	return elementwiseDeriv(outs, targets, 1/size(outs), func(o, t float64) float64 { return o - t })
}
