package optimizers

import (
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

type gradientDescent struct{}

// GradientDescent returns plain (stochastic) gradient descent, which steps directly along the
// gradient.
func GradientDescent() gradientDescent {
	return gradientDescent{}
}

// SGD is a proxy for GradientDescent
func SGD() gradientDescent {
	return GradientDescent()
}

func (gradientDescent) TypeString() string {
	return "sgd"
}

func (gradientDescent) New(rows, cols int) sn.OptimizerState {
	return gradientDescent{}
}

// Direction returns the gradient unchanged
func (gradientDescent) Direction(grad *mat.Dense, rows []int, commit bool) *mat.Dense {
	return grad
}
