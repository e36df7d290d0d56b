package penalties

import (
	"gonum.org/v1/gonum/mat"
)

type elasticNet struct {
	alpha  float64
	lambda float64
}

// ElasticNet returns a mixture of the L1 and L2 penalties. lambda is a small value close to 0
// where lambda > 0, and alpha controls the ratio between L1 and L2 regularization, where
// 0 <= alpha <= 1. alpha = 1 is functionally identical to L1 and alpha = 0 is equivalent to L2.
func ElasticNet(alpha, lambda float64) elasticNet {
	return elasticNet{alpha, lambda}
}

func (p elasticNet) TypeString() string {
	return "elastic-net"
}

func (p elasticNet) Value(w *mat.Dense) float64 {
	return p.lambda * ((1-p.alpha)*sumSquares(w) + p.alpha*sumAbs(w))
}

func (p elasticNet) AddGrad(w, grad *mat.Dense) {
	addEach(w, grad, func(x float64) float64 {
		return p.lambda * ((1-p.alpha)*2*x + p.alpha*sign(x))
	})
}
