package penalties

import (
	"gonum.org/v1/gonum/mat"
)

// **********************************************
// L1 (Lasso)
// **********************************************

type l1 float64

// L1 returns the penalty lambda * sum(|w|). lambda is a small value close to 0 where lambda > 0
func L1(lambda float64) l1 {
	return l1(lambda)
}

// Lasso is a proxy for L1
func Lasso(lambda float64) l1 {
	return L1(lambda)
}

func (p l1) TypeString() string {
	return "l1-lasso"
}

func (p l1) Value(w *mat.Dense) float64 {
	return float64(p) * sumAbs(w)
}

func (p l1) AddGrad(w, grad *mat.Dense) {
	addEach(w, grad, func(x float64) float64 { return float64(p) * sign(x) })
}

// **********************************************
// L2 (Ridge)
// **********************************************

type l2 float64

// L2 returns the penalty lambda * sum(w^2). lambda is a small value close to 0 where lambda > 0
func L2(lambda float64) l2 {
	return l2(lambda)
}

// Ridge is a proxy for L2
func Ridge(lambda float64) l2 {
	return L2(lambda)
}

func (p l2) TypeString() string {
	return "l2-ridge"
}

func (p l2) Value(w *mat.Dense) float64 {
	return float64(p) * sumSquares(w)
}

func (p l2) AddGrad(w, grad *mat.Dense) {
	addEach(w, grad, func(x float64) float64 { return 2 * float64(p) * x })
}
