// Package penalties provides implementations of splitnet.Penalty, for regularizing the weights of
// Blocks.
package penalties

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

// ByName returns the Penalty with the given type string. alpha is only used by "elastic-net". An
// empty name or "none" returns nil, which the Network treats as no penalty.
func ByName(name string, alpha, lambda float64) (sn.Penalty, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "l1", "l1-lasso", "lasso":
		return L1(lambda), nil
	case "l2", "l2-ridge", "ridge":
		return L2(lambda), nil
	case "elastic-net":
		return ElasticNet(alpha, lambda), nil
	}

	return nil, errors.Errorf("Unknown penalty %q", name)
}

func sign(x float64) float64 {
	if x == 0 {
		return 0
	}
	return math.Copysign(1, x)
}

func sumAbs(w *mat.Dense) float64 {
	var sum float64
	r, _ := w.Dims()
	for i := 0; i < r; i++ {
		for _, v := range w.RawRowView(i) {
			sum += math.Abs(v)
		}
	}

	return sum
}

func sumSquares(w *mat.Dense) float64 {
	n := mat.Norm(w, 2)
	return n * n
}

// addEach adds f(w_ij) to grad_ij
func addEach(w, grad *mat.Dense, f func(float64) float64) {
	r, _ := w.Dims()
	for i := 0; i < r; i++ {
		ws, gs := w.RawRowView(i), grad.RawRowView(i)
		for j := range ws {
			gs[j] += f(ws[j])
		}
	}
}
