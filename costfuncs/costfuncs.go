// Package costfuncs provides implementations of splitnet.CostFunction. All of them return the mean
// cost over the rows of the batch.
package costfuncs

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

// ByName returns the cost function with the given type string. delta is only used by "huber".
func ByName(name string, delta float64) (sn.CostFunction, error) {
	switch name {
	case "l2":
		return L2(), nil
	case "nll":
		return NLL(), nil
	case "mse":
		return MSE(), nil
	case "cross-entropy":
		return CrossEntropy(), nil
	case "huber":
		return Huber(delta), nil
	case "abs":
		return Abs(), nil
	}

	return nil, errors.Errorf("Unknown cost function %q", name)
}

// elementwise applies f to every pair of outputs and targets, returning the total
func elementwise(outs, targets *mat.Dense, f func(o, t float64) float64) float64 {
	r, _ := outs.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		os, ts := outs.RawRowView(i), targets.RawRowView(i)
		for j := range os {
			sum += f(os[j], ts[j])
		}
	}

	return sum
}

// elementwiseDeriv returns the matrix of scale * d(o, t)
func elementwiseDeriv(outs, targets *mat.Dense, scale float64, d func(o, t float64) float64) *mat.Dense {
	r, c := outs.Dims()
	ds := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		os, ts, dr := outs.RawRowView(i), targets.RawRowView(i), ds.RawRowView(i)
		for j := range os {
			dr[j] = scale * d(os[j], ts[j])
		}
	}

	return ds
}

func rows(m *mat.Dense) float64 {
	r, _ := m.Dims()
	return float64(r)
}

func size(m *mat.Dense) float64 {
	r, c := m.Dims()
	return float64(r * c)
}
