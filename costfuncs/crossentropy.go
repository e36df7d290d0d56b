package costfuncs

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type crossEntropy struct{}

// CrossEntropy returns the softmax cross-entropy cost function. Outputs are unnormalized logits;
// the softmax is applied as part of the cost.
func CrossEntropy() crossEntropy {
	return crossEntropy{}
}

func (crossEntropy) TypeString() string {
	return "cross-entropy"
}

func (crossEntropy) Cost(outs, targets *mat.Dense) float64 {
	r, _ := outs.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		os, ts := outs.RawRowView(i), targets.RawRowView(i)
		lse := floats.LogSumExp(os)
		for j := range os {
			sum -= ts[j] * (os[j] - lse)
		}
	}

	return sum / float64(r)
}

func (crossEntropy) Deriv(outs, targets *mat.Dense) *mat.Dense {
	r, c := outs.Dims()
	ds := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		os, ts, dr := outs.RawRowView(i), targets.RawRowView(i), ds.RawRowView(i)
		lse := floats.LogSumExp(os)
		total := floats.Sum(ts)
		for j := range os {
			dr[j] = (total*math.Exp(os[j]-lse) - ts[j]) / float64(r)
		}
	}

	return ds
}
