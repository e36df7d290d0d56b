package costfuncs

import (
	"gonum.org/v1/gonum/mat"
)

type l2 struct{}

// L2 returns the cost given by the Frobenius norm of the residual over the whole batch, divided by
// the number of rows. Note that the norm is not squared; for that, see MSE. It is also not the
// spectral norm (the largest singular value) of the residual.
func L2() l2 {
	return l2{}
}

func (l2) TypeString() string {
	return "l2"
}

func (l2) residual(outs, targets *mat.Dense) *mat.Dense {
	var d mat.Dense
	d.Sub(outs, targets)
	return &d
}

func (c l2) Cost(outs, targets *mat.Dense) float64 {
	return mat.Norm(c.residual(outs, targets), 2) / rows(outs)
}

func (c l2) Deriv(outs, targets *mat.Dense) *mat.Dense {
	d := c.residual(outs, targets)
	n := mat.Norm(d, 2)
	if n == 0 {
		// the norm has no gradient at zero; take the subgradient 0
		d.Zero()
		return d
	}

	d.Scale(1/(n*rows(outs)), d)
	return d
}
