// activations.go contains the element-wise and row-wise functions that follow each Dense layer:
// * Identity
// * ReLU, Leaky ReLU, ELU, Softplus
// * Logistic, Tanh
// * Softmax, Log-softmax (row-wise)
package blocks

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sharnoff/splitnet/utils"
)

// Activation is the non-linearity applied to the outputs of a Dense layer. Rows are samples.
type Activation interface {
	TypeString() string

	// Apply returns f(z)
	Apply(z *mat.Dense) *mat.Dense

	// Deriv returns the gradient w.r.t. z, given z, a = f(z) and the gradient w.r.t. a
	Deriv(z, a, dA *mat.Dense) *mat.Dense
}

// rows per goroutine when mapping large batches
const chunkSize int = 256

// mapRows runs f on every row of the matrices in parallel chunks
func mapRows(rows int, f func(i int)) {
	if rows < 2*chunkSize {
		for i := 0; i < rows; i++ {
			f(i)
		}
		return
	}

	// the function never fails and the context is never cancelled
	_ = utils.Range(context.Background(), 0, rows, chunkSize, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	})
}

// elementwise is an Activation that is applied to each value independently
type elementwise struct {
	name  string
	alpha float64

	// value of the function; derivative given input and output
	f func(x, alpha float64) float64
	d func(x, y, alpha float64) float64
}

func (e *elementwise) TypeString() string {
	return e.name
}

func (e *elementwise) Apply(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	a := mat.NewDense(r, c, nil)
	mapRows(r, func(i int) {
		zs, as := z.RawRowView(i), a.RawRowView(i)
		for j := range zs {
			as[j] = e.f(zs[j], e.alpha)
		}
	})

	return a
}

func (e *elementwise) Deriv(z, a, dA *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	dZ := mat.NewDense(r, c, nil)
	mapRows(r, func(i int) {
		zs, as, das, dzs := z.RawRowView(i), a.RawRowView(i), dA.RawRowView(i), dZ.RawRowView(i)
		for j := range zs {
			dzs[j] = das[j] * e.d(zs[j], as[j], e.alpha)
		}
	})

	return dZ
}

// Identity returns the identity function
func Identity() Activation {
	return &elementwise{
		name: "identity",
		f:    func(x, _ float64) float64 { return x },
		d:    func(_, _, _ float64) float64 { return 1 },
	}
}

// ReLU returns the standard rectified linear unit
func ReLU() Activation {
	return &elementwise{
		name: "relu",
		f:    func(x, _ float64) float64 { return math.Max(x, 0) },
		d: func(x, _, _ float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		},
	}
}

// LeakyReLU returns a standard 'leaky ReLU', where the leaky factor is given by alpha.
func LeakyReLU(alpha float64) Activation {
	return &elementwise{
		name:  "leaky-relu",
		alpha: alpha,
		f: func(x, alpha float64) float64 {
			if x < 0 {
				return alpha * x
			}
			return x
		},
		d: func(x, _, alpha float64) float64 {
			if x < 0 {
				return alpha
			}
			return 1
		},
	}
}

// ELU (exponential linear unit) returns a smooth approximation of ReLU that tends towards -1 as
// inputs become infinitely negative.
func ELU() Activation {
	return &elementwise{
		name: "elu",
		f: func(x, _ float64) float64 {
			if x >= 0 {
				return x
			}
			return math.Exp(x) - 1
		},
		d: func(x, y, _ float64) float64 {
			if x < 0 {
				return y + 1
			}
			return 1
		},
	}
}

// Softplus is a smooth approximation of ReLU that approaches 0 as inputs tend towards negative
// infinity.
func Softplus() Activation {
	return &elementwise{
		name: "softplus",
		f: func(x, _ float64) float64 {
			// log(1 + e^x), without overflow for large x
			if x > 30 {
				return x
			}
			return math.Log1p(math.Exp(x))
		},
		d: func(x, _, _ float64) float64 { return 1.0 / (1 + math.Exp(-x)) },
	}
}

// Logistic returns the logistic sigmoid
func Logistic() Activation {
	return &elementwise{
		name: "logistic",
		f:    func(x, _ float64) float64 { return 0.5 + 0.5*math.Tanh(0.5*x) },
		d:    func(_, y, _ float64) float64 { return y * (1 - y) },
	}
}

// Tanh returns the hyperbolic tangent
func Tanh() Activation {
	return &elementwise{
		name: "tanh",
		f:    func(x, _ float64) float64 { return math.Tanh(x) },
		d:    func(_, y, _ float64) float64 { return 1 - y*y },
	}
}

type softmax struct {
	log bool
}

// Softmax returns the row-wise softmax function
func Softmax() Activation {
	return softmax{false}
}

// LogSoftmax returns the logarithm of the row-wise softmax, which pairs with costfuncs.NLL
func LogSoftmax() Activation {
	return softmax{true}
}

func (s softmax) TypeString() string {
	if s.log {
		return "log-softmax"
	}
	return "softmax"
}

func (s softmax) Apply(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	a := mat.NewDense(r, c, nil)
	mapRows(r, func(i int) {
		zs, as := z.RawRowView(i), a.RawRowView(i)
		lse := logSumExp(zs)
		for j := range zs {
			if s.log {
				as[j] = zs[j] - lse
			} else {
				as[j] = math.Exp(zs[j] - lse)
			}
		}
	})

	return a
}

func (s softmax) Deriv(z, a, dA *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	dZ := mat.NewDense(r, c, nil)
	mapRows(r, func(i int) {
		as, das, dzs := a.RawRowView(i), dA.RawRowView(i), dZ.RawRowView(i)
		if s.log {
			// d/dz_j = dA_j - softmax_j * sum(dA)
			var sum float64
			for _, v := range das {
				sum += v
			}
			for j := range dzs {
				dzs[j] = das[j] - math.Exp(as[j])*sum
			}
		} else {
			// d/dz_j = a_j * (dA_j - <dA, a>)
			var dot float64
			for j := range das {
				dot += das[j] * as[j]
			}
			for j := range dzs {
				dzs[j] = as[j] * (das[j] - dot)
			}
		}
	})

	return dZ
}

func logSumExp(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}

	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - m)
	}

	return m + math.Log(sum)
}

// ActivationByName returns the Activation with the given type string. alpha is only used by
// "leaky-relu".
func ActivationByName(name string, alpha float64) (Activation, error) {
	switch name {
	case "identity", "linear", "":
		return Identity(), nil
	case "relu":
		return ReLU(), nil
	case "leaky-relu":
		return LeakyReLU(alpha), nil
	case "elu":
		return ELU(), nil
	case "softplus":
		return Softplus(), nil
	case "logistic", "sigmoid":
		return Logistic(), nil
	case "tanh":
		return Tanh(), nil
	case "softmax":
		return Softmax(), nil
	case "log-softmax":
		return LogSoftmax(), nil
	}

	return nil, errors.Errorf("Unknown activation %q", name)
}

// alphaOf returns the leaky factor of an Activation, or zero if it has none
func alphaOf(a Activation) float64 {
	if e, ok := a.(*elementwise); ok {
		return e.alpha
	}
	return 0
}
