package optimizers

import (
	"math"

	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

// DefaultBeta1, DefaultBeta2 and DefaultEpsilon are the usual hyperparameters for Adam
const (
	DefaultBeta1   float64 = 0.9
	DefaultBeta2   float64 = 0.999
	DefaultEpsilon float64 = 1e-8
)

type adam struct {
	beta1, beta2, eps float64
}

// Adam returns the Adam optimizer with the default hyperparameters, which may be changed with
// Betas and Epsilon.
func Adam() *adam {
	return &adam{DefaultBeta1, DefaultBeta2, DefaultEpsilon}
}

// Betas sets the decay rates of the first and second moment estimates
func (a *adam) Betas(beta1, beta2 float64) *adam {
	a.beta1, a.beta2 = beta1, beta2
	return a
}

// Epsilon sets the small constant added to the denominator
func (a *adam) Epsilon(eps float64) *adam {
	a.eps = eps
	return a
}

func (a *adam) TypeString() string {
	return "adam"
}

func (a *adam) New(rows, cols int) sn.OptimizerState {
	return &adamState{
		adam: *a,
		m:    mat.NewDense(rows, cols, nil),
		v:    mat.NewDense(rows, cols, nil),
		t:    make([]int, rows),
	}
}

// adamState keeps a step count per row, so that rows of a split variable that are rarely in a
// batch still get correct bias correction.
type adamState struct {
	adam
	m, v *mat.Dense
	t    []int
}

func (s *adamState) Direction(grad *mat.Dense, rows []int, commit bool) *mat.Dense {
	r, c := grad.Dims()
	dir := mat.NewDense(r, c, nil)

	for i := 0; i < r; i++ {
		row := i
		if rows != nil {
			row = rows[i]
		}

		t := s.t[row] + 1
		c1 := 1 - math.Pow(s.beta1, float64(t))
		c2 := 1 - math.Pow(s.beta2, float64(t))

		gs, ms, vs, ds := grad.RawRowView(i), s.m.RawRowView(row), s.v.RawRowView(row), dir.RawRowView(i)
		for j, g := range gs {
			m := s.beta1*ms[j] + (1-s.beta1)*g
			v := s.beta2*vs[j] + (1-s.beta2)*g*g
			ds[j] = (m / c1) / (math.Sqrt(v/c2) + s.eps)

			if commit {
				ms[j], vs[j] = m, v
			}
		}

		if commit {
			s.t[row] = t
		}
	}

	return dir
}
