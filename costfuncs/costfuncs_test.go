package costfuncs

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

func randDense(rng *rand.Rand, r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	m.Apply(func(_, _ int, _ float64) float64 { return rng.NormFloat64() }, m)
	return m
}

func TestDerivs(t *testing.T) {
	cfs := []sn.CostFunction{L2(), NLL(), MSE(), CrossEntropy(), Huber(0.5), Abs()}

	rng := rand.New(rand.NewSource(1))
	for _, cf := range cfs {
		t.Run(cf.TypeString(), func(t *testing.T) {
			outs := randDense(rng, 4, 3)
			targets := randDense(rng, 4, 3)

			got := cf.Deriv(outs, targets)
			want := fd.Gradient(nil, func(x []float64) float64 {
				return cf.Cost(mat.NewDense(4, 3, x), targets)
			}, mat.DenseCopyOf(outs).RawMatrix().Data, &fd.Settings{Formula: fd.Central, Step: 1e-6})

			assert.True(t, mat.EqualApprox(mat.NewDense(4, 3, want), got, 1e-6),
				"want %v\ngot %v", want, got.RawMatrix().Data)
		})
	}
}

func TestValues(t *testing.T) {
	outs := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	targets := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	assert.InDelta(t, math.Sqrt(4+9+9)/2, L2().Cost(outs, targets), 1e-12)
	assert.InDelta(t, -(1+4)/2.0, NLL().Cost(outs, targets), 1e-12)
	assert.InDelta(t, 0.5*(4+9+9)/4, MSE().Cost(outs, targets), 1e-12)
	assert.InDelta(t, (2+3+3)/4.0, Abs().Cost(outs, targets), 1e-12)
	assert.InDelta(t, (1.5+2.5+2.5)/4, Huber(1).Cost(outs, targets), 1e-12)

	assert.InDelta(t, 0, L2().Cost(targets, targets), 1e-12)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, nil), L2().Deriv(targets, targets)))
}

func TestL2IsFrobenius(t *testing.T) {
	// singular values 4 and 3: the Frobenius norm is 5, the spectral norm 4
	outs := mat.NewDense(2, 2, []float64{3, 0, 0, 4})
	targets := mat.NewDense(2, 2, nil)
	assert.InDelta(t, 5.0/2, L2().Cost(outs, targets), 1e-12)
}

func TestCrossEntropy(t *testing.T) {
	// equal logits give a uniform distribution
	outs := mat.NewDense(1, 4, []float64{3, 3, 3, 3})
	targets := mat.NewDense(1, 4, []float64{0, 0, 1, 0})

	assert.InDelta(t, math.Log(4), CrossEntropy().Cost(outs, targets), 1e-12)

	d := CrossEntropy().Deriv(outs, targets)
	assert.InDelta(t, 0, mat.Sum(d), 1e-12)
	assert.InDelta(t, -0.75, d.At(0, 2), 1e-12)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"l2", "nll", "mse", "cross-entropy", "huber", "abs"} {
		cf, err := ByName(name, 1)
		require.NoError(t, err)
		assert.Equal(t, name, cf.TypeString())
	}

	_, err := ByName("hinge", 0)
	assert.Error(t, err)
}
