package blocks

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/sharnoff/splitnet/initializers"
)

func randDense(rng *rand.Rand, r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	m.Apply(func(_, _ int, _ float64) float64 { return rng.NormFloat64() }, m)
	return m
}

// numGrad returns the central-difference gradient of f w.r.t. the values of m. f must read m.
func numGrad(m *mat.Dense, f func() float64) *mat.Dense {
	data := m.RawMatrix().Data
	orig := append([]float64(nil), data...)

	g := fd.Gradient(nil, func(x []float64) float64 {
		copy(data, x)
		return f()
	}, orig, &fd.Settings{Formula: fd.Central, Step: 1e-6})

	copy(data, orig)
	r, c := m.Dims()
	return mat.NewDense(r, c, g)
}

func assertClose(t *testing.T, want, got *mat.Dense, tol float64, msg string) {
	t.Helper()
	if !mat.EqualApprox(want, got, tol) {
		t.Errorf("%s: gradients differ\nwant: %v\ngot:  %v", msg, mat.Formatted(want), mat.Formatted(got))
	}
}

func TestActivationDerivs(t *testing.T) {
	acts := []Activation{
		Identity(), ReLU(), LeakyReLU(0.1), ELU(), Softplus(), Logistic(), Tanh(), Softmax(), LogSoftmax(),
	}

	rng := rand.New(rand.NewSource(1))
	for _, act := range acts {
		t.Run(act.TypeString(), func(t *testing.T) {
			z := randDense(rng, 3, 4)
			dA := randDense(rng, 3, 4)

			got := act.Deriv(z, act.Apply(z), dA)
			want := numGrad(z, func() float64 {
				var prod mat.Dense
				prod.MulElem(dA, act.Apply(z))
				return mat.Sum(&prod)
			})

			assertClose(t, want, got, 1e-6, act.TypeString())
		})
	}
}

func TestSoftmaxRows(t *testing.T) {
	z := mat.NewDense(2, 3, []float64{1, 2, 3, 1000, 1000, 1000})
	a := Softmax().Apply(z)

	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1, mat.Sum(a.RowView(i)), 1e-12)
	}
	assert.InDelta(t, 1.0/3, a.At(1, 0), 1e-12)
}

func TestActivationsLargeBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	z := randDense(rng, 3*chunkSize, 2)

	a := Tanh().Apply(z)
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.Equal(t, math.Tanh(z.At(i, j)), a.At(i, j))
		}
	}
}

func TestActivationByName(t *testing.T) {
	for _, name := range []string{"identity", "relu", "leaky-relu", "elu", "softplus", "logistic", "tanh", "softmax", "log-softmax"} {
		act, err := ActivationByName(name, 0.2)
		require.NoError(t, err)
		assert.Equal(t, name, act.TypeString())
	}

	act, err := ActivationByName("sigmoid", 0)
	require.NoError(t, err)
	assert.Equal(t, "logistic", act.TypeString())

	act, err = ActivationByName("leaky-relu", 0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.3, alphaOf(act))

	_, err = ActivationByName("swish", 0)
	assert.Error(t, err)
}

func newMLP(t *testing.T, seed int64) *sequential {
	t.Helper()

	s := MLP([]int{5, 3}, LeakyReLU(0.05), LogSoftmax())
	require.NoError(t, s.Init(4, initializers.Xavier(), rand.New(rand.NewSource(seed))))

	// non-zero biases so that their gradients are checked away from the origin
	rng := rand.New(rand.NewSource(seed + 1))
	for _, l := range s.layers {
		l.B.Apply(func(_, _ int, _ float64) float64 { return 0.1 * rng.NormFloat64() }, l.B)
	}

	return s
}

func TestSequentialBackward(t *testing.T) {
	s := newMLP(t, 3)
	rng := rand.New(rand.NewSource(4))
	x := randDense(rng, 6, 4)
	dOut := randDense(rng, 6, 3)

	loss := func() float64 {
		out, _ := s.Forward(x)
		var prod mat.Dense
		prod.MulElem(dOut, out)
		return mat.Sum(&prod)
	}

	_, trace := s.Forward(x)
	dIn, grads := s.Backward(trace, dOut, true)

	params := s.Params()
	require.Len(t, grads, len(params))
	for i, p := range params {
		assertClose(t, numGrad(p, loss), grads[i], 1e-5, "parameter")
	}

	assertClose(t, numGrad(x, loss), dIn, 1e-5, "input")

	dIn, _ = s.Backward(trace, dOut, false)
	assert.Nil(t, dIn)
}

func TestSequentialSizes(t *testing.T) {
	s := newMLP(t, 5)
	assert.Equal(t, "sequential", s.TypeString())
	assert.Equal(t, 4, s.InputSize())
	assert.Equal(t, 3, s.OutputSize())
	assert.Len(t, s.Params(), 4)

	out, _ := s.Forward(mat.NewDense(7, 4, nil))
	r, c := out.Dims()
	assert.Equal(t, []int{7, 3}, []int{r, c})
}

func TestSequentialInitErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	init := initializers.Xavier()

	assert.Error(t, Sequential().Init(4, init, rng))
	assert.Error(t, Sequential(Dense(3, nil), nil).Init(4, init, rng))
	assert.Error(t, Sequential(Dense(0, nil)).Init(4, init, rng))
	assert.Error(t, Sequential(Dense(3, nil)).Init(0, init, rng))
}

func TestSequentialJSON(t *testing.T) {
	s := newMLP(t, 7)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	loaded := new(sequential)
	require.NoError(t, json.Unmarshal(data, loaded))

	assert.Equal(t, s.InputSize(), loaded.InputSize())
	assert.Equal(t, s.OutputSize(), loaded.OutputSize())

	for i, l := range s.layers {
		ll := loaded.layers[i]
		assert.Equal(t, l.act.TypeString(), ll.act.TypeString())
		assert.Equal(t, alphaOf(l.act), alphaOf(ll.act))
		if diff := cmp.Diff(l.W.RawMatrix().Data, ll.W.RawMatrix().Data); diff != "" {
			t.Errorf("layer %d weights mismatch (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff(l.B.RawMatrix().Data, ll.B.RawMatrix().Data); diff != "" {
			t.Errorf("layer %d bias mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestSequentialJSONErrors(t *testing.T) {
	bad := []string{
		`{"input_size": 2, "layers": []}`,
		`{"input_size": 2, "layers": [{"size": 1, "activation": {"type": "nope"}, "weights": [[1], [2]], "bias": [0]}]}`,
		`{"input_size": 2, "layers": [{"size": 1, "activation": {"type": "tanh"}, "weights": [[1]], "bias": [0]}]}`,
		`{"input_size": 2, "layers": [{"size": 1, "activation": {"type": "tanh"}, "weights": [[1], [2]], "bias": []}]}`,
		`{"input_size": 2, "layers": [{"size": 1, "activation": {"type": "tanh"}, "weights": [[1], [2, 3]], "bias": [0]}]}`,
		`{"input_size": 0, "layers": [{"size": 1, "activation": {"type": "tanh"}, "weights": [], "bias": [0]}]}`,
	}

	for _, js := range bad {
		assert.Error(t, json.Unmarshal([]byte(js), new(sequential)), js)
	}
}
