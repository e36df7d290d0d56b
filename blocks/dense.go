package blocks

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

// dense is a fully-connected layer followed by an Activation: a = act(x W + b)
type dense struct {
	size int
	act  Activation

	// W has one row per input and one column per output; B is a single row
	W *mat.Dense
	B *mat.Dense
}

// Dense returns a fully-connected layer with the given number of outputs. The Activation may be
// nil, in which case it is the identity.
func Dense(size int, act Activation) *dense {
	if act == nil {
		act = Identity()
	}

	return &dense{size: size, act: act}
}

type denseTrace struct {
	in, z, a *mat.Dense
}

func (d *dense) init(inputSize int, init sn.Initializer, rng *rand.Rand) error {
	if d.size < 1 {
		return errors.Errorf("Dense layer must have size >= 1 (%d)", d.size)
	} else if inputSize < 1 {
		return errors.Errorf("Dense layer must have input size >= 1 (%d)", inputSize)
	}

	ws := make([]float64, inputSize*d.size)
	init.Set(rng, inputSize, d.size, ws)

	d.W = mat.NewDense(inputSize, d.size, ws)
	d.B = mat.NewDense(1, d.size, nil)
	return nil
}

func (d *dense) inputSize() int {
	r, _ := d.W.Dims()
	return r
}

func (d *dense) forward(in *mat.Dense) (*mat.Dense, denseTrace) {
	var z mat.Dense
	z.Mul(in, d.W)

	bias := d.B.RawRowView(0)
	r, _ := z.Dims()
	for i := 0; i < r; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}

	a := d.act.Apply(&z)
	return a, denseTrace{in: in, z: &z, a: a}
}

// backward returns the input gradient (if needInput) and the gradients w.r.t. W and B
func (d *dense) backward(t denseTrace, dA *mat.Dense, needInput bool) (dIn, dW, dB *mat.Dense) {
	dZ := d.act.Deriv(t.z, t.a, dA)

	dW = new(mat.Dense)
	dW.Mul(t.in.T(), dZ)

	r, c := dZ.Dims()
	dB = mat.NewDense(1, c, nil)
	bs := dB.RawRowView(0)
	for i := 0; i < r; i++ {
		for j, v := range dZ.RawRowView(i) {
			bs[j] += v
		}
	}

	if needInput {
		dIn = new(mat.Dense)
		dIn.Mul(dZ, d.W.T())
	}

	return dIn, dW, dB
}
