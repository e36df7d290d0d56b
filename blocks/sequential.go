package blocks

import (
	"encoding/json"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

// sequential is a Block made of Dense layers applied one after another. A Network of sequentials
// is the usual way of splitting a deep multi-layer perceptron into independently trained pieces.
type sequential struct {
	layers []*dense
	inSize int
}

// Sequential returns a Block consisting of the given layers, in order. There must be at least
// one.
func Sequential(layers ...*dense) *sequential {
	return &sequential{layers: layers}
}

// MLP is shorthand for a Sequential of Dense layers with the given sizes, all sharing the same
// Activation except for the last, which uses 'out'.
func MLP(sizes []int, hidden, out Activation) *sequential {
	ls := make([]*dense, len(sizes))
	for i, s := range sizes {
		if i == len(sizes)-1 {
			ls[i] = Dense(s, out)
		} else {
			ls[i] = Dense(s, hidden)
		}
	}

	return Sequential(ls...)
}

func (s *sequential) TypeString() string {
	return "sequential"
}

func (s *sequential) Init(inputSize int, init sn.Initializer, rng *rand.Rand) error {
	if len(s.layers) == 0 {
		return errors.New("Sequential block must have at least one layer")
	}

	size := inputSize
	for i, l := range s.layers {
		if l == nil {
			return errors.Errorf("Layer %d is nil", i)
		}

		if err := l.init(size, init, rng); err != nil {
			return errors.Wrapf(err, "Layer %d", i)
		}

		size = l.size
	}

	s.inSize = inputSize
	return nil
}

func (s *sequential) InputSize() int {
	return s.inSize
}

func (s *sequential) OutputSize() int {
	return s.layers[len(s.layers)-1].size
}

func (s *sequential) Forward(in *mat.Dense) (*mat.Dense, any) {
	traces := make([]denseTrace, len(s.layers))
	h := in
	for i, l := range s.layers {
		h, traces[i] = l.forward(h)
	}

	return h, traces
}

func (s *sequential) Backward(trace any, dOut *mat.Dense, needInput bool) (*mat.Dense, []*mat.Dense) {
	traces := trace.([]denseTrace)
	grads := make([]*mat.Dense, 2*len(s.layers))

	d := dOut
	for i := len(s.layers) - 1; i >= 0; i-- {
		var dW, dB *mat.Dense
		d, dW, dB = s.layers[i].backward(traces[i], d, i > 0 || needInput)
		grads[2*i], grads[2*i+1] = dW, dB
	}

	if !needInput {
		d = nil
	}

	return d, grads
}

// Params returns the weights and biases of each layer, alternating
func (s *sequential) Params() []*mat.Dense {
	ps := make([]*mat.Dense, 0, 2*len(s.layers))
	for _, l := range s.layers {
		ps = append(ps, l.W, l.B)
	}

	return ps
}

type activationJSON struct {
	Type  string  `json:"type"`
	Alpha float64 `json:"alpha,omitempty"`
}

type layerJSON struct {
	Size       int            `json:"size"`
	Activation activationJSON `json:"activation"`
	Weights    [][]float64    `json:"weights"`
	Bias       []float64      `json:"bias"`
}

type sequentialJSON struct {
	InputSize int         `json:"input_size"`
	Layers    []layerJSON `json:"layers"`
}

func (s *sequential) MarshalJSON() ([]byte, error) {
	js := sequentialJSON{InputSize: s.inSize}
	for _, l := range s.layers {
		lj := layerJSON{
			Size:       l.size,
			Activation: activationJSON{l.act.TypeString(), alphaOf(l.act)},
			Bias:       append([]float64(nil), l.B.RawRowView(0)...),
		}

		r, _ := l.W.Dims()
		for i := 0; i < r; i++ {
			lj.Weights = append(lj.Weights, append([]float64(nil), l.W.RawRowView(i)...))
		}

		js.Layers = append(js.Layers, lj)
	}

	return json.Marshal(js)
}

func (s *sequential) UnmarshalJSON(data []byte) error {
	var js sequentialJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}

	if len(js.Layers) == 0 {
		return errors.New("Sequential block must have at least one layer")
	}

	size := js.InputSize
	layers := make([]*dense, len(js.Layers))
	for i, lj := range js.Layers {
		act, err := ActivationByName(lj.Activation.Type, lj.Activation.Alpha)
		if err != nil {
			return errors.Wrapf(err, "Layer %d", i)
		}

		if size < 1 || lj.Size < 1 {
			return errors.Errorf("Layer %d has bad dimensions %d x %d", i, size, lj.Size)
		} else if len(lj.Weights) != size {
			return errors.Wrapf(sn.SizeMismatchError{Expected: size, Given: len(lj.Weights), Name: "weight rows"}, "Layer %d", i)
		} else if len(lj.Bias) != lj.Size {
			return errors.Wrapf(sn.SizeMismatchError{Expected: lj.Size, Given: len(lj.Bias), Name: "bias"}, "Layer %d", i)
		}

		w := mat.NewDense(size, lj.Size, nil)
		for r, row := range lj.Weights {
			if len(row) != lj.Size {
				return errors.Wrapf(sn.SizeMismatchError{Expected: lj.Size, Given: len(row), Name: "weight columns"}, "Layer %d", i)
			}
			w.SetRow(r, row)
		}

		layers[i] = &dense{size: lj.Size, act: act, W: w, B: mat.NewDense(1, lj.Size, lj.Bias)}
		size = lj.Size
	}

	s.layers = layers
	s.inSize = js.InputSize
	return nil
}
