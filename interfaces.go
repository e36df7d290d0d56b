package splitnet

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Block is an independently parameterized piece of the Network, mapping a batch of input
// activations to a batch of output activations. Throughout the package, batches are matrices with
// one sample per row.
type Block interface {
	// TypeString returns the string the Block is registered under, which is used to recreate it
	// when loading a saved Network.
	TypeString() string

	// Init sets the input size of the Block and initializes any weights. Init will always be run
	// before any other method except TypeString, and will only be run once.
	Init(inputSize int, init Initializer, rng *rand.Rand) error

	InputSize() int
	OutputSize() int

	// Forward evaluates the Block on the given inputs. The returned trace is passed back to
	// Backward unchanged, and may hold whatever intermediate values Backward needs.
	//
	// Forward may be called concurrently on different Blocks, but not on the same Block.
	Forward(in *mat.Dense) (out *mat.Dense, trace any)

	// Backward returns the gradient of the cost w.r.t. each of the Block's parameters (in the same
	// order as Params), given the gradient w.r.t. the Block's outputs. If needInput is true, it
	// must also return the gradient w.r.t. the inputs; otherwise dIn may be nil.
	Backward(trace any, dOut *mat.Dense, needInput bool) (dIn *mat.Dense, grads []*mat.Dense)

	// Params returns the Block's weights. The returned matrices are NOT copies; the solver
	// updates them in place.
	Params() []*mat.Dense
}

// Marshaler is implemented by Blocks and Penalties that can be saved to file. All of those
// provided by the "blocks" and "penalties" subpackages implement it.
type Marshaler interface {
	MarshalJSON() ([]byte, error)
	UnmarshalJSON([]byte) error
}

// CostFunction is the task loss, evaluated on the output of the last Block.
type CostFunction interface {
	TypeString() string

	// Cost returns the mean cost over the batch. outs and targets will always have the same
	// dimensions.
	Cost(outs, targets *mat.Dense) float64

	// Deriv returns the derivative of Cost w.r.t. each of the outputs. It must not modify outs or
	// targets.
	Deriv(outs, targets *mat.Dense) *mat.Dense
}

// HyperParameter gives the value of a (usually learning-rate) schedule at a certain iteration.
type HyperParameter interface {
	TypeString() string
	Value(iter int) float64
}

// Initializer sets the starting weights of a Block, given the number of inputs and outputs of the
// layer the weights belong to.
type Initializer interface {
	Set(rng *rand.Rand, fanIn, fanOut int, ws []float64)
}

// Optimizer produces per-variable state that converts gradients into update directions. A single
// Optimizer may serve many variables.
type Optimizer interface {
	TypeString() string
	New(rows, cols int) OptimizerState
}

// OptimizerState is the optimizer's memory for a single variable (e.g. Adam's moment estimates).
type OptimizerState interface {
	// Direction returns the direction to step in for the given gradient. The step is applied by
	// the caller, scaled by the learning rate, as: variable -= rate * direction (or += for
	// ascent).
	//
	// If rows is nil, grad covers the entire variable. Otherwise, row i of grad belongs to row
	// rows[i] of the variable, and rows contains no duplicates.
	//
	// If commit is false, the state must not change.
	Direction(grad *mat.Dense, rows []int, commit bool) *mat.Dense
}

// Penalty is a regularization term on the weights of the Blocks. It is added to the primal side
// of the Lagrangian.
type Penalty interface {
	TypeString() string

	// Value returns the penalty for the given weights
	Value(w *mat.Dense) float64

	// AddGrad adds the gradient of the penalty w.r.t. w to grad
	AddGrad(w, grad *mat.Dense)
}
