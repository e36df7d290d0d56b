package splitnet

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type status int8

const (
	initialized status = iota // 0
	finalized                 // 1
	seeded                    // 2
)

// Network is a sequence of Blocks, together with the split variables that stand in for the
// outputs of every Block but the last, and the Lagrange multipliers attached to each of the
// resulting equality constraints.
//
// A Network is created by new(Network), and built with Add and Finalize.
type Network struct {
	blocks []Block
	cf     CostFunction

	// split[l] holds the believed outputs of block l for each sample in the training set; mult[l]
	// are the multipliers on the constraint f_l(...) - split[l] = 0. Both have len(blocks)-1
	// elements.
	split []*mat.Dense
	mult  []*mat.Dense

	// weight of the quadratic (augmented) term of the Lagrangian
	rho float64

	// if true, the constraint defects are not differentiated w.r.t. their split variable, which
	// then only moves to match the Block it feeds
	stopTargetGrad bool

	pen Penalty

	// seedGen counts the times the split variables have been replaced, so that a Solver can tell
	// when its optimizer state no longer matches them
	seedGen int

	// whether or not the network should panic when it encounters an error
	panicErrors bool

	err  error
	stat status
}

// setError sets the Network's stored error to the error provided. If net.panicErrors is true,
// setError will additionally panic the error it is given.
func (net *Network) setError(e error) {
	net.err = e
	if net.panicErrors {
		panic(e)
	}
}

// PanicErrors causes all construction errors to be panicked as well as stored.
func (net *Network) PanicErrors() *Network {
	net.panicErrors = true
	return net
}

// Error returns the first error encountered while building the Network.
func (net *Network) Error() error {
	return net.err
}

// Add appends a Block to the Network. Errors are stored, and returned by Error and Finalize.
func (net *Network) Add(b Block) *Network {
	if net.err != nil {
		return net
	}

	if net.stat >= finalized {
		net.setError(ErrNetFinalized)
	} else if b == nil {
		net.setError(NilArgError{"Block"})
	} else {
		net.blocks = append(net.blocks, b)
	}

	return net
}

// SetPenalty sets the weight rho of the quadratic term rho/2 * |h|^2 added to each constraint of
// the Lagrangian. A value of zero gives the plain Lagrangian.
func (net *Network) SetPenalty(rho float64) *Network {
	if rho < 0 || !isFinite(rho) {
		net.setError(errors.Errorf("Augmented penalty must be finite and >= 0 (%v)", rho))
		return net
	}

	net.rho = rho
	return net
}

// Regularize sets a Penalty on the weights of every Block
func (net *Network) Regularize(p Penalty) *Network {
	net.pen = p
	return net
}

// StopTargetGradient sets whether the split variables are held constant as targets of their
// constraints, in which case they are only moved by the Blocks that take them as input.
func (net *Network) StopTargetGradient(stop bool) *Network {
	net.stopTargetGrad = stop
	return net
}

// Finalize initializes the Blocks in order, checks that their sizes line up and sets the cost
// function of the final output. If any errors were encountered while building the Network, the
// first is returned.
func (net *Network) Finalize(cf CostFunction, inputSize int, init Initializer, rng *rand.Rand) error {
	if net.err != nil {
		return net.err
	} else if net.stat >= finalized {
		return ErrNetFinalized
	} else if len(net.blocks) == 0 {
		return ErrNoBlocks
	} else if cf == nil {
		return NilArgError{"CostFunction"}
	} else if init == nil {
		return NilArgError{"Initializer"}
	} else if rng == nil {
		return NilArgError{"RNG"}
	} else if inputSize < 1 {
		return errors.Errorf("Input size must be >= 1 (%d)", inputSize)
	}

	size := inputSize
	for i, b := range net.blocks {
		if err := b.Init(size, init, rng); err != nil {
			return errors.Wrapf(err, "Initializing block %d (%s) failed", i, b.TypeString())
		}

		if b.InputSize() != size {
			return errors.Wrapf(SizeMismatchError{size, b.InputSize(), "block input"}, "Block %d", i)
		}

		size = b.OutputSize()
	}

	net.cf = cf
	net.stat = finalized
	return nil
}

// Blocks returns a copy of the list of Blocks in the Network
func (net *Network) Blocks() []Block {
	bs := make([]Block, len(net.blocks))
	copy(bs, net.blocks)
	return bs
}

// NumBlocks returns the number of Blocks in the Network
func (net *Network) NumBlocks() int {
	return len(net.blocks)
}

// NumConstraints returns the number of equality constraints, one fewer than the number of Blocks.
func (net *Network) NumConstraints() int {
	if len(net.blocks) == 0 {
		return 0
	}

	return len(net.blocks) - 1
}

// InputSize returns the input size of the first Block, or -1 if the Network is not finalized.
func (net *Network) InputSize() int {
	if net.stat < finalized {
		return -1
	}

	return net.blocks[0].InputSize()
}

// OutputSize returns the output size of the last Block, or -1 if the Network is not finalized.
func (net *Network) OutputSize() int {
	if net.stat < finalized {
		return -1
	}

	return net.blocks[len(net.blocks)-1].OutputSize()
}

// Cost returns the CostFunction of the Network
func (net *Network) Cost() CostFunction {
	return net.cf
}

// Penalty returns rho, the weight of the augmented term
func (net *Network) Penalty() float64 {
	return net.rho
}

// Split returns the split variable following block l. The returned matrix is NOT a copy.
func (net *Network) Split(l int) *mat.Dense {
	return net.split[l]
}

// Multiplier returns the multipliers on the constraint of block l. The returned matrix is NOT a
// copy.
func (net *Network) Multiplier(l int) *mat.Dense {
	return net.mult[l]
}

// Rollout runs the inputs forward through every Block, returning the outputs of each of them.
func (net *Network) Rollout(x *mat.Dense) ([]*mat.Dense, error) {
	if net.stat < finalized {
		return nil, ErrNetNotFinalized
	}

	if _, c := x.Dims(); c != net.InputSize() {
		return nil, SizeMismatchError{net.InputSize(), c, "network inputs"}
	}

	outs := make([]*mat.Dense, len(net.blocks))
	h := x
	for i, b := range net.blocks {
		h, _ = b.Forward(h)
		outs[i] = h
	}

	return outs, nil
}

// Predict returns the output of the full Network for the given inputs, ignoring split variables.
func (net *Network) Predict(x *mat.Dense) (*mat.Dense, error) {
	outs, err := net.Rollout(x)
	if err != nil {
		return nil, err
	}

	return outs[len(outs)-1], nil
}

// SeedSplits sets the split variables to the outputs of a rollout on x (the full set of training
// inputs), optionally with added Gaussian noise of standard deviation noise, and resets all
// multipliers to zero. Row i of every split variable belongs to row i of x.
func (net *Network) SeedSplits(x *mat.Dense, noise float64, rng *rand.Rand) error {
	outs, err := net.Rollout(x)
	if err != nil {
		return errors.Wrap(err, "Can't seed split variables")
	}

	if noise > 0 && rng == nil {
		return NilArgError{"RNG"}
	}

	n := net.NumConstraints()
	net.split = make([]*mat.Dense, n)
	net.mult = make([]*mat.Dense, n)

	for l := 0; l < n; l++ {
		s := mat.DenseCopyOf(outs[l])
		if noise > 0 {
			s.Apply(func(_, _ int, v float64) float64 {
				return v + noise*rng.NormFloat64()
			}, s)
		}

		r, c := s.Dims()
		net.split[l] = s
		net.mult[l] = mat.NewDense(r, c, nil)
	}

	net.stat = seeded
	net.seedGen++
	return nil
}

// NumSamples returns the number of rows of the split variables, which is the size of the training
// set they were seeded from. It returns 0 before seeding.
func (net *Network) NumSamples() int {
	if net.stat < seeded || len(net.split) == 0 {
		return 0
	}

	r, _ := net.split[0].Dims()
	return r
}

// ResetMultipliers sets every multiplier back to zero
func (net *Network) ResetMultipliers() {
	for _, m := range net.mult {
		m.Zero()
	}
}
