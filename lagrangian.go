package splitnet

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sharnoff/splitnet/utils"
)

// Gradients holds the value of the Lagrangian on a single Batch, along with its gradient w.r.t.
// every variable that the Batch touches.
type Gradients struct {
	// Indices are the rows of the split variables and multipliers that Split and Mult refer to.
	Indices []int

	// Theta[l][p] is the gradient w.r.t. parameter p of block l
	Theta [][]*mat.Dense

	// Split[l] and Mult[l] have one row per index in Indices
	Split []*mat.Dense
	Mult  []*mat.Dense

	// Value is the full Lagrangian; Loss is the task loss alone, and Reg the weight penalty.
	Value, Loss, Reg float64

	// DefectNorms[l] is the Frobenius norm of the defect of constraint l over the Batch, and
	// MaxDefect the largest absolute defect of any of them.
	DefectNorms []float64
	MaxDefect   float64
}

// blockResult is what a single block contributes to the Lagrangian
type blockResult struct {
	value  float64 // constraint term, or loss for the last block
	dIn    *mat.Dense
	dTheta []*mat.Dense
	dSplit *mat.Dense // gradient w.r.t. the block's own split variable
	dMult  *mat.Dense
	defect *mat.Dense
}

// Lagrangian evaluates the Lagrangian on the given Batch, whose indices select the rows of the
// split variables and multipliers:
//
//	L = loss(f_last(S_last[I]), Y) + sum_l ( <λ_l[I], h_l> / B + ρ/(2B) |h_l|² ) + penalty(θ)
//
// where h_0 = f_0(X) - S_0[I] and h_l = f_l(S_{l-1}[I]) - S_l[I].
//
// Given the split variables, each Block is independent of the others, so Blocks are evaluated
// concurrently.
func (net *Network) Lagrangian(ctx context.Context, batch Batch) (*Gradients, error) {
	if net.stat < finalized {
		return nil, ErrNetNotFinalized
	} else if net.NumConstraints() > 0 && net.stat < seeded {
		return nil, ErrNotSeeded
	} else if batch.Size() == 0 {
		return nil, ErrEmptyBatch
	}

	if r, _ := batch.X.Dims(); r != batch.Size() {
		return nil, SizeMismatchError{batch.Size(), r, "batch inputs"}
	} else if r, _ := batch.Y.Dims(); r != batch.Size() {
		return nil, SizeMismatchError{batch.Size(), r, "batch targets"}
	}

	if net.NumConstraints() > 0 {
		if err := checkIndices(batch.Indices, net.NumSamples()); err != nil {
			return nil, errors.Wrap(err, "Batch does not match the split variables")
		}
	}

	last := len(net.blocks) - 1
	results := make([]blockResult, len(net.blocks))

	err := utils.ForEach(ctx, len(net.blocks), 0, func(_ context.Context, l int) error {
		in := batch.X
		if l > 0 {
			in = GatherRows(net.split[l-1], batch.Indices)
		}

		var err error
		if l == last {
			results[l], err = net.lossTerm(in, batch.Y, l != 0)
		} else {
			results[l], err = net.constraintTerm(l, in, batch.Indices, l != 0)
		}

		return errors.Wrapf(err, "Block %d", l)
	})
	if err != nil {
		return nil, err
	}

	g := &Gradients{
		Indices:     batch.Indices,
		Theta:       make([][]*mat.Dense, len(net.blocks)),
		Split:       make([]*mat.Dense, last),
		Mult:        make([]*mat.Dense, last),
		DefectNorms: make([]float64, last),
	}

	for l, res := range results {
		g.Value += res.value
		g.Theta[l] = res.dTheta

		if l == last {
			g.Loss = res.value
		} else {
			g.Mult[l] = res.dMult
			g.Split[l] = res.dSplit
			g.DefectNorms[l] = mat.Norm(res.defect, 2)
			g.MaxDefect = math.Max(g.MaxDefect, maxAbs(res.defect))
		}

		// the input gradient of block l belongs to the split variable before it
		if l > 0 {
			g.Split[l-1].Add(g.Split[l-1], res.dIn)
		}
	}

	if net.pen != nil {
		for l, b := range net.blocks {
			for p, w := range b.Params() {
				g.Reg += net.pen.Value(w)
				net.pen.AddGrad(w, g.Theta[l][p])
			}
		}
		g.Value += g.Reg
	}

	if !isFinite(g.Value) {
		return g, errors.Wrapf(ErrNotFinite, "Lagrangian value %v", g.Value)
	}

	return g, nil
}

// lossTerm evaluates the task loss of the final block on its inputs
func (net *Network) lossTerm(in, targets *mat.Dense, needInput bool) (blockResult, error) {
	b := net.blocks[len(net.blocks)-1]

	out, trace := b.Forward(in)
	if _, c := out.Dims(); c != b.OutputSize() {
		return blockResult{}, SizeMismatchError{b.OutputSize(), c, "block outputs"}
	} else if _, tc := targets.Dims(); tc != c {
		return blockResult{}, SizeMismatchError{c, tc, "targets"}
	}

	loss := net.cf.Cost(out, targets)
	dIn, dTheta := b.Backward(trace, net.cf.Deriv(out, targets), needInput)

	return blockResult{value: loss, dIn: dIn, dTheta: dTheta}, nil
}

// constraintTerm evaluates the multiplier and augmented terms of constraint l
func (net *Network) constraintTerm(l int, in *mat.Dense, indices []int, needInput bool) (blockResult, error) {
	b := net.blocks[l]
	scale := 1 / float64(len(indices))

	out, trace := b.Forward(in)
	target := GatherRows(net.split[l], indices)
	lambda := GatherRows(net.mult[l], indices)

	var h mat.Dense
	h.Sub(out, target)

	value := scale * (sumProduct(lambda, &h) + 0.5*net.rho*sumSquares(&h))

	// dL/dh = (λ + ρh) / B
	dh := mat.NewDense(len(indices), b.OutputSize(), nil)
	dh.Scale(net.rho, &h)
	dh.Add(dh, lambda)
	dh.Scale(scale, dh)

	dIn, dTheta := b.Backward(trace, dh, needInput)

	dSplit := mat.NewDense(len(indices), b.OutputSize(), nil)
	if !net.stopTargetGrad {
		dSplit.Scale(-1, dh)
	}

	dMult := mat.NewDense(len(indices), b.OutputSize(), nil)
	dMult.Scale(scale, &h)

	return blockResult{
		value:  value,
		dIn:    dIn,
		dTheta: dTheta,
		dSplit: dSplit,
		dMult:  dMult,
		defect: &h,
	}, nil
}

// Defects returns the constraint residuals over the entire training set: the mean absolute
// defect and the Frobenius norm of each constraint. x must be the inputs the split variables were
// seeded from.
func (net *Network) Defects(x *mat.Dense) (means, norms []float64, err error) {
	if net.stat < seeded {
		return nil, nil, ErrNotSeeded
	}

	if r, _ := x.Dims(); r != net.NumSamples() && net.NumConstraints() > 0 {
		return nil, nil, SizeMismatchError{net.NumSamples(), r, "training inputs"}
	}

	n := net.NumConstraints()
	means = make([]float64, n)
	norms = make([]float64, n)

	in := x
	for l := 0; l < n; l++ {
		out, _ := net.blocks[l].Forward(in)

		var h mat.Dense
		h.Sub(out, net.split[l])
		means[l] = meanAbs(&h)
		norms[l] = mat.Norm(&h, 2)

		in = net.split[l]
	}

	return means, norms, nil
}
