package splitnet

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// BaselineArgs are the arguments to TrainBaseline. Fields mean the same as in TrainArgs.
type BaselineArgs struct {
	Net *Network

	// Theta is the update rule for the block weights. There are no other variables.
	Theta    Group
	GradClip float64

	Train, Test *Dataset
	Batches     Batcher

	RunCondition func(int) bool
	ShouldEval   func(int) bool
	Update       func(Result)

	Logger *zap.Logger
}

// TrainBaseline trains the Network with ordinary end-to-end backpropagation, ignoring split
// variables and multipliers. It serves as the point of comparison for constrained training.
func TrainBaseline(ctx context.Context, args BaselineArgs) error {
	{
		if args.Net == nil {
			return NilArgError{"Net"}
		} else if args.Net.stat < finalized {
			return ErrNetNotFinalized
		} else if args.Batches == nil {
			return NilArgError{"Batches"}
		} else if args.RunCondition == nil {
			return NilArgError{"RunCondition"}
		} else if err := args.Theta.check("Theta"); err != nil {
			return err
		}

		if err := args.Train.Check(); err != nil {
			return errors.Wrap(err, "Bad training data")
		} else if args.Test != nil {
			if err := args.Test.Check(); err != nil {
				return errors.Wrap(err, "Bad test data")
			}
		}

		if args.ShouldEval == nil {
			args.ShouldEval = func(int) bool { return false }
		}
		if args.Update == nil {
			args.Update = func(Result) {}
		}
		if args.Logger == nil {
			args.Logger = zap.NewNop()
		}
	}

	net := args.Net
	states := make([][]OptimizerState, len(net.blocks))
	for l, b := range net.blocks {
		for _, w := range b.Params() {
			r, c := w.Dims()
			states[l] = append(states[l], args.Theta.Optimizer.New(r, c))
		}
	}

	log := args.Logger.With(zap.String("method", "backprop"))
	start := time.Now()
	var lastLoss float64

	iter := 0
	for ; ; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if args.ShouldEval(iter) {
			r, err := Evaluate(net, args.Train, args.Test)
			if err != nil {
				return errors.Wrapf(err, "Evaluation on iteration %d failed", iter)
			}

			r.Iteration, r.Elapsed = iter, time.Since(start)
			r.Loss, r.Lagrangian = lastLoss, lastLoss
			args.Update(r)
		}

		if !args.RunCondition(iter) {
			break
		}

		batch, err := args.Train.Batch(args.Batches.Next(iter))
		if err != nil {
			return errors.Wrapf(err, "Failed to get training batch on iteration %d", iter)
		}

		loss, grads, err := net.Backprop(batch)
		if err != nil {
			return errors.Wrapf(err, "Backpropagation on iteration %d failed", iter)
		}

		var all []*mat.Dense
		for _, gs := range grads {
			all = append(all, gs...)
		}
		clipGlobal(all, args.GradClip)

		lr := args.Theta.LearningRate.Value(iter)
		for l, b := range net.blocks {
			for p, w := range b.Params() {
				addRows(w, states[l][p].Direction(grads[l][p], nil, true), nil, -lr)
			}
		}

		if ce := log.Check(zap.DebugLevel, "step"); ce != nil {
			ce.Write(zap.Int("iter", iter), zap.Float64("loss", loss))
		}
		lastLoss = loss
	}

	r, err := Evaluate(net, args.Train, args.Test)
	if err != nil {
		return errors.Wrap(err, "Final evaluation failed")
	}

	r.Iteration, r.Elapsed, r.Final = iter, time.Since(start), true
	r.Loss, r.Lagrangian = lastLoss, lastLoss
	args.Update(r)

	return nil
}

// Backprop returns the cost of the full Network on the batch, and its gradient w.r.t. every
// parameter of every Block (plus the weight penalty, if there is one).
func (net *Network) Backprop(batch Batch) (float64, [][]*mat.Dense, error) {
	if net.stat < finalized {
		return 0, nil, ErrNetNotFinalized
	} else if batch.Size() == 0 {
		return 0, nil, ErrEmptyBatch
	}

	traces := make([]any, len(net.blocks))
	h := batch.X
	for l, b := range net.blocks {
		h, traces[l] = b.Forward(h)
	}

	if _, c := batch.Y.Dims(); c != net.OutputSize() {
		return 0, nil, SizeMismatchError{net.OutputSize(), c, "targets"}
	}

	loss := net.cf.Cost(h, batch.Y)
	if !isFinite(loss) {
		return loss, nil, errors.Wrapf(ErrNotFinite, "Loss %v", loss)
	}

	grads := make([][]*mat.Dense, len(net.blocks))
	d := net.cf.Deriv(h, batch.Y)
	for l := len(net.blocks) - 1; l >= 0; l-- {
		d, grads[l] = net.blocks[l].Backward(traces[l], d, l > 0)
	}

	if net.pen != nil {
		for l, b := range net.blocks {
			for p, w := range b.Params() {
				loss += net.pen.Value(w)
				net.pen.AddGrad(w, grads[l][p])
			}
		}
	}

	return loss, grads, nil
}
