package splitnet

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Result is a snapshot of the progress of training, sent through TrainArgs.Update
type Result struct {
	// The iteration the result is being sent before
	Iteration int

	// Values on the most recent training batch
	Lagrangian float64
	Loss       float64
	MaxDefect  float64

	// Constraint residuals over the full training set, one per constraint
	DefectMeans []float64
	DefectNorms []float64

	// Frobenius norm of each multiplier
	MultiplierNorms []float64

	// Cost and fraction correct of the full Network, evaluated end-to-end (ignoring split
	// variables). Test values are only set if HasTest is true.
	RolloutLoss   float64
	TrainAccuracy float64
	TestLoss      float64
	TestAccuracy  float64
	HasTest       bool

	Elapsed time.Duration

	// Final is true for the result sent after training has stopped
	Final bool
}

// Tolerance is the convergence test for constrained training. Training stops once the largest
// defect on a batch is at most ATol and the Lagrangian changes by at most RTol (relative) between
// consecutive iterations. The zero value never converges.
type Tolerance struct {
	ATol, RTol float64
}

func (t Tolerance) enabled() bool {
	return t.ATol > 0 || t.RTol > 0
}

func (t Tolerance) converged(g *Gradients, prev float64) bool {
	if !t.enabled() {
		return false
	}

	scale := math.Max(math.Abs(prev), 1e-12)
	return g.MaxDefect <= t.ATol && math.Abs(g.Value-prev) <= t.RTol*scale
}

type TrainArgs struct {
	Net    *Network
	Solver *Solver

	// Train must be the Dataset the Network's split variables were seeded from; Test can be nil.
	Train, Test *Dataset

	// Batches gives the sample indices of each iteration
	Batches Batcher

	// RunCondition will be called at each successive iteration to determine if training should
	// continue. Training will stop if 'false' is returned.
	RunCondition func(int) bool

	// ShouldEval indicates whether or not the full Network should be evaluated before the current
	// iteration. It can be left nil to represent an unconditional false. An evaluation is always
	// sent after training finishes.
	ShouldEval func(int) bool

	// Update is how evaluations are returned. It can be left nil.
	Update func(Result)

	Tolerance Tolerance

	// Logger receives debug output for every iteration. Nil is replaced by a no-op Logger.
	Logger *zap.Logger
}

// Train trains the Network by repeatedly stepping the Solver on batches from the training set.
// Train returns early with the context's error if ctx is cancelled.
func Train(ctx context.Context, args TrainArgs) error {
	// handle error cases and set defaults
	{
		if args.Net == nil {
			return NilArgError{"Net"}
		} else if args.Solver == nil {
			return NilArgError{"Solver"}
		} else if args.Batches == nil {
			return NilArgError{"Batches"}
		} else if args.RunCondition == nil {
			return NilArgError{"RunCondition"}
		}

		if err := args.Train.Check(); err != nil {
			return errors.Wrap(err, "Bad training data")
		} else if args.Test != nil {
			if err := args.Test.Check(); err != nil {
				return errors.Wrap(err, "Bad test data")
			}
		}

		if args.Net.stat < seeded {
			return ErrNotSeeded
		} else if n := args.Net.NumSamples(); n != 0 && n != args.Train.Size() {
			return SizeMismatchError{n, args.Train.Size(), "training set (split variables)"}
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

	log := args.Logger.With(zap.String("method", args.Solver.Method.String()))
	start := time.Now()

	var last *Gradients
	prev := math.NaN()
	iter := 0

	for ; ; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if args.ShouldEval(iter) {
			r, err := Evaluate(args.Net, args.Train, args.Test)
			if err != nil {
				return errors.Wrapf(err, "Evaluation on iteration %d failed", iter)
			}

			r.Iteration, r.Elapsed = iter, time.Since(start)
			fillBatchValues(&r, last)
			args.Update(r)
		}

		if !args.RunCondition(iter) {
			break
		}

		batch, err := args.Train.Batch(args.Batches.Next(iter))
		if err != nil {
			return errors.Wrapf(err, "Failed to get training batch on iteration %d", iter)
		}

		g, err := args.Solver.Step(ctx, args.Net, batch, iter)
		if err != nil {
			return errors.Wrapf(err, "Solver step on iteration %d failed", iter)
		}

		if ce := log.Check(zap.DebugLevel, "step"); ce != nil {
			ce.Write(
				zap.Int("iter", iter),
				zap.Float64("lagrangian", g.Value),
				zap.Float64("loss", g.Loss),
				zap.Float64("max_defect", g.MaxDefect),
			)
		}

		last = g
		if args.Tolerance.converged(g, prev) {
			log.Info("converged", zap.Int("iter", iter), zap.Float64("max_defect", g.MaxDefect))
			iter++
			break
		}
		prev = g.Value
	}

	r, err := Evaluate(args.Net, args.Train, args.Test)
	if err != nil {
		return errors.Wrap(err, "Final evaluation failed")
	}

	r.Iteration, r.Elapsed, r.Final = iter, time.Since(start), true
	fillBatchValues(&r, last)
	args.Update(r)

	return nil
}

func fillBatchValues(r *Result, g *Gradients) {
	if g == nil {
		return
	}

	r.Lagrangian, r.Loss, r.MaxDefect = g.Value, g.Loss, g.MaxDefect
}

// Evaluate runs the full Network on the training (and test, if not nil) set. Constraint
// residuals are included if the Network has been seeded from train.
func Evaluate(net *Network, train, test *Dataset) (Result, error) {
	var r Result

	loss, acc, err := evalSet(net, train)
	if err != nil {
		return r, errors.Wrap(err, "Evaluating training set")
	}
	r.RolloutLoss, r.TrainAccuracy = loss, acc

	if test != nil {
		if r.TestLoss, r.TestAccuracy, err = evalSet(net, test); err != nil {
			return r, errors.Wrap(err, "Evaluating test set")
		}
		r.HasTest = true
	}

	if net.stat >= seeded && net.NumSamples() == train.Size() {
		if r.DefectMeans, r.DefectNorms, err = net.Defects(train.X); err != nil {
			return r, err
		}

		r.MultiplierNorms = make([]float64, len(net.mult))
		for l, m := range net.mult {
			r.MultiplierNorms[l] = mat.Norm(m, 2)
		}
	}

	return r, nil
}

func evalSet(net *Network, d *Dataset) (loss, acc float64, err error) {
	outs, err := net.Predict(d.X)
	if err != nil {
		return 0, 0, err
	}

	return net.cf.Cost(outs, d.Y), Accuracy(outs, d.Y), nil
}
