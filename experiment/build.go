package experiment

import (
	"math/rand"

	"github.com/pkg/errors"

	sn "github.com/sharnoff/splitnet"
	"github.com/sharnoff/splitnet/blocks"
	"github.com/sharnoff/splitnet/config"
	"github.com/sharnoff/splitnet/costfuncs"
	"github.com/sharnoff/splitnet/datasets"
	"github.com/sharnoff/splitnet/initializers"
	"github.com/sharnoff/splitnet/optimizers"
	"github.com/sharnoff/splitnet/penalties"
)

// LoadData returns the training and test sets. If normalization is enabled, the test set is scaled
// by the feature norms of the training set.
func LoadData(cfg *config.Config, rng *rand.Rand) (train, test *sn.Dataset, err error) {
	d := cfg.Dataset

	var all *sn.Dataset
	switch d.Name {
	case "blobs":
		all, err = datasets.Blobs(d.Samples, d.Features, d.Classes, d.Spread, rng)
	case "csv":
		all, err = datasets.ReadCSVFile(d.Path, d.Classes, d.Scale)
	default:
		err = errors.Errorf("Unknown dataset %q", d.Name)
	}
	if err != nil {
		return nil, nil, err
	}

	if d.TestPath != "" {
		train = all
		if test, err = datasets.ReadCSVFile(d.TestPath, d.Classes, d.Scale); err != nil {
			return nil, nil, err
		}
	} else if train, test, err = datasets.Split(all, d.TestFraction, rng); err != nil {
		return nil, nil, err
	}

	_, trainCols := train.X.Dims()
	if _, testCols := test.X.Dims(); testCols != trainCols {
		return nil, nil, sn.SizeMismatchError{Expected: trainCols, Given: testCols, Name: "test features"}
	}

	if d.Normalize {
		norms := datasets.NormalizeColumns(train.X)
		datasets.ScaleColumns(test.X, norms)
	}

	return train, test, nil
}

// BuildNetwork returns a finalized Network of Sequential blocks, as described by the model
// config. The output layer is part of the last block.
func BuildNetwork(cfg *config.Config, inputs int, rng *rand.Rand) (*sn.Network, error) {
	m, o := cfg.Model, cfg.Objective

	cf, err := costfuncs.ByName(o.Loss, o.HuberDelta)
	if err != nil {
		return nil, err
	}

	init, err := initializers.ByName(m.Initializer)
	if err != nil {
		return nil, err
	}

	pen, err := penalties.ByName(o.Penalty.Type, o.Penalty.Alpha, o.Penalty.Lambda)
	if err != nil {
		return nil, err
	}

	out, err := blocks.ActivationByName(m.Output, 0)
	if err != nil {
		return nil, err
	}

	sizes := cfg.BlockSizes()
	net := new(sn.Network)
	for i, n := range sizes {
		var layers []int
		for j := 0; j < n; j++ {
			layers = append(layers, m.Hidden)
		}

		hidden, err := blocks.ActivationByName(m.Activation, m.Alpha)
		if err != nil {
			return nil, err
		}

		if i == len(sizes)-1 {
			layers = append(layers, cfg.Dataset.Classes)
			net.Add(blocks.MLP(layers, hidden, out))
		} else {
			net.Add(blocks.MLP(layers, hidden, hidden))
		}
	}

	net.SetPenalty(o.Rho).StopTargetGradient(o.StopTargetGradient)
	if pen != nil {
		net.Regularize(pen)
	}

	if err := net.Finalize(cf, inputs, init, rng); err != nil {
		return nil, errors.Wrap(err, "Failed to build network")
	}

	return net, nil
}

// BuildSolver returns the Solver described by the solver config. The groups share one Optimizer,
// which still keeps separate moments for every variable.
func BuildSolver(cfg *config.Config) (*sn.Solver, error) {
	s := cfg.Solver

	method, err := sn.ParseMethod(s.Method)
	if err != nil {
		return nil, err
	}

	var opt sn.Optimizer = optimizers.SGD()
	if s.UseAdam {
		opt = optimizers.Adam().Betas(s.Adam1, s.Adam2)
	}

	solver := &sn.Solver{Method: method, GradClip: s.GradClip, MaxNorm: s.MaxNorm}
	groups := []struct {
		g     *sn.Group
		sched config.Schedule
	}{
		{&solver.Theta, s.LRTheta},
		{&solver.Split, s.LRX},
		{&solver.Mult, s.LRY},
	}

	for _, gr := range groups {
		lr, err := gr.sched.Build()
		if err != nil {
			return nil, err
		}

		*gr.g = sn.Group{Optimizer: opt, LearningRate: lr}
	}

	return solver, nil
}
