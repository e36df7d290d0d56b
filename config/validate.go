package config

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	sn "github.com/sharnoff/splitnet"
	"github.com/sharnoff/splitnet/blocks"
	"github.com/sharnoff/splitnet/costfuncs"
	"github.com/sharnoff/splitnet/initializers"
	"github.com/sharnoff/splitnet/penalties"
)

// Validate returns every problem with the configuration, combined into a single error.
func (c *Config) Validate() error {
	var err error
	add := func(e error) { err = multierr.Append(err, e) }

	d := c.Dataset
	switch d.Name {
	case "blobs":
		if d.Samples < 2 || d.Features < 1 {
			add(errors.Errorf("dataset: blobs need samples >= 2 and features >= 1 (%d, %d)", d.Samples, d.Features))
		}
		if d.Spread < 0 {
			add(errors.Errorf("dataset: spread must be >= 0 (%v)", d.Spread))
		}
	case "csv":
		if d.Path == "" {
			add(errors.New("dataset: csv requires a path"))
		}
	default:
		add(errors.Errorf("dataset: unknown name %q", d.Name))
	}
	if d.Classes < 1 {
		add(errors.Errorf("dataset: classes must be >= 1 (%d)", d.Classes))
	}
	if d.TestPath == "" && !(d.TestFraction > 0 && d.TestFraction < 1) {
		add(errors.Errorf("dataset: test_fraction must be in (0, 1) (%v)", d.TestFraction))
	}

	m := c.Model
	if m.Hidden < 1 {
		add(errors.Errorf("model: hidden must be >= 1 (%d)", m.Hidden))
	}
	if len(c.BlockSizes()) == 0 {
		add(errors.New("model: no blocks"))
	}
	for _, b := range m.Blocks {
		if b < 0 {
			add(errors.Errorf("model: negative block size %d", b))
		}
	}
	if _, e := blocks.ActivationByName(m.Activation, m.Alpha); e != nil {
		add(errors.Wrap(e, "model"))
	}
	if _, e := blocks.ActivationByName(m.Output, 0); e != nil {
		add(errors.Wrap(e, "model output"))
	}
	if _, e := initializers.ByName(m.Initializer); e != nil {
		add(errors.Wrap(e, "model"))
	}

	o := c.Objective
	if _, e := costfuncs.ByName(o.Loss, o.HuberDelta); e != nil {
		add(errors.Wrap(e, "objective"))
	}
	if o.Rho < 0 {
		add(errors.Errorf("objective: rho must be >= 0 (%v)", o.Rho))
	}
	if _, e := penalties.ByName(o.Penalty.Type, o.Penalty.Alpha, o.Penalty.Lambda); e != nil {
		add(errors.Wrap(e, "objective"))
	}

	s := c.Solver
	if _, e := sn.ParseMethod(s.Method); e != nil {
		add(errors.Wrap(e, "solver"))
	}
	add(s.LRTheta.validate("solver: lr_theta"))
	add(s.LRX.validate("solver: lr_x"))
	add(s.LRY.validate("solver: lr_y"))
	if s.UseAdam && !(s.Adam1 >= 0 && s.Adam1 < 1 && s.Adam2 >= 0 && s.Adam2 < 1) {
		add(errors.Errorf("solver: adam betas must be in [0, 1) (%v, %v)", s.Adam1, s.Adam2))
	}
	if s.GradClip < 0 || s.MaxNorm < 0 || s.SplitNoise < 0 {
		add(errors.New("solver: grad_clip, max_norm and split_noise must be >= 0"))
	}

	if c.Train.Iterations < 0 {
		add(errors.Errorf("train: iterations must be >= 0 (%d)", c.Train.Iterations))
	}
	if c.Train.RTol < 0 || c.Train.ATol < 0 {
		add(errors.New("train: rtol and atol must be >= 0"))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add(errors.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		add(errors.Errorf("logging: unknown format %q", c.Logging.Format))
	}

	return err
}

// BlockSizes returns the number of hidden layers of each block, skipping zero entries.
func (c *Config) BlockSizes() []int {
	var bs []int
	for _, b := range c.Model.Blocks {
		if b > 0 {
			bs = append(bs, b)
		}
	}

	return bs
}
