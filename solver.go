package splitnet

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Method is the rule used to update the primal and dual variables together
type Method int8

const (
	// Extragradient first takes a lookahead step from the current point, then steps from the
	// current point using the gradient at the lookahead point. Only the second step is kept.
	Extragradient Method = iota

	// GradientDescentAscent takes a single simultaneous step: descent for the primal variables,
	// ascent for the multipliers.
	GradientDescentAscent
)

func (m Method) String() string {
	switch m {
	case Extragradient:
		return "extragradient"
	case GradientDescentAscent:
		return "gda"
	}

	return "unknown"
}

// ParseMethod returns the Method with the given name, as given by Method.String
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "extragradient", "eg":
		return Extragradient, nil
	case "gda", "gradient-descent-ascent":
		return GradientDescentAscent, nil
	}

	return 0, errors.Errorf("Unknown solver method %q", s)
}

// Group is the update rule for one set of variables
type Group struct {
	Optimizer    Optimizer
	LearningRate HyperParameter
}

func (g Group) check(name string) error {
	if g.Optimizer == nil {
		return NilArgError{name + " Optimizer"}
	} else if g.LearningRate == nil {
		return NilArgError{name + " LearningRate"}
	}

	return nil
}

// Solver finds a saddle point of the Network's Lagrangian: a minimum over the block weights
// (Theta) and split variables (Split), and a maximum over the multipliers (Mult). Each of the
// three groups has its own Optimizer state and learning rate.
//
// A Solver keeps optimizer state for the Network it was last used with. Using it with a different
// Network, or after the Network's split variables were seeded again, resets that state.
type Solver struct {
	Method Method

	Theta, Split, Mult Group

	// GradClip is the largest allowed global L2 norm of the gradient of each group. Larger
	// gradients are scaled down. Zero disables clipping.
	GradClip float64

	// MaxNorm, if positive, is the largest allowed L2 norm of any row of a split variable. Rows
	// are projected back after every update.
	MaxNorm float64

	net   *Network
	gen   int
	theta [][]OptimizerState
	split []OptimizerState
	mult  []OptimizerState
}

// Reset discards all optimizer state
func (s *Solver) Reset() {
	s.net = nil
	s.theta, s.split, s.mult = nil, nil, nil
}

func (s *Solver) check(net *Network) error {
	if err := s.Theta.check("Theta"); err != nil {
		return err
	}

	if net.NumConstraints() > 0 {
		if err := s.Split.check("Split"); err != nil {
			return err
		} else if err := s.Mult.check("Mult"); err != nil {
			return err
		}
	}

	if s.GradClip < 0 || !isFinite(s.GradClip) {
		return errors.Errorf("GradClip must be finite and >= 0 (%v)", s.GradClip)
	} else if s.MaxNorm < 0 || !isFinite(s.MaxNorm) {
		return errors.Errorf("MaxNorm must be finite and >= 0 (%v)", s.MaxNorm)
	}

	return nil
}

// init creates fresh optimizer state for the variables of net
func (s *Solver) init(net *Network) {
	s.net, s.gen = net, net.seedGen
	s.theta = make([][]OptimizerState, len(net.blocks))
	for l, b := range net.blocks {
		ps := b.Params()
		s.theta[l] = make([]OptimizerState, len(ps))
		for p, w := range ps {
			r, c := w.Dims()
			s.theta[l][p] = s.Theta.Optimizer.New(r, c)
		}
	}

	s.split = make([]OptimizerState, net.NumConstraints())
	s.mult = make([]OptimizerState, net.NumConstraints())
	for l := range s.split {
		r, c := net.split[l].Dims()
		s.split[l] = s.Split.Optimizer.New(r, c)
		s.mult[l] = s.Mult.Optimizer.New(r, c)
	}
}

// Step performs a single update of all variables touched by the Batch, returning the Lagrangian
// and its gradients at the point before the update. The returned gradients are not clipped.
func (s *Solver) Step(ctx context.Context, net *Network, batch Batch, iter int) (*Gradients, error) {
	if err := s.check(net); err != nil {
		return nil, errors.Wrap(err, "Invalid solver")
	}

	if s.net != net || s.gen != net.seedGen {
		if net.stat < seeded && net.NumConstraints() > 0 {
			return nil, ErrNotSeeded
		}
		s.init(net)
	}

	g, err := net.Lagrangian(ctx, batch)
	if err != nil {
		return nil, errors.Wrapf(err, "Evaluating Lagrangian on iteration %d failed", iter)
	}

	switch s.Method {
	case GradientDescentAscent:
		s.apply(net, g, iter, true)

	case Extragradient:
		snap := takeSnapshot(net, batch.Indices)
		s.apply(net, g, iter, false)

		ahead, err := net.Lagrangian(ctx, batch)
		snap.restore(net)
		if err != nil {
			return nil, errors.Wrapf(err, "Evaluating Lagrangian at lookahead point on iteration %d failed", iter)
		}

		s.apply(net, ahead, iter, true)

	default:
		return nil, errors.Errorf("Unknown solver method %d", s.Method)
	}

	return g, nil
}

// apply takes a step with clipped copies of the given gradients
func (s *Solver) apply(net *Network, g *Gradients, iter int, commit bool) {
	theta := make([][]*mat.Dense, len(g.Theta))
	var thetaGrads []*mat.Dense
	for l, gs := range g.Theta {
		theta[l] = copyAll(gs)
		thetaGrads = append(thetaGrads, theta[l]...)
	}
	split, mult := copyAll(g.Split), copyAll(g.Mult)

	clipGlobal(thetaGrads, s.GradClip)
	clipGlobal(split, s.GradClip)
	clipGlobal(mult, s.GradClip)

	lr := s.Theta.LearningRate.Value(iter)
	for l, b := range net.blocks {
		for p, w := range b.Params() {
			dir := s.theta[l][p].Direction(theta[l][p], nil, commit)
			addRows(w, dir, nil, -lr)
		}
	}

	if net.NumConstraints() == 0 {
		return
	}

	lrX := s.Split.LearningRate.Value(iter)
	lrY := s.Mult.LearningRate.Value(iter)
	for l := range net.split {
		dir := s.split[l].Direction(split[l], g.Indices, commit)
		addRows(net.split[l], dir, g.Indices, -lrX)

		if s.MaxNorm > 0 {
			projectRows(net.split[l], g.Indices, s.MaxNorm)
		}

		// ascent
		dir = s.mult[l].Direction(mult[l], g.Indices, commit)
		addRows(net.mult[l], dir, g.Indices, lrY)
	}
}

// snapshot holds the values of every variable that a step on a Batch may change
type snapshot struct {
	indices     []int
	theta       [][]*mat.Dense
	split, mult []*mat.Dense
}

func takeSnapshot(net *Network, indices []int) snapshot {
	snap := snapshot{
		indices: indices,
		theta:   make([][]*mat.Dense, len(net.blocks)),
		split:   make([]*mat.Dense, len(net.split)),
		mult:    make([]*mat.Dense, len(net.mult)),
	}

	for l, b := range net.blocks {
		for _, w := range b.Params() {
			snap.theta[l] = append(snap.theta[l], mat.DenseCopyOf(w))
		}
	}

	for l := range net.split {
		snap.split[l] = GatherRows(net.split[l], indices)
		snap.mult[l] = GatherRows(net.mult[l], indices)
	}

	return snap
}

func (snap snapshot) restore(net *Network) {
	for l, b := range net.blocks {
		for p, w := range b.Params() {
			w.Copy(snap.theta[l][p])
		}
	}

	for l := range net.split {
		for i, r := range snap.indices {
			net.split[l].SetRow(r, snap.split[l].RawRowView(i))
			net.mult[l].SetRow(r, snap.mult[l].RawRowView(i))
		}
	}
}
