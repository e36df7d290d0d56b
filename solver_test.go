package splitnet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
	"github.com/sharnoff/splitnet/hyperparams"
	"github.com/sharnoff/splitnet/optimizers"
)

type state struct {
	theta       [][]*mat.Dense
	split, mult []*mat.Dense
}

func copyState(net *sn.Network) state {
	var s state
	for _, b := range net.Blocks() {
		var ps []*mat.Dense
		for _, w := range b.Params() {
			ps = append(ps, mat.DenseCopyOf(w))
		}
		s.theta = append(s.theta, ps)
	}

	for l := 0; l < net.NumConstraints(); l++ {
		s.split = append(s.split, mat.DenseCopyOf(net.Split(l)))
		s.mult = append(s.mult, mat.DenseCopyOf(net.Multiplier(l)))
	}

	return s
}

func setState(net *sn.Network, s state) {
	for l, b := range net.Blocks() {
		for p, w := range b.Params() {
			w.Copy(s.theta[l][p])
		}
	}

	for l := range s.split {
		net.Split(l).Copy(s.split[l])
		net.Multiplier(l).Copy(s.mult[l])
	}
}

// step applies a plain gradient step to every variable, with ascent for the multipliers
func step(net *sn.Network, g *sn.Gradients, lr float64) {
	for l, b := range net.Blocks() {
		for p, w := range b.Params() {
			var d mat.Dense
			d.Scale(-lr, g.Theta[l][p])
			w.Add(w, &d)
		}
	}

	for l := 0; l < net.NumConstraints(); l++ {
		for i, r := range g.Indices {
			s, m := net.Split(l).RawRowView(r), net.Multiplier(l).RawRowView(r)
			for j := range s {
				s[j] -= lr * g.Split[l].At(i, j)
				m[j] += lr * g.Mult[l].At(i, j)
			}
		}
	}
}

func assertState(t *testing.T, want state, net *sn.Network, tol float64) {
	t.Helper()

	got := copyState(net)
	for l := range want.theta {
		for p := range want.theta[l] {
			assert.True(t, mat.EqualApprox(want.theta[l][p], got.theta[l][p], tol), "block %d param %d", l, p)
		}
	}
	for l := range want.split {
		assert.True(t, mat.EqualApprox(want.split[l], got.split[l], tol), "split %d", l)
		assert.True(t, mat.EqualApprox(want.mult[l], got.mult[l], tol), "multiplier %d", l)
	}
}

func TestExtragradientStep(t *testing.T) {
	const lr = 0.05

	net, ds := activeNet(t, 20, 0.5)
	batch, err := ds.Batch([]int{0, 3, 4, 10})
	require.NoError(t, err)

	start := copyState(net)

	// by hand: gradient at the lookahead point, applied from the starting point
	g, err := net.Lagrangian(context.Background(), batch)
	require.NoError(t, err)
	step(net, g, lr)
	ahead, err := net.Lagrangian(context.Background(), batch)
	require.NoError(t, err)
	setState(net, start)
	step(net, ahead, lr)
	want := copyState(net)

	setState(net, start)
	got, err := sgdSolver(sn.Extragradient, lr).Step(context.Background(), net, batch, 0)
	require.NoError(t, err)

	assertState(t, want, net, 1e-12)

	// the returned gradients are those at the starting point
	assert.InDelta(t, g.Value, got.Value, 1e-12)
}

func TestGradientDescentAscentStep(t *testing.T) {
	const lr = 0.1

	net, ds := activeNet(t, 21, 0)
	batch, err := ds.Batch([]int{1, 2, 5})
	require.NoError(t, err)

	start := copyState(net)
	g, err := net.Lagrangian(context.Background(), batch)
	require.NoError(t, err)
	step(net, g, lr)
	want := copyState(net)

	setState(net, start)
	_, err = sgdSolver(sn.GradientDescentAscent, lr).Step(context.Background(), net, batch, 0)
	require.NoError(t, err)
	assertState(t, want, net, 1e-12)

	// multipliers moved up along the defect
	for l := 0; l < net.NumConstraints(); l++ {
		for i, r := range batch.Indices {
			for j := range g.Mult[l].RawRowView(i) {
				delta := net.Multiplier(l).At(r, j) - start.mult[l].At(r, j)
				assert.InDelta(t, lr*g.Mult[l].At(i, j), delta, 1e-12)
			}
		}
	}
}

func TestStepOnlyTouchesBatchRows(t *testing.T) {
	net, ds := activeNet(t, 22, 0.5)
	batch, err := ds.Batch([]int{2, 8})
	require.NoError(t, err)

	start := copyState(net)
	solver := adamSolver(sn.Extragradient, 0.01)
	for i := 0; i < 3; i++ {
		_, err = solver.Step(context.Background(), net, batch, i)
		require.NoError(t, err)
	}

	inBatch := map[int]bool{2: true, 8: true}
	for l := 0; l < net.NumConstraints(); l++ {
		r, _ := net.Split(l).Dims()
		for i := 0; i < r; i++ {
			sameSplit := mat.Equal(start.split[l].RowView(i), net.Split(l).RowView(i))
			sameMult := mat.Equal(start.mult[l].RowView(i), net.Multiplier(l).RowView(i))

			assert.Equal(t, !inBatch[i], sameSplit, "split %d row %d", l, i)
			assert.Equal(t, !inBatch[i], sameMult, "multiplier %d row %d", l, i)
		}
	}
}

// recorder wraps an OptimizerState, recording the commit flag of every call
type recorder struct {
	sn.OptimizerState
	commits *[]bool
}

func (r recorder) Direction(grad *mat.Dense, rows []int, commit bool) *mat.Dense {
	*r.commits = append(*r.commits, commit)
	return r.OptimizerState.Direction(grad, rows, commit)
}

type recordingOptimizer struct {
	sn.Optimizer
	states []*[]bool
}

func (o *recordingOptimizer) New(rows, cols int) sn.OptimizerState {
	commits := new([]bool)
	o.states = append(o.states, commits)
	return recorder{o.Optimizer.New(rows, cols), commits}
}

func TestExtragradientLookaheadNotCommitted(t *testing.T) {
	net, ds := activeNet(t, 23, 0.5)

	opt := &recordingOptimizer{Optimizer: optimizers.Adam()}
	g := sn.Group{Optimizer: opt, LearningRate: hyperparams.Constant(0.01)}
	solver := &sn.Solver{Method: sn.Extragradient, Theta: g, Split: g, Mult: g}

	for i := 0; i < 2; i++ {
		_, err := solver.Step(context.Background(), net, ds.All(), i)
		require.NoError(t, err)
	}

	// every variable: lookahead, then the real step, on each iteration
	require.NotEmpty(t, opt.states)
	for _, commits := range opt.states {
		assert.Equal(t, []bool{false, true, false, true}, *commits)
	}

	opt.states = nil
	solver.Method = sn.GradientDescentAscent
	solver.Reset()
	_, err := solver.Step(context.Background(), net, ds.All(), 2)
	require.NoError(t, err)
	for _, commits := range opt.states {
		assert.Equal(t, []bool{true}, *commits)
	}
}

func TestMaxNormProjection(t *testing.T) {
	net, ds := activeNet(t, 24, 0.5)
	solver := sgdSolver(sn.GradientDescentAscent, 0.5)
	solver.MaxNorm = 0.1

	batch, err := ds.Batch([]int{0, 1, 2})
	require.NoError(t, err)
	_, err = solver.Step(context.Background(), net, batch, 0)
	require.NoError(t, err)

	for l := 0; l < net.NumConstraints(); l++ {
		for _, r := range batch.Indices {
			assert.LessOrEqual(t, mat.Norm(net.Split(l).RowView(r), 2), 0.1+1e-9)
		}
	}
}

func TestStepReturnsUnclippedGradients(t *testing.T) {
	const clip = 1e-3

	net, ds := activeNet(t, 26, 0.5)
	want, err := net.Lagrangian(context.Background(), ds.All())
	require.NoError(t, err)
	before := copyState(net)

	solver := sgdSolver(sn.GradientDescentAscent, 0.1)
	solver.GradClip = clip
	got, err := solver.Step(context.Background(), net, ds.All(), 0)
	require.NoError(t, err)

	for l := range want.Theta {
		for p := range want.Theta[l] {
			assert.True(t, mat.Equal(want.Theta[l][p], got.Theta[l][p]), "block %d param %d", l, p)
		}
	}
	for l := range want.Split {
		assert.True(t, mat.Equal(want.Split[l], got.Split[l]), "split %d", l)
		assert.True(t, mat.Equal(want.Mult[l], got.Mult[l]), "multiplier %d", l)
		assert.Greater(t, mat.Norm(want.Split[l], 2), clip)
	}

	// the step itself was still taken with clipped gradients
	var d mat.Dense
	d.Sub(net.Split(0), before.split[0])
	assert.LessOrEqual(t, mat.Norm(&d, 2), 0.1*clip+1e-12)
}

func TestStepAfterReseed(t *testing.T) {
	net := threeBlocks(t, 27)
	small, large := blobs(t, 27, 10), blobs(t, 27, 40)
	require.NoError(t, net.SeedSplits(small.X, 0, nil))

	opt := &recordingOptimizer{Optimizer: optimizers.Adam()}
	g := sn.Group{Optimizer: opt, LearningRate: hyperparams.Constant(0.01)}
	solver := &sn.Solver{Method: sn.Extragradient, Theta: g, Split: g, Mult: g}

	_, err := solver.Step(context.Background(), net, small.All(), 0)
	require.NoError(t, err)
	n := len(opt.states)

	require.NoError(t, net.SeedSplits(large.X, 0, nil))
	batch, err := large.Batch([]int{30, 35})
	require.NoError(t, err)
	_, err = solver.Step(context.Background(), net, batch, 1)
	require.NoError(t, err)

	// reseeding replaces the optimizer state of every variable
	assert.Len(t, opt.states, 2*n)
}

func TestSolverErrors(t *testing.T) {
	net, ds := activeNet(t, 25, 0)

	_, err := (&sn.Solver{}).Step(context.Background(), net, ds.All(), 0)
	assert.Error(t, err)

	s := sgdSolver(sn.Extragradient, 0.1)
	s.GradClip = -1
	_, err = s.Step(context.Background(), net, ds.All(), 0)
	assert.Error(t, err)

	unseeded := threeBlocks(t, 25)
	_, err = sgdSolver(sn.Extragradient, 0.1).Step(context.Background(), unseeded, ds.All(), 0)
	assert.Equal(t, sn.ErrNotSeeded, err)

	_, err = sn.ParseMethod("newton")
	assert.Error(t, err)
	m, err := sn.ParseMethod("EG")
	require.NoError(t, err)
	assert.Equal(t, sn.Extragradient, m)
	assert.Equal(t, "gda", sn.GradientDescentAscent.String())
}
