package splitnet_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	sn "github.com/sharnoff/splitnet"
	"github.com/sharnoff/splitnet/blocks"
	"github.com/sharnoff/splitnet/costfuncs"
	"github.com/sharnoff/splitnet/datasets"
	"github.com/sharnoff/splitnet/hyperparams"
	"github.com/sharnoff/splitnet/initializers"
	"github.com/sharnoff/splitnet/optimizers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blobs returns a small, well separated classification problem with normalized features
func blobs(t *testing.T, seed int64, samples int) *sn.Dataset {
	t.Helper()

	ds, err := datasets.Blobs(samples, 4, 3, 0.5, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	datasets.NormalizeColumns(ds.X)
	return ds
}

// threeBlocks returns a finalized Network of three smooth blocks on 4 inputs and 3 classes
func threeBlocks(t *testing.T, seed int64) *sn.Network {
	t.Helper()

	net := new(sn.Network).
		Add(blocks.Sequential(blocks.Dense(5, blocks.Tanh()))).
		Add(blocks.Sequential(blocks.Dense(4, blocks.Tanh()), blocks.Dense(4, blocks.Softplus()))).
		Add(blocks.Sequential(blocks.Dense(3, blocks.LogSoftmax())))

	require.NoError(t, net.Finalize(costfuncs.NLL(), 4, initializers.Xavier(), rand.New(rand.NewSource(seed))))
	return net
}

func sgdSolver(method sn.Method, lr float64) *sn.Solver {
	g := sn.Group{Optimizer: optimizers.SGD(), LearningRate: hyperparams.Constant(lr)}
	return &sn.Solver{Method: method, Theta: g, Split: g, Mult: g}
}

func adamSolver(method sn.Method, lr float64) *sn.Solver {
	g := sn.Group{Optimizer: optimizers.Adam(), LearningRate: hyperparams.Constant(lr)}
	return &sn.Solver{Method: method, Theta: g, Split: g, Mult: g, GradClip: 4}
}
