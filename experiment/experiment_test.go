package experiment

import (
	"bufio"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/floats"

	"github.com/sharnoff/splitnet/config"
	"github.com/sharnoff/splitnet/metrics"
)

func smallConfig(t *testing.T) *config.Config {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Seed = 3
	cfg.RunName = "small"
	cfg.Dataset.Samples = 60
	cfg.Dataset.Features = 4
	cfg.Dataset.Classes = 3
	cfg.Dataset.Spread = 0.5
	cfg.Model.Hidden = 8
	cfg.Model.Blocks = []int{1, 1}
	cfg.Model.Initializer = "xavier"
	cfg.Solver.UseAdam = true
	cfg.Solver.LRTheta = config.Constant(0.01)
	cfg.Solver.LRX = config.Constant(0.01)
	cfg.Solver.LRY = config.Constant(0.01)
	cfg.Train.BatchSize = 16
	cfg.Train.Iterations = 20
	cfg.Train.RTol, cfg.Train.ATol = 0, 0
	cfg.Logging.MetricsFile = filepath.Join(dir, "metrics.jsonl")
	cfg.Logging.MetricsDB = filepath.Join(dir, "metrics.db")

	return cfg
}

func countLines(t *testing.T, path string) int {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var n int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	return n
}

func TestRun(t *testing.T) {
	cfg := smallConfig(t)

	rep, err := Run(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rep.RunID, "small-"))
	assert.Equal(t, "extragradient", rep.Method)
	assert.True(t, rep.Final.Final)
	assert.Equal(t, 20, rep.Final.Iteration)
	assert.True(t, rep.Final.HasTest)
	assert.Len(t, rep.Final.DefectNorms, 1)
	assert.Equal(t, 4, rep.Summary.Count)
	assert.Equal(t, 2, rep.Net.NumBlocks())

	// evaluations at 0, 10 and 20, then the final result
	assert.Equal(t, 4, countLines(t, cfg.Logging.MetricsFile))

	db, err := metrics.OpenSQLite(cfg.Logging.MetricsDB)
	require.NoError(t, err)
	defer db.Close()

	es, err := metrics.LoadRun(context.Background(), db, rep.RunID)
	require.NoError(t, err)
	require.Len(t, es, 4)
	assert.True(t, es[3].Final)
}

func TestRunBaseline(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Logging.MetricsDB = ""

	rep, err := RunBaseline(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, "backprop", rep.Method)
	assert.Equal(t, 20, rep.Final.Iteration)
	assert.Empty(t, rep.Final.DefectNorms)
	assert.Equal(t, 4, countLines(t, cfg.Logging.MetricsFile))
}

func TestRunErrors(t *testing.T) {
	_, err := Run(context.Background(), nil, nil)
	assert.Error(t, err)

	cfg := smallConfig(t)
	cfg.Solver.Method = "newton"
	_, err = Run(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = smallConfig(t)
	cfg.Logging.MetricsDB = filepath.Join(t.TempDir(), "missing", "metrics.db")
	_, err = Run(context.Background(), cfg, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, smallConfig(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadData(t *testing.T) {
	cfg := smallConfig(t)
	train, test, err := LoadData(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 45, train.Size())
	assert.Equal(t, 15, test.Size())

	// training columns have unit norm after normalization
	col := make([]float64, train.Size())
	for j := 0; j < 4; j++ {
		for i := range col {
			col[i] = train.X.At(i, j)
		}
		assert.InDelta(t, 1, floats.Norm(col, 2), 1e-9)
	}
}

func TestLoadDataCSV(t *testing.T) {
	dir := t.TempDir()
	trainPath, testPath := filepath.Join(dir, "train.csv"), filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(trainPath, []byte("0,1,2\n1,3,4\n1,5,6\n"), 0644))
	require.NoError(t, os.WriteFile(testPath, []byte("0,1,2\n"), 0644))

	cfg := smallConfig(t)
	cfg.Dataset.Name = "csv"
	cfg.Dataset.Path = trainPath
	cfg.Dataset.TestPath = testPath
	cfg.Dataset.Classes = 2
	cfg.Dataset.Normalize = false

	train, test, err := LoadData(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 3, train.Size())
	assert.Equal(t, 1, test.Size())

	require.NoError(t, os.WriteFile(testPath, []byte("0,1,2,3\n"), 0644))
	_, _, err = LoadData(cfg, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestBuildNetwork(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Model.Blocks = []int{2, 0, 1}
	cfg.Objective.Rho = 0.5
	cfg.Objective.Penalty = config.PenaltyConfig{Type: "l2", Lambda: 0.01}

	net, err := BuildNetwork(cfg, 4, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 2, net.NumBlocks())
	assert.Equal(t, 4, net.InputSize())
	assert.Equal(t, 3, net.OutputSize())
	assert.Equal(t, 0.5, net.Penalty())

	cfg.Objective.Loss = "hinge"
	_, err = BuildNetwork(cfg, 4, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestBuildSolver(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Solver.Method = "gda"
	cfg.Solver.MaxNorm = 2

	s, err := BuildSolver(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gda", s.Method.String())
	assert.Equal(t, "adam", s.Theta.Optimizer.TypeString())
	assert.Equal(t, 0.01, s.Mult.LearningRate.Value(100))
	assert.Equal(t, 2.0, s.MaxNorm)

	cfg.Solver.UseAdam = false
	s, err = BuildSolver(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sgd", s.Split.Optimizer.TypeString())
}
