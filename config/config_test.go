package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []int{1, 2, 3, 4}, cfg.BlockSizes())
	assert.Equal(t, "extragradient", cfg.Solver.Method)

	lr, err := cfg.Solver.LRX.Build()
	require.NoError(t, err)
	assert.Equal(t, 0.05, lr.Value(0))
	assert.InDelta(t, 0.025, lr.Value(cfg.Train.Iterations), 1e-12)
}

const yamlConfig = `
seed: 7
dataset:
  name: csv
  path: /data/train.csv
  classes: 3
model:
  hidden: 32
  blocks: [2, 0, 1]
objective:
  rho: 0.5
  penalty:
    type: l2
    lambda: 0.001
solver:
  method: gda
  lr_x:
    type: step
    value: 0.1
    steps:
      - {iter: 10, value: 0.01}
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "csv", cfg.Dataset.Name)
	assert.Equal(t, []int{2, 1}, cfg.BlockSizes())
	assert.Equal(t, 0.5, cfg.Objective.Rho)
	assert.Equal(t, "gda", cfg.Solver.Method)

	// unset fields keep their defaults
	assert.Equal(t, 128, cfg.Train.BatchSize)
	assert.Equal(t, "leaky-relu", cfg.Model.Activation)

	lr, err := cfg.Solver.LRX.Build()
	require.NoError(t, err)
	assert.Equal(t, 0.1, lr.Value(9))
	assert.Equal(t, 0.01, lr.Value(10))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("seed: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"ITERATIONS", "25")
	t.Setenv(EnvPrefix+"METHOD", "gda")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Train.Iterations)
	assert.Equal(t, "gda", cfg.Solver.Method)
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SPLITNET_SEED":       " 99 ",
		"SPLITNET_BATCH_SIZE": "0",
		"SPLITNET_HIDDEN":     "16",
		"SPLITNET_RHO":        "0.25",
		"SPLITNET_MAX_NORM":   "3",
		"SPLITNET_DATASET":    "csv",
		"SPLITNET_LOG_FORMAT": "json",
		"SPLITNET_METRICS_DB": "/tmp/results.db",
		"SPLITNET_RUN_NAME":   "sweep",
		"SPLITNET_USE_ADAM":   "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides(lookup))

	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, 0, cfg.Train.BatchSize)
	assert.Equal(t, 16, cfg.Model.Hidden)
	assert.Equal(t, 0.25, cfg.Objective.Rho)
	assert.Equal(t, 3.0, cfg.Solver.MaxNorm)
	assert.Equal(t, "csv", cfg.Dataset.Name)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/results.db", cfg.Logging.MetricsDB)
	assert.Equal(t, "sweep", cfg.RunName)
	assert.True(t, cfg.Solver.UseAdam)

	for _, k := range []string{"SEED", "ITERATIONS", "GRAD_CLIP", "USE_ADAM"} {
		bad := func(key string) (string, bool) {
			if key == EnvPrefix+k {
				return "lots", true
			}
			return "", false
		}
		assert.Error(t, DefaultConfig().applyEnvOverrides(bad), k)
	}
}

func TestSaveLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RunName = "saved"
	cfg.Solver.LRTheta = Schedule{Type: "step", Value: 1, Steps: []StepPoint{{Iter: 5, Value: 0.5}}}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dataset.Name = "mnist"
	cfg.Model.Hidden = 0
	cfg.Model.Blocks = []int{0}
	cfg.Objective.Loss = "hinge"
	cfg.Solver.Method = "newton"
	cfg.Solver.LRY = Schedule{Type: "cosine"}
	cfg.Logging.Level = "trace"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 7)

	cfg = DefaultConfig()
	cfg.Dataset.Name = "csv"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Solver.UseAdam, cfg.Solver.Adam2 = true, 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Solver.LRTheta = Schedule{Type: "step", Value: 1, Steps: []StepPoint{{Iter: -1, Value: 1}}}
	assert.Error(t, cfg.Validate())
}
