// Package config holds the settings of a splitnet experiment, stored as YAML.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override settings from file
const EnvPrefix = "SPLITNET_"

// Config holds all the settings of an experiment.
type Config struct {
	// Seed seeds every random source: weights, data splits, batches and noise
	Seed int64 `yaml:"seed"`

	// RunName labels the run in metrics output. A random id is appended.
	RunName string `yaml:"run_name"`

	Dataset   DatasetConfig   `yaml:"dataset"`
	Model     ModelConfig     `yaml:"model"`
	Objective ObjectiveConfig `yaml:"objective"`
	Solver    SolverConfig    `yaml:"solver"`
	Train     TrainConfig     `yaml:"train"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatasetConfig selects the training data.
type DatasetConfig struct {
	// Name is either "blobs" (synthetic) or "csv"
	Name string `yaml:"name"`

	// Path and TestPath are the CSV files for "csv". If TestPath is empty, TestFraction of Path is
	// held out instead.
	Path     string `yaml:"path,omitempty"`
	TestPath string `yaml:"test_path,omitempty"`

	// Scale multiplies every CSV value
	Scale float64 `yaml:"scale"`

	Classes int `yaml:"classes"`

	// Synthetic data only
	Samples  int     `yaml:"samples"`
	Features int     `yaml:"features"`
	Spread   float64 `yaml:"spread"`

	TestFraction float64 `yaml:"test_fraction"`

	// Normalize scales every input feature to unit norm over the training set
	Normalize bool `yaml:"normalize"`
}

// ModelConfig describes the blocks of the network.
type ModelConfig struct {
	// Hidden is the width of every hidden layer
	Hidden int `yaml:"hidden"`

	// Blocks gives the number of hidden layers in each block. Zero entries are skipped. The output
	// layer is appended to the last block.
	Blocks []int `yaml:"blocks"`

	Activation  string  `yaml:"activation"`
	Alpha       float64 `yaml:"alpha"`
	Output      string  `yaml:"output"`
	Initializer string  `yaml:"initializer"`
}

// ObjectiveConfig describes the Lagrangian.
type ObjectiveConfig struct {
	Loss       string  `yaml:"loss"`
	HuberDelta float64 `yaml:"huber_delta,omitempty"`

	// Rho is the weight of the augmented (quadratic) constraint term
	Rho float64 `yaml:"rho"`

	StopTargetGradient bool `yaml:"stop_target_gradient"`

	Penalty PenaltyConfig `yaml:"penalty"`
}

// PenaltyConfig is the regularization of the block weights
type PenaltyConfig struct {
	Type   string  `yaml:"type"`
	Alpha  float64 `yaml:"alpha,omitempty"`
	Lambda float64 `yaml:"lambda,omitempty"`
}

// SolverConfig describes the update rule.
type SolverConfig struct {
	Method string `yaml:"method"`

	LRTheta Schedule `yaml:"lr_theta"`
	LRX     Schedule `yaml:"lr_x"`
	LRY     Schedule `yaml:"lr_y"`

	UseAdam bool    `yaml:"use_adam"`
	Adam1   float64 `yaml:"adam1"`
	Adam2   float64 `yaml:"adam2"`

	GradClip float64 `yaml:"grad_clip"`

	// MaxNorm bounds the norm of each row of the split variables. Zero disables it.
	MaxNorm float64 `yaml:"max_norm"`

	// SplitNoise is the standard deviation of the noise added when seeding split variables
	SplitNoise float64 `yaml:"split_noise"`
}

// TrainConfig controls the training loop.
type TrainConfig struct {
	// BatchSize of zero or less means full-batch
	BatchSize  int `yaml:"batch_size"`
	Iterations int `yaml:"iterations"`
	EvalEvery  int `yaml:"eval_every"`

	RTol float64 `yaml:"rtol"`
	ATol float64 `yaml:"atol"`
}

// LoggingConfig configures logs and metric output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`

	// Format is "console" or "json"
	Format string `yaml:"format"`

	// MetricsFile, if set, receives one JSON line per evaluation
	MetricsFile string `yaml:"metrics_file,omitempty"`

	// MetricsDB, if set, is a SQLite database that every evaluation is inserted into
	MetricsDB string `yaml:"metrics_db,omitempty"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	const iterations = 100000

	return &Config{
		Seed: 1337,
		Dataset: DatasetConfig{
			Name:         "blobs",
			Scale:        1,
			Classes:      10,
			Samples:      2000,
			Features:     64,
			Spread:       4,
			TestFraction: 0.25,
			Normalize:    true,
		},
		Model: ModelConfig{
			Hidden:      256,
			Blocks:      []int{1, 2, 3, 4},
			Activation:  "leaky-relu",
			Alpha:       0.01,
			Output:      "log-softmax",
			Initializer: "he",
		},
		Objective: ObjectiveConfig{
			Loss:    "nll",
			Penalty: PenaltyConfig{Type: "none"},
		},
		Solver: SolverConfig{
			Method:   "extragradient",
			LRTheta:  InverseTime(0.001, iterations, 1, true),
			LRX:      InverseTime(0.05, iterations, 1, true),
			LRY:      InverseTime(0.08, iterations, 1, true),
			UseAdam:  false,
			Adam1:    0.9,
			Adam2:    0.99,
			GradClip: 4,
		},
		Train: TrainConfig{
			BatchSize:  128,
			Iterations: iterations,
			EvalEvery:  10,
			RTol:       1e-7,
			ATol:       1e-7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, on top of the defaults. An empty path gives the
// defaults. Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read config %q", path)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse config %q", path)
		}
	}

	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file, creating its directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "Failed to create config directory")
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	return errors.Wrapf(os.WriteFile(path, data, 0644), "Failed to write config %q", path)
}

// Marshal returns the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	return data, errors.Wrap(err, "Failed to marshal config")
}

// applyEnvOverrides sets fields from SPLITNET_* environment variables. lookup is os.LookupEnv
// outside of tests.
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"ITERATIONS": &c.Train.Iterations,
		"BATCH_SIZE": &c.Train.BatchSize,
		"EVAL_EVERY": &c.Train.EvalEvery,
		"HIDDEN":     &c.Model.Hidden,
	}
	floats := map[string]*float64{
		"RHO":       &c.Objective.Rho,
		"GRAD_CLIP": &c.Solver.GradClip,
		"MAX_NORM":  &c.Solver.MaxNorm,
	}
	strs := map[string]*string{
		"DATASET":      &c.Dataset.Name,
		"DATASET_PATH": &c.Dataset.Path,
		"METHOD":       &c.Solver.Method,
		"LOG_LEVEL":    &c.Logging.Level,
		"LOG_FORMAT":   &c.Logging.Format,
		"METRICS_FILE": &c.Logging.MetricsFile,
		"METRICS_DB":   &c.Logging.MetricsDB,
		"RUN_NAME":     &c.RunName,
	}

	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "Bad value for %sSEED", EnvPrefix)
		}
		c.Seed = seed
	}

	for name, p := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Wrapf(err, "Bad value for %s%s", EnvPrefix, name)
			}
			*p = n
		}
	}

	for name, p := range floats {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return errors.Wrapf(err, "Bad value for %s%s", EnvPrefix, name)
			}
			*p = f
		}
	}

	for name, p := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*p = v
		}
	}

	if v, ok := lookup(EnvPrefix + "USE_ADAM"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "Bad value for %sUSE_ADAM", EnvPrefix)
		}
		c.Solver.UseAdam = b
	}

	return nil
}
