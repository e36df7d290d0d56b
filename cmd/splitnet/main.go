// Command splitnet trains block-decoupled networks with constrained optimization, and the same
// networks with ordinary backpropagation for comparison.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sharnoff/splitnet/config"
)

var (
	configPath string
	verbose    bool
	savePath   string
	overwrite  bool
	iterations int

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "splitnet",
	Short: "Train neural networks split into blocks by constrained optimization",
	Long: `splitnet trains a network that is split into sequential blocks. The output of every block
but the last is replaced by a free "split variable", and equality constraints tie each
split variable to the block that should produce it. The constrained problem is solved as
a saddle point of the Lagrangian, with an extragradient method.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}

		if cmd.Flags().Changed("iterations") {
			cfg.Train.Iterations = iterations
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, err = newLogger(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging of every iteration")
	rootCmd.PersistentFlags().IntVarP(&iterations, "iterations", "n", 0, "Override the number of training iterations")

	for _, c := range []*cobra.Command{trainCmd, baselineCmd} {
		c.Flags().StringVar(&savePath, "save", "", "Directory to save the trained network to")
		c.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the --save directory if it already exists")
	}

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(configCmd)
}

// newLogger builds a zap Logger from the logging config
func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if lc.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}

	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, errors.Wrap(err, "Bad log level")
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
