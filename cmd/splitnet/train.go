package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sharnoff/splitnet/config"
	"github.com/sharnoff/splitnet/experiment"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train with split variables and the extragradient solver",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(cmd, experiment.Run)
	},
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Train the same network end-to-end with backpropagation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(cmd, experiment.RunBaseline)
	},
}

type runFunc func(context.Context, *config.Config, *zap.Logger) (*experiment.Report, error)

func runWith(cmd *cobra.Command, run runFunc) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := run(ctx, cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s): %d iterations in %v\n", rep.RunID, rep.Method, rep.Final.Iteration, rep.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "train accuracy %.4f, test accuracy %.4f\n", rep.Final.TrainAccuracy, rep.Final.TestAccuracy)
	if n := len(rep.Final.DefectNorms); n != 0 {
		fmt.Fprintf(out, "constraint defect norms %v\n", rep.Final.DefectNorms)
	}

	if savePath != "" {
		if err := rep.Net.Save(savePath, overwrite); err != nil {
			return errors.Wrap(err, "Failed to save network")
		}
		logger.Info("saved network", zap.String("path", savePath))
	}

	return nil
}
