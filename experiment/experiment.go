// Package experiment builds and runs a training job from a config.Config: it loads the data,
// constructs the network and solver, wires the metric recorders and reports the outcome.
package experiment

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	sn "github.com/sharnoff/splitnet"
	"github.com/sharnoff/splitnet/config"
	"github.com/sharnoff/splitnet/datasets"
	"github.com/sharnoff/splitnet/metrics"
)

// Report is the outcome of a run
type Report struct {
	RunID  string
	Method string

	// Final is the Result sent after training stopped
	Final   sn.Result
	Summary metrics.Summary
	Elapsed time.Duration

	// Net is the trained Network, so that it can be saved
	Net *sn.Network
}

// Run trains a network with constrained (split) training, as configured.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Report, error) {
	return run(ctx, cfg, log, false)
}

// RunBaseline trains the same network with end-to-end backpropagation, for comparison.
func RunBaseline(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Report, error) {
	return run(ctx, cfg, log, true)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, baseline bool) (rep *Report, err error) {
	if cfg == nil {
		return nil, errors.New("Config is nil")
	} else if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid config")
	}

	if log == nil {
		log = zap.NewNop()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	train, test, err := LoadData(cfg, rng)
	if err != nil {
		return nil, err
	}

	_, inputs := train.X.Dims()
	net, err := BuildNetwork(cfg, inputs, rng)
	if err != nil {
		return nil, err
	}

	solver, err := BuildSolver(cfg)
	if err != nil {
		return nil, err
	}

	method := solver.Method.String()
	if baseline {
		method = "backprop"
	}

	runID := uuid.NewString()
	if cfg.RunName != "" {
		runID = cfg.RunName + "-" + runID
	}

	log = log.With(zap.String("run_id", runID))
	log.Info("starting run",
		zap.String("method", method),
		zap.Int("train_samples", train.Size()),
		zap.Int("test_samples", test.Size()),
		zap.Int("blocks", net.NumBlocks()),
		zap.Int64("seed", cfg.Seed),
	)

	history := new(metrics.History)
	rec, closeRec, err := recorders(cfg, runID, history, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, closeRec())
	}()

	start := time.Now()
	batches := datasets.RandomBatches(train.Size(), cfg.Train.BatchSize, rng)
	update := metrics.Update(rec, log)

	if baseline {
		err = sn.TrainBaseline(ctx, sn.BaselineArgs{
			Net:          net,
			Theta:        solver.Theta,
			GradClip:     solver.GradClip,
			Train:        train,
			Test:         test,
			Batches:      batches,
			RunCondition: sn.TrainUntil(cfg.Train.Iterations),
			ShouldEval:   sn.Every(cfg.Train.EvalEvery),
			Update:       update,
			Logger:       log,
		})
	} else {
		if err = net.SeedSplits(train.X, cfg.Solver.SplitNoise, rng); err != nil {
			return nil, err
		}

		err = sn.Train(ctx, sn.TrainArgs{
			Net:          net,
			Solver:       solver,
			Train:        train,
			Test:         test,
			Batches:      batches,
			RunCondition: sn.TrainUntil(cfg.Train.Iterations),
			ShouldEval:   sn.Every(cfg.Train.EvalEvery),
			Update:       update,
			Tolerance:    sn.Tolerance{ATol: cfg.Train.ATol, RTol: cfg.Train.RTol},
			Logger:       log,
		})
	}

	if err != nil {
		return nil, errors.Wrap(err, "Training failed")
	}

	final, _ := history.Last()
	rep = &Report{
		RunID:   runID,
		Method:  method,
		Final:   final,
		Summary: history.Summary(0),
		Elapsed: time.Since(start),
		Net:     net,
	}

	log.Info("finished run",
		zap.Int("iterations", final.Iteration),
		zap.Float64("train_accuracy", final.TrainAccuracy),
		zap.Float64("test_accuracy", final.TestAccuracy),
		zap.Duration("elapsed", rep.Elapsed),
	)

	return rep, nil
}

// recorders returns the Recorder for all of the configured sinks, and a function to close them
func recorders(cfg *config.Config, runID string, history *metrics.History, log *zap.Logger) (metrics.Recorder, func() error, error) {
	recs := []metrics.Recorder{history, metrics.Log(log)}
	var closers []func() error

	closeAll := func() error {
		var err error
		for _, c := range closers {
			err = multierr.Append(err, c())
		}
		return err
	}

	if path := cfg.Logging.MetricsFile; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "Failed to open metrics file %q", path)
		}

		closers = append(closers, f.Close)
		recs = append(recs, metrics.JSONL(f, runID))
	}

	if path := cfg.Logging.MetricsDB; path != "" {
		db, err := metrics.OpenSQLite(path)
		if err != nil {
			return nil, nil, multierr.Append(err, closeAll())
		}

		closers = append(closers, db.Close)
		recs = append(recs, metrics.SQLite(db, runID))
	}

	return metrics.Multi(recs...), closeAll, nil
}
