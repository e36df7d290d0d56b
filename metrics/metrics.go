// Package metrics records the Results produced while training. Recorders can log them, write them
// to a file or database, or keep them in memory for summaries.
package metrics

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	sn "github.com/sharnoff/splitnet"
)

// Recorder consumes the Results sent during training
type Recorder interface {
	Record(r sn.Result) error
}

// RecorderFunc allows ordinary functions to be used as Recorders
type RecorderFunc func(sn.Result) error

func (f RecorderFunc) Record(r sn.Result) error {
	return f(r)
}

// Update returns a function that satisfies TrainArgs.Update, sending every Result to rec. Errors
// from the Recorder are logged and otherwise ignored, so that a failing sink does not stop
// training.
func Update(rec Recorder, log *zap.Logger) func(sn.Result) {
	if log == nil {
		log = zap.NewNop()
	}

	return func(r sn.Result) {
		if err := rec.Record(r); err != nil {
			log.Warn("failed to record result", zap.Int("iter", r.Iteration), zap.Error(err))
		}
	}
}

type multi []Recorder

// Multi returns a Recorder that sends each Result to all of the given Recorders, in order. All of
// them are called even if some fail; the errors are combined.
func Multi(recs ...Recorder) Recorder {
	return multi(recs)
}

func (m multi) Record(r sn.Result) error {
	var err error
	for _, rec := range m {
		err = multierr.Append(err, rec.Record(r))
	}

	return err
}
