package metrics

import (
	"go.uber.org/zap"

	sn "github.com/sharnoff/splitnet"
)

type logRecorder struct {
	log *zap.Logger
}

// Log returns a Recorder that writes each Result as a structured log line at info level
func Log(log *zap.Logger) Recorder {
	return logRecorder{log}
}

func (l logRecorder) Record(r sn.Result) error {
	fields := []zap.Field{
		zap.Int("iter", r.Iteration),
		zap.Float64("lagrangian", r.Lagrangian),
		zap.Float64("loss", r.Loss),
		zap.Float64("max_defect", r.MaxDefect),
		zap.Float64("rollout_loss", r.RolloutLoss),
		zap.Float64("train_accuracy", r.TrainAccuracy),
		zap.Duration("elapsed", r.Elapsed),
	}

	if r.HasTest {
		fields = append(fields, zap.Float64("test_loss", r.TestLoss), zap.Float64("test_accuracy", r.TestAccuracy))
	}
	if len(r.DefectNorms) != 0 {
		fields = append(fields,
			zap.Float64s("defect_means", r.DefectMeans),
			zap.Float64s("defect_norms", r.DefectNorms),
			zap.Float64s("multiplier_norms", r.MultiplierNorms),
		)
	}

	msg := "eval"
	if r.Final {
		msg = "final"
	}

	l.log.Info(msg, fields...)
	return nil
}
