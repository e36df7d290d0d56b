package metrics

import (
	"encoding/json"
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"

	sn "github.com/sharnoff/splitnet"
)

// Entry is the serialized form of a Result, as written by JSONL and stored by SQLite
type Entry struct {
	RunID           string    `json:"run_id"`
	Iteration       int       `json:"iter"`
	Lagrangian      float64   `json:"lagrangian"`
	Loss            float64   `json:"loss"`
	MaxDefect       float64   `json:"max_defect"`
	DefectMeans     []float64 `json:"defect_means,omitempty"`
	DefectNorms     []float64 `json:"defect_norms,omitempty"`
	MultiplierNorms []float64 `json:"multiplier_norms,omitempty"`
	RolloutLoss     float64   `json:"rollout_loss"`
	TrainAccuracy   float64   `json:"train_accuracy"`
	TestLoss        *float64  `json:"test_loss,omitempty"`
	TestAccuracy    *float64  `json:"test_accuracy,omitempty"`
	ElapsedSeconds  float64   `json:"elapsed_s"`
	Final           bool      `json:"final,omitempty"`
}

// NewEntry converts a Result for the given run
func NewEntry(runID string, r sn.Result) Entry {
	e := Entry{
		RunID:           runID,
		Iteration:       r.Iteration,
		Lagrangian:      finite(r.Lagrangian),
		Loss:            finite(r.Loss),
		MaxDefect:       finite(r.MaxDefect),
		DefectMeans:     r.DefectMeans,
		DefectNorms:     r.DefectNorms,
		MultiplierNorms: r.MultiplierNorms,
		RolloutLoss:     finite(r.RolloutLoss),
		TrainAccuracy:   r.TrainAccuracy,
		ElapsedSeconds:  r.Elapsed.Seconds(),
		Final:           r.Final,
	}

	if r.HasTest {
		loss, acc := finite(r.TestLoss), r.TestAccuracy
		e.TestLoss, e.TestAccuracy = &loss, &acc
	}

	return e
}

type jsonl struct {
	mux   sync.Mutex
	enc   *json.Encoder
	runID string
}

// JSONL returns a Recorder that writes each Result to w as a single line of JSON, tagged with the
// run id.
func JSONL(w io.Writer, runID string) Recorder {
	return &jsonl{enc: json.NewEncoder(w), runID: runID}
}

func (j *jsonl) Record(r sn.Result) error {
	j.mux.Lock()
	defer j.mux.Unlock()

	return errors.Wrap(j.enc.Encode(NewEntry(j.runID, r)), "Failed to write metrics")
}

// finite replaces values that JSON can't represent with zero
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
