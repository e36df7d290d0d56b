package metrics

import (
	"sync"

	"gonum.org/v1/gonum/stat"

	sn "github.com/sharnoff/splitnet"
)

// History is a Recorder that keeps every Result in memory. The zero value is ready to use.
type History struct {
	mux     sync.Mutex
	results []sn.Result
}

// Record adds the Result to the History
func (h *History) Record(r sn.Result) error {
	h.mux.Lock()
	defer h.mux.Unlock()

	h.results = append(h.results, r)
	return nil
}

// Results returns a copy of all recorded Results, in order
func (h *History) Results() []sn.Result {
	h.mux.Lock()
	defer h.mux.Unlock()

	return append([]sn.Result(nil), h.results...)
}

// Last returns the most recent Result, and false if there are none
func (h *History) Last() (sn.Result, bool) {
	h.mux.Lock()
	defer h.mux.Unlock()

	if len(h.results) == 0 {
		return sn.Result{}, false
	}
	return h.results[len(h.results)-1], true
}

// Summary gives the mean and standard deviation of the accuracies over a number of Results
type Summary struct {
	Count int

	TrainAccuracyMean, TrainAccuracyStd float64
	TestAccuracyMean, TestAccuracyStd   float64
	MaxDefectMean                       float64
}

// Summary summarizes the last n Results, or all of them if n is not positive. Test accuracy is
// only summarized over the Results that have one.
func (h *History) Summary(n int) Summary {
	rs := h.Results()
	if n > 0 && n < len(rs) {
		rs = rs[len(rs)-n:]
	}

	s := Summary{Count: len(rs)}
	if len(rs) == 0 {
		return s
	}

	var train, test, defect []float64
	for _, r := range rs {
		train = append(train, r.TrainAccuracy)
		defect = append(defect, r.MaxDefect)
		if r.HasTest {
			test = append(test, r.TestAccuracy)
		}
	}

	s.TrainAccuracyMean, s.TrainAccuracyStd = meanStd(train)
	s.TestAccuracyMean, s.TestAccuracyStd = meanStd(test)
	s.MaxDefectMean = stat.Mean(defect, nil)
	return s
}

// meanStd is stat.MeanStdDev, except that fewer than two values have a deviation of zero
func meanStd(xs []float64) (mean, std float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}

	return stat.MeanStdDev(xs, nil)
}
