package splitnet

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CorrectHighest returns whether or not the largest value in each is at the same index
func CorrectHighest(outs, targets []float64) bool {
	return floats.MaxIdx(outs) == floats.MaxIdx(targets)
}

// Accuracy returns the fraction of rows for which CorrectHighest is true. outs and targets must
// have the same dimensions.
func Accuracy(outs, targets *mat.Dense) float64 {
	r, _ := outs.Dims()
	if r == 0 {
		return 0
	}

	var correct int
	for i := 0; i < r; i++ {
		if CorrectHighest(outs.RawRowView(i), targets.RawRowView(i)) {
			correct++
		}
	}

	return float64(correct) / float64(r)
}

// TrainUntil returns a function that satisfies TrainArgs.RunCondition
func TrainUntil(maxIterations int) func(int) bool {
	return func(iteration int) bool {
		return iteration < maxIterations
	}
}

// Every returns a function that satisfies TrainArgs.ShouldEval
// 'frequency' is in units of iterations
//
// this function is self-explanatory from viewing the source
func Every(frequency int) func(int) bool {
	if frequency < 1 {
		return func(int) bool { return false }
	}

	return func(iteration int) bool {
		return iteration%frequency == 0
	}
}
