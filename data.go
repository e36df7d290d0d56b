package splitnet

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a set of samples for training or testing. Row i of X is the input of sample i, and
// row i of Y is its (usually one-hot) target.
type Dataset struct {
	X, Y *mat.Dense
}

// Size returns the number of samples in the Dataset
func (d *Dataset) Size() int {
	if d == nil || d.X == nil {
		return 0
	}

	r, _ := d.X.Dims()
	return r
}

// Check returns an error if the Dataset is empty or if X and Y do not have the same number of rows
func (d *Dataset) Check() error {
	if d == nil || d.X == nil || d.Y == nil {
		return NilArgError{"Dataset"}
	}

	xr, _ := d.X.Dims()
	yr, _ := d.Y.Dims()
	if xr != yr {
		return SizeMismatchError{xr, yr, "dataset targets"}
	}

	return nil
}

// Batch is a subset of a Dataset. Indices are the rows of the Dataset that the Batch was taken
// from, which are also the rows of the split variables and multipliers that the Batch touches.
type Batch struct {
	Indices []int
	X, Y    *mat.Dense
}

// Size returns the number of samples in the Batch
func (b Batch) Size() int {
	return len(b.Indices)
}

// Batch returns the samples at the given indices. The indices must be unique and within range.
func (d *Dataset) Batch(indices []int) (Batch, error) {
	if len(indices) == 0 {
		return Batch{}, ErrEmptyBatch
	}

	if err := checkIndices(indices, d.Size()); err != nil {
		return Batch{}, err
	}

	return Batch{
		Indices: indices,
		X:       GatherRows(d.X, indices),
		Y:       GatherRows(d.Y, indices),
	}, nil
}

// checkIndices returns an error if any of the indices is outside [0, n) or appears twice
func checkIndices(indices []int, n int) error {
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= n {
			return errors.Errorf("Batch index %d is out of range [0, %d)", i, n)
		} else if seen[i] {
			return errors.Errorf("Batch index %d is repeated", i)
		}
		seen[i] = true
	}

	return nil
}

// All returns the whole Dataset as a single Batch
func (d *Dataset) All() Batch {
	indices := make([]int, d.Size())
	for i := range indices {
		indices[i] = i
	}

	return Batch{Indices: indices, X: d.X, Y: d.Y}
}

// Batcher supplies the sample indices of each training batch.
type Batcher interface {
	// Next returns the indices for the given iteration
	Next(iter int) []int
}

// BatcherFunc allows ordinary functions to be used as Batchers
type BatcherFunc func(int) []int

func (f BatcherFunc) Next(iter int) []int {
	return f(iter)
}

// FullBatch returns a Batcher that always gives every sample of a Dataset with n samples.
func FullBatch(n int) Batcher {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	return BatcherFunc(func(int) []int { return indices })
}
