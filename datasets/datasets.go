// Package datasets provides the training data for splitnet: synthetic Gaussian blobs, labelled CSV
// files (such as the MNIST CSVs), and the usual preprocessing steps.
package datasets

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

// DefaultTestFraction is the share of samples held out by Split when none is given
const DefaultTestFraction float64 = 0.25

// OneHot returns a matrix with one row per label, where row i has a 1 in column labels[i] and
// zeros everywhere else.
func OneHot(labels []int, classes int) (*mat.Dense, error) {
	if len(labels) == 0 {
		return nil, errors.New("No labels given")
	} else if classes < 1 {
		return nil, errors.Errorf("Number of classes must be >= 1 (%d)", classes)
	}

	y := mat.NewDense(len(labels), classes, nil)
	for i, l := range labels {
		if l < 0 || l >= classes {
			return nil, errors.Errorf("Label %d of sample %d is out of range [0, %d)", l, i, classes)
		}
		y.Set(i, l, 1)
	}

	return y, nil
}

// Split shuffles the Dataset and divides it into a training and a test set, with the test set
// holding testFraction of the samples (rounded up). testFraction must be strictly between 0 and 1.
func Split(ds *sn.Dataset, testFraction float64, rng *rand.Rand) (train, test *sn.Dataset, err error) {
	if err = ds.Check(); err != nil {
		return nil, nil, err
	} else if rng == nil {
		return nil, nil, errors.New("Can't split dataset, RNG is nil")
	} else if !(testFraction > 0 && testFraction < 1) {
		return nil, nil, errors.Errorf("Test fraction must be in (0, 1) (%v)", testFraction)
	}

	n := ds.Size()
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest < 1 || nTest >= n {
		return nil, nil, errors.Errorf("Can't split %d samples with test fraction %v", n, testFraction)
	}

	perm := rng.Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	train = &sn.Dataset{X: sn.GatherRows(ds.X, trainIdx), Y: sn.GatherRows(ds.Y, trainIdx)}
	test = &sn.Dataset{X: sn.GatherRows(ds.X, testIdx), Y: sn.GatherRows(ds.Y, testIdx)}
	return train, test, nil
}

// NormalizeColumns scales every column of x to unit L2 norm, in place, and returns the original
// norms. Columns that are entirely zero are left unchanged and given a norm of 1.
func NormalizeColumns(x *mat.Dense) []float64 {
	r, c := x.Dims()
	norms := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		norms[j] = floats.Norm(col, 2)
		if norms[j] == 0 {
			norms[j] = 1
		}
	}

	ScaleColumns(x, norms)
	return norms
}

// ScaleColumns divides each column j of x by norms[j], in place. It is used to apply the norms
// from NormalizeColumns on the training set to other data.
func ScaleColumns(x *mat.Dense, norms []float64) {
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		floats.Div(x.RawRowView(i), norms)
	}
}

// RandomBatches returns a Batcher that gives a random subset of 'size' distinct indices out of n
// on every iteration, in increasing order. A size that is non-positive or larger than n is
// clamped to n, giving full-batch training.
func RandomBatches(n, size int, rng *rand.Rand) sn.Batcher {
	if size <= 0 || size > n {
		size = n
	}

	if size == n {
		return sn.FullBatch(n)
	}

	return sn.BatcherFunc(func(int) []int {
		indices := rng.Perm(n)[:size]
		sort.Ints(indices)
		return indices
	})
}
