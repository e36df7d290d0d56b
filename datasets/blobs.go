package datasets

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
)

// bounds of the box that blob centers are drawn from
const centerBox float64 = 10

// Blobs returns a Dataset of isotropic Gaussian clusters, one per class, with centers drawn
// uniformly from [-10, 10] in each feature. Samples are assigned to classes in turn, so that the
// classes are balanced. Targets are one-hot.
func Blobs(samples, features, classes int, spread float64, rng *rand.Rand) (*sn.Dataset, error) {
	if samples < 1 || features < 1 || classes < 1 {
		return nil, errors.Errorf("Blobs need at least one sample, feature and class (%d, %d, %d)", samples, features, classes)
	} else if spread < 0 {
		return nil, errors.Errorf("Blob spread must be >= 0 (%v)", spread)
	} else if rng == nil {
		return nil, errors.New("Can't make blobs, RNG is nil")
	}

	centers := mat.NewDense(classes, features, nil)
	centers.Apply(func(_, _ int, _ float64) float64 {
		return (2*rng.Float64() - 1) * centerBox
	}, centers)

	x := mat.NewDense(samples, features, nil)
	labels := make([]int, samples)
	for i := 0; i < samples; i++ {
		labels[i] = i % classes
		c := centers.RawRowView(labels[i])
		row := x.RawRowView(i)
		for j := range row {
			row[j] = c[j] + spread*rng.NormFloat64()
		}
	}

	y, err := OneHot(labels, classes)
	if err != nil {
		return nil, err
	}

	return &sn.Dataset{X: x, Y: y}, nil
}
