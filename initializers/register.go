// Package initializers provides implementations of splitnet.Initializer. All of them draw from the
// *rand.Rand they are given, so that a seeded source gives reproducible weights.
package initializers

import (
	"math"

	"github.com/pkg/errors"

	sn "github.com/sharnoff/splitnet"
)

// default values, because 'default' is a keyword
var defaultValue = map[string]float64{
	"uniform-lower": -1,
	"uniform-upper": 1,
	"normal-mean":   0,
	"normal-sd":     1,
	"varscl-factor": 1,
}

// SetDefault changes the default value of a parameter for Initializers created afterwards. It is
// not safe to call concurrently with the constructors.
func SetDefault(name string, value float64) error {
	if _, ok := defaultValue[name]; !ok {
		return errors.Errorf("Value with name %q does not exist", name)
	} else if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.Errorf("Value is invalid (%v)", value)
	}

	defaultValue[name] = value
	return nil
}

// ByName returns the Initializer with the given name, using default parameters
func ByName(name string) (sn.Initializer, error) {
	switch name {
	case "uniform":
		return Uniform(), nil
	case "normal":
		return Normal(), nil
	case "trunc-normal":
		return TruncNormal(), nil
	case "variance-scaling":
		return VarianceScaling(), nil
	case "lecun":
		return LeCun(), nil
	case "he":
		return He(), nil
	case "xavier", "glorot":
		return Xavier(), nil
	}

	return nil, errors.Errorf("Unknown initializer %q", name)
}
