package initializers

import (
	"math/rand"
)

type uniform struct {
	lower, upper float64
}

// Uniform returns an Initializer that draws from a uniform random sample within a range, which
// can be set by Range. The defaults ("uniform-lower" and "uniform-upper") can be set by SetDefault.
func Uniform() *uniform {
	return &uniform{defaultValue["uniform-lower"], defaultValue["uniform-upper"]}
}

// Range sets the Range of a Uniform Initializer, returning the same Initializer
func (u *uniform) Range(lower, upper float64) *uniform {
	if lower > upper {
		lower, upper = upper, lower
	}

	u.lower = lower
	u.upper = upper
	return u
}

func (u *uniform) Gen(rng *rand.Rand) float64 {
	return rng.Float64()*(u.upper-u.lower) + u.lower
}

func (u *uniform) Set(rng *rand.Rand, fanIn, fanOut int, ws []float64) {
	fill(u, rng, ws)
}
