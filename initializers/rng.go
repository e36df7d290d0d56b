package initializers

import "math/rand"

// RNG generates single random values from a distribution. Every RNG in this package is also an
// Initializer, filling the weights with independent draws.
type RNG interface {
	Gen(rng *rand.Rand) float64
}

type normal struct {
	mean, sd float64
}

// Normal returns an RNG that gives values within a normal distribution. The center and standard
// deviation can be set by Mean and SD, respectively.
//
// Default centers and standard deviations can be set by SetDefault for "normal-mean" and
// "normal-sd".
func Normal() *normal {
	return &normal{defaultValue["normal-mean"], defaultValue["normal-sd"]}
}

// SD sets the value of the standard deviation of the normal distribution.
func (n *normal) SD(sd float64) *normal {
	n.sd = sd
	return n
}

// Mean sets the center of the normal distribution.
func (n *normal) Mean(mean float64) *normal {
	n.mean = mean
	return n
}

func (n *normal) Gen(rng *rand.Rand) float64 {
	return rng.NormFloat64()*n.sd + n.mean
}

func (n *normal) Set(rng *rand.Rand, fanIn, fanOut int, ws []float64) {
	fill(n, rng, ws)
}

type truncNormal struct {
	*normal
	trunc float64
}

const defaultTrunc float64 = 2.0

// TruncNormal returns an RNG that gives values within a truncated normal distribution. The
// distribution is truncated at 2 standard deviations. The center and standard deviation can be set
// in the same way as Normal, because Normal is embedded in the TruncNormal type.
//
// Additionally, the number of standard deviations to truncate at can be set by Trunc.
func TruncNormal() *truncNormal {
	return &truncNormal{Normal(), defaultTrunc}
}

// Trunc sets the number of standard deviations to keep on either side. Trunc will panic if given
// sds <= 0.
func (t *truncNormal) Trunc(sds float64) *truncNormal {
	if sds <= 0 {
		panic("given number of standard deviations to truncate after is <= 0")
	}

	t.trunc = sds
	return t
}

// SD sets the standard deviation of the distribution before truncation
func (t *truncNormal) SD(sd float64) *truncNormal {
	t.normal.SD(sd)
	return t
}

func (t *truncNormal) Gen(rng *rand.Rand) float64 {
	for {
		v := rng.NormFloat64()
		if v < -t.trunc || v > t.trunc {
			continue
		}

		return v*t.sd + t.mean
	}
}

func (t *truncNormal) Set(rng *rand.Rand, fanIn, fanOut int, ws []float64) {
	fill(t, rng, ws)
}

func fill(g RNG, rng *rand.Rand, ws []float64) {
	for i := range ws {
		ws[i] = g.Gen(rng)
	}
}
