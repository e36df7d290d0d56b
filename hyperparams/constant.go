// Package hyperparams provides implementations of splitnet.HyperParameter, which are used for
// learning-rate schedules.
package hyperparams

type constant float64

// Constant returns a HyperParameter that always has the given value
func Constant(value float64) constant {
	return constant(value)
}

func (c constant) TypeString() string {
	return "constant"
}

func (c constant) Value(iter int) float64 {
	return float64(c)
}
