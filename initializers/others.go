package initializers

// LeCun returns VarianceScaling on the number of inputs, with a factor of 1
func LeCun() *varianceScaling {
	return VarianceScaling().In()
}

// He returns VarianceScaling on the number of inputs, with a factor of 2, which suits ReLU layers
func He() *varianceScaling {
	return VarianceScaling().In().Factor(2)
}

// Xavier returns VarianceScaling on the average of inputs and outputs, with a factor of 1
func Xavier() *varianceScaling {
	return VarianceScaling().Avg()
}

// Glorot is a proxy for Xavier
func Glorot() *varianceScaling {
	return Xavier()
}
