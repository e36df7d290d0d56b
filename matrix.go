package splitnet

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// GatherRows returns a new matrix containing the rows of m at the given indexes, in order.
func GatherRows(m *mat.Dense, rows []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		out.SetRow(i, m.RawRowView(r))
	}

	return out
}

// addRows adds scale * src[i] to dst[rows[i]]. If rows is nil, src covers all of dst.
func addRows(dst, src *mat.Dense, rows []int, scale float64) {
	if rows == nil {
		r, _ := src.Dims()
		for i := 0; i < r; i++ {
			addScaled(dst.RawRowView(i), src.RawRowView(i), scale)
		}
		return
	}

	for i, r := range rows {
		addScaled(dst.RawRowView(r), src.RawRowView(i), scale)
	}
}

func addScaled(dst, src []float64, scale float64) {
	for j := range dst {
		dst[j] += scale * src[j]
	}
}

// sumProduct returns the sum of the elementwise product of a and b
func sumProduct(a, b *mat.Dense) float64 {
	var prod mat.Dense
	prod.MulElem(a, b)
	return mat.Sum(&prod)
}

// sumSquares returns the squared Frobenius norm of m
func sumSquares(m *mat.Dense) float64 {
	n := mat.Norm(m, 2)
	return n * n
}

// meanAbs returns the mean absolute value of the elements of m
func meanAbs(m *mat.Dense) float64 {
	r, c := m.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i) {
			sum += math.Abs(v)
		}
	}

	return sum / float64(r*c)
}

// maxAbs returns the largest absolute value of the elements of m
func maxAbs(m *mat.Dense) float64 {
	return math.Max(math.Abs(mat.Max(m)), math.Abs(mat.Min(m)))
}

// globalNorm returns the L2 norm of all the given matrices, as if they were a single vector
func globalNorm(ms []*mat.Dense) float64 {
	var sum float64
	for _, m := range ms {
		if m != nil {
			sum += sumSquares(m)
		}
	}

	return math.Sqrt(sum)
}

// clipGlobal scales the given matrices so that their global norm is at most limit. A limit <= 0
// disables clipping. clipGlobal returns the norm before clipping.
func clipGlobal(ms []*mat.Dense, limit float64) float64 {
	norm := globalNorm(ms)
	if limit <= 0 || norm <= limit {
		return norm
	}

	scale := limit / norm
	for _, m := range ms {
		if m != nil {
			m.Scale(scale, m)
		}
	}

	return norm
}

// projectRows scales each of the given rows of m to have L2 norm at most maxNorm
func projectRows(m *mat.Dense, rows []int, maxNorm float64) {
	for _, r := range rows {
		row := m.RawRowView(r)

		var sum float64
		for _, v := range row {
			sum += v * v
		}

		if n := math.Sqrt(sum); n > maxNorm {
			s := maxNorm / (n + 1e-12)
			for j := range row {
				row[j] *= s
			}
		}
	}
}

// copyAll returns a deep copy of each matrix; nil entries stay nil
func copyAll(ms []*mat.Dense) []*mat.Dense {
	cs := make([]*mat.Dense, len(ms))
	for i, m := range ms {
		if m != nil {
			cs[i] = mat.DenseCopyOf(m)
		}
	}

	return cs
}

// isFinite returns whether f is neither NaN nor infinite
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
