package ml

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NewSource returns the seeded random source used for weight initialization and sampling.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// NormalMatrix returns a rows x cols matrix drawn from N(0, 1/cols), the scale that keeps
// activations bounded when the matrix multiplies a vector of length cols.
func NormalMatrix(rows, cols int, src rand.Source) *mat.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt(float64(cols)), Src: src}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(rows, cols, data)
}

// GELU is the tanh approximation of the Gaussian error linear unit, applied in place.
func GELU(m *mat.Dense) {
	m.Apply(func(_, _ int, x float64) float64 {
		return 0.5 * x * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(x+0.044715*x*x*x)))
	}, m)
}
