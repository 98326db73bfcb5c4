package embedding

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/shapegen/ml"
)

// A Reducer maps each contiguous group of Ratio rows to one row.
type Reducer interface {
	Ratio() int
	Reduce(x *mat.Dense) (*mat.Dense, error)
}

// LinearReducer is a strided convolution with kernel size and stride Ratio: every group of
// rows is concatenated and multiplied by one weight matrix. A short trailing group is zero
// padded.
type LinearReducer struct {
	ratio  int
	in     int
	weight *mat.Dense
	bias   *mat.VecDense
}

// NewLinearReducer returns a reducer from rows of width in to rows of width out.
func NewLinearReducer(ratio, in, out int, src rand.Source) (*LinearReducer, error) {
	if ratio <= 0 || in <= 0 || out <= 0 {
		return nil, errors.Errorf("invalid reducer shape ratio=%d in=%d out=%d", ratio, in, out)
	}
	return &LinearReducer{
		ratio:  ratio,
		in:     in,
		weight: ml.NormalMatrix(out, ratio*in, src),
		bias:   mat.NewVecDense(out, nil),
	}, nil
}

// Ratio returns the number of input rows per output row.
func (r *LinearReducer) Ratio() int {
	return r.ratio
}

// Reduce returns ceil(rows/Ratio) output rows.
func (r *LinearReducer) Reduce(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != r.in {
		return nil, errors.Errorf("reducer expects rows of width %d, got %d", r.in, cols)
	}
	groups := (rows + r.ratio - 1) / r.ratio
	out, _ := r.weight.Dims()
	result := mat.NewDense(groups, out, nil)
	window := mat.NewVecDense(r.ratio*r.in, nil)
	row := mat.NewVecDense(out, nil)
	for g := 0; g < groups; g++ {
		window.Zero()
		for k := 0; k < r.ratio && g*r.ratio+k < rows; k++ {
			for c := 0; c < cols; c++ {
				window.SetVec(k*r.in+c, x.At(g*r.ratio+k, c))
			}
		}
		row.MulVec(r.weight, window)
		row.AddVec(row, r.bias)
		result.SetRow(g, row.RawVector().Data)
	}
	return result, nil
}
