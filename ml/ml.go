// Package ml provides the tensor plumbing and sampling primitives shared by the model
// boundary and the token generator.
package ml

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gorgonia.org/tensor"

	"go.viam.com/shapegen/utils"
)

// Tensors is a named set of tensors, used for the auxiliary memory some architectures pass
// between layers.
type Tensors map[string]*tensor.Dense

// NewLogits returns a zeroed [rows, vocab] float64 logits tensor.
func NewLogits(rows, vocab int) *tensor.Dense {
	return tensor.New(tensor.WithShape(rows, vocab), tensor.WithBacking(make([]float64, rows*vocab)))
}

// LogitsShape returns the (rows, vocab) shape of a logits tensor.
func LogitsShape(t *tensor.Dense) (int, int, error) {
	if t == nil {
		return 0, 0, errors.New("nil logits tensor")
	}
	shape := t.Shape()
	switch len(shape) {
	case 2:
		return shape[0], shape[1], nil
	case 3:
		// batched [1, T, V]
		if shape[0] != 1 {
			return 0, 0, errors.Errorf("expected a single batch of logits, got shape %v", shape)
		}
		return shape[1], shape[2], nil
	default:
		return 0, 0, errors.Errorf("expected logits of shape [T, V], got %v", shape)
	}
}

// LogitsRows copies rows [from, to) of a logits tensor into float64 slices. Rows past the end
// of the tensor are not returned, so the result may be shorter than to-from.
func LogitsRows(t *tensor.Dense, from, to int) ([][]float64, error) {
	rows, vocab, err := LogitsShape(t)
	if err != nil {
		return nil, err
	}
	data, err := convertToFloat64Slice(t.Data())
	if err != nil {
		return nil, err
	}
	if len(data) != rows*vocab {
		return nil, errors.Errorf("logits backing has %d values, expected %d", len(data), rows*vocab)
	}
	if to > rows {
		to = rows
	}
	out := make([][]float64, 0, max(to-from, 0))
	for r := from; r < to; r++ {
		out = append(out, data[r*vocab:(r+1)*vocab])
	}
	return out, nil
}

// number interface for converting between numbers.
type number interface {
	constraints.Integer | constraints.Float
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

func convertToFloat64Slice(slice interface{}) ([]float64, error) {
	switch v := slice.(type) {
	case []float64:
		return v, nil
	case float64:
		return []float64{v}, nil
	case []float32:
		return convertNumberSlice[float32, float64](v), nil
	case float32:
		return []float64{float64(v)}, nil
	case []int:
		return convertNumberSlice[int, float64](v), nil
	case []int32:
		return convertNumberSlice[int32, float64](v), nil
	case []int64:
		return convertNumberSlice[int64, float64](v), nil
	case []uint8:
		return convertNumberSlice[uint8, float64](v), nil
	default:
		return nil, utils.NewUnexpectedTypeError([]float64{}, slice)
	}
}
