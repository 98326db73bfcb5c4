package octree

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/shapegen/utils"
)

// Tensors returns the (value, depth, position) triple with shapes [1, T], [1, T] and
// [1, T, Dim], the batched layout models consume. Tokens without a value are padding.
func (s Sequence) Tensors() (value, depth, position *tensor.Dense) {
	n := s.Len()
	values := make([]int, n)
	copy(values, s.Value)
	value = tensor.New(tensor.WithShape(1, n), tensor.WithBacking(values))
	depth = tensor.New(tensor.WithShape(1, n), tensor.WithBacking(append([]int(nil), s.Depth...)))
	position = tensor.New(tensor.WithShape(1, n, s.Dim), tensor.WithBacking(append([]int(nil), s.Position...)))
	return value, depth, position
}

func intData(t *tensor.Dense) ([]int, error) {
	data, ok := t.Data().([]int)
	if !ok {
		return nil, utils.NewUnexpectedTypeError(data, t.Data())
	}
	return data, nil
}

// SequencesFromTensors splits a batched (value, depth, position) triple of shapes [N, T],
// [N, T] and [N, T, Dim] into N sequences. Tokens at depth 0 are padding and end a row.
func SequencesFromTensors(value, depth, position *tensor.Dense) ([]Sequence, error) {
	vs, ds, ps := value.Shape(), depth.Shape(), position.Shape()
	if len(vs) != 2 || !vs.Eq(ds) || len(ps) != 3 || ps[0] != vs[0] || ps[1] != vs[1] {
		return nil, errors.Errorf("mismatched token tensors of shapes %v, %v, %v", vs, ds, ps)
	}
	values, err := intData(value)
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}
	depths, err := intData(depth)
	if err != nil {
		return nil, errors.Wrap(err, "depth")
	}
	positions, err := intData(position)
	if err != nil {
		return nil, errors.Wrap(err, "position")
	}

	rows, cols, dim := vs[0], vs[1], ps[2]
	seqs := make([]Sequence, 0, rows)
	for r := 0; r < rows; r++ {
		seq := NewSequence(dim)
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if depths[i] == 0 {
				break
			}
			seq.Value = append(seq.Value, values[i])
			seq.Depth = append(seq.Depth, depths[i])
			seq.Position = append(seq.Position, positions[i*dim:(i+1)*dim]...)
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

// GridFromTensor converts a square or cubic uint8 tensor into a grid.
func GridFromTensor(t *tensor.Dense) (*Grid, error) {
	shape := t.Shape()
	if len(shape) != 2 && len(shape) != 3 {
		return nil, errors.Errorf("expected a 2D or 3D tensor, got shape %v", shape)
	}
	for _, side := range shape {
		if side != shape[0] {
			return nil, errors.Errorf("expected equal sides, got shape %v", shape)
		}
	}
	data, ok := t.Data().([]uint8)
	if !ok {
		return nil, utils.NewUnexpectedTypeError(data, t.Data())
	}
	g, err := NewGrid(len(shape), shape[0])
	if err != nil {
		return nil, err
	}
	copy(g.Data, data)
	return g, nil
}
