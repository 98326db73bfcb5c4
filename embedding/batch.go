package embedding

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorgonia.org/tensor"

	"go.viam.com/shapegen/octree"
)

// Span addresses a contiguous run of tokens in a Batch arena.
type Span struct {
	Offset int
	Length int
}

// End returns the index one past the last token of the span.
func (s Span) End() int {
	return s.Offset + s.Length
}

// Batch holds the penultimate and last layers of a ragged batch of sequences in one flat
// token store. Sample i owns the tokens in Penultimate[i] and Last[i] and nothing else, so
// samples can be processed in parallel.
type Batch struct {
	Dim         int
	Value       []int
	Depth       []int
	Position    []int
	Penultimate []Span
	Last        []Span
}

// Size returns the number of samples.
func (b *Batch) Size() int {
	return len(b.Last)
}

// Values returns the values of a span.
func (b *Batch) Values(s Span) []int {
	return b.Value[s.Offset:s.End()]
}

// Depths returns the depths of a span.
func (b *Batch) Depths(s Span) []int {
	return b.Depth[s.Offset:s.End()]
}

// Positions returns the flat positions of a span.
func (b *Batch) Positions(s Span) []int {
	return b.Position[s.Offset*b.Dim : s.End()*b.Dim]
}

func (b *Batch) appendLayer(layer octree.Sequence) Span {
	span := Span{Offset: len(b.Depth), Length: layer.Len()}
	for i := 0; i < layer.Len(); i++ {
		b.Value = append(b.Value, layer.At(i).Value)
	}
	b.Depth = append(b.Depth, layer.Depth...)
	b.Position = append(b.Position, layer.Position...)
	return span
}

// NewBatch stores the last two layers of every sequence. A one layer sequence uses the
// implicit root as its penultimate layer. Tokens without a value are stored as padding.
func NewBatch(seqs []octree.Sequence) (*Batch, error) {
	if len(seqs) == 0 {
		return nil, errors.New("cannot batch zero sequences")
	}
	b := &Batch{Dim: seqs[0].Dim}
	for i, seq := range seqs {
		if seq.Dim != b.Dim {
			return nil, errors.Errorf("sample %d has spatial dimension %d, batch has %d", i, seq.Dim, b.Dim)
		}
		depth := seq.MaxDepth()
		if depth == 0 {
			return nil, errors.Errorf("sample %d has no layers to embed", i)
		}
		b.Penultimate = append(b.Penultimate, b.appendLayer(seq.Layer(depth-1)))
		b.Last = append(b.Last, b.appendLayer(seq.Layer(depth)))
	}
	return b, nil
}

// BatchFromTensors batches the (value, depth, position) triple of shapes [N, T], [N, T] and
// [N, T, Dim] that models receive.
func BatchFromTensors(value, depth, position *tensor.Dense) (*Batch, error) {
	seqs, err := octree.SequencesFromTensors(value, depth, position)
	if err != nil {
		return nil, err
	}
	return NewBatch(seqs)
}

// BatchFromPadded splits a zero padded [N][T] triple holding the penultimate and last layer of
// every sample. The deepest depth of the whole batch is the last layer; each row stores its
// penultimate tokens first and its last tokens right after them. positions holds Dim entries
// per token.
func BatchFromPadded(dim int, values, depths, positions [][]int) (*Batch, error) {
	if len(values) == 0 || len(values) != len(depths) || len(values) != len(positions) {
		return nil, errors.Errorf("mismatched batch sizes %d, %d, %d", len(values), len(depths), len(positions))
	}
	maxDepth := 0
	for _, row := range depths {
		if len(row) > 0 {
			maxDepth = max(maxDepth, lo.Max(row))
		}
	}
	if maxDepth < 2 {
		return nil, errors.Errorf("padded batches need a penultimate layer, deepest layer is %d", maxDepth)
	}

	b := &Batch{Dim: dim}
	for i := range values {
		if len(values[i]) != len(depths[i]) || len(positions[i]) != dim*len(depths[i]) {
			return nil, errors.Errorf("sample %d has mismatched row lengths", i)
		}
		lenPen := lo.Count(depths[i], maxDepth-1)
		lenLast := lo.Count(depths[i], maxDepth)
		split := func(from, n int) Span {
			span := Span{Offset: len(b.Depth), Length: n}
			b.Value = append(b.Value, values[i][from:from+n]...)
			b.Depth = append(b.Depth, depths[i][from:from+n]...)
			b.Position = append(b.Position, positions[i][from*dim:(from+n)*dim]...)
			return span
		}
		b.Penultimate = append(b.Penultimate, split(0, lenPen))
		b.Last = append(b.Last, split(lenPen, lenLast))
	}
	return b, nil
}
