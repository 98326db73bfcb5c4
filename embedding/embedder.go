package embedding

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/octree"
)

// An Embedder maps a single token into a vector space.
type Embedder interface {
	Embed(value, depth int, position []int) ([]float64, error)
	Dim() int
}

// TableEmbedder sums a value, a depth and one position table per axis. Row 0 of the value and
// depth tables stays zero, so padding tokens embed to the zero vector.
type TableEmbedder struct {
	dim      int
	value    *mat.Dense
	depth    *mat.Dense
	position []*mat.Dense
}

// NewTableEmbedder returns an embedder for numVocab non padding values, sequences up to
// resolution and the given spatial dimension.
func NewTableEmbedder(embedDim, numVocab, resolution, spatialDim int, src rand.Source) (*TableEmbedder, error) {
	if embedDim <= 0 || numVocab <= 0 {
		return nil, errors.Errorf("invalid embedding size %d for %d values", embedDim, numVocab)
	}
	if err := octree.CheckResolution(resolution, 0); err != nil {
		return nil, err
	}
	maxDepth := octree.Log2(resolution)
	e := &TableEmbedder{
		dim:   embedDim,
		value: ml.NormalMatrix(numVocab+1, embedDim, src),
		depth: ml.NormalMatrix(maxDepth+1, embedDim, src),
	}
	zeroRow(e.value, octree.Padding)
	zeroRow(e.depth, 0)
	for axis := 0; axis < spatialDim; axis++ {
		e.position = append(e.position, ml.NormalMatrix(resolution, embedDim, src))
	}
	return e, nil
}

func zeroRow(m *mat.Dense, row int) {
	_, cols := m.Dims()
	m.SetRow(row, make([]float64, cols))
}

// Dim returns the embedding dimension.
func (e *TableEmbedder) Dim() int {
	return e.dim
}

// Embed returns the embedding of one token.
func (e *TableEmbedder) Embed(value, depth int, position []int) ([]float64, error) {
	if rows, _ := e.value.Dims(); value < 0 || value >= rows {
		return nil, errors.Errorf("value %d outside vocabulary of %d", value, rows)
	}
	if rows, _ := e.depth.Dims(); depth < 0 || depth >= rows {
		return nil, errors.Errorf("depth %d outside supported range [0, %d)", depth, rows)
	}
	if len(position) != len(e.position) {
		return nil, errors.Errorf("position has %d axes, expected %d", len(position), len(e.position))
	}
	out := mat.NewVecDense(e.dim, nil)
	out.AddVec(out, e.value.RowView(value))
	out.AddVec(out, e.depth.RowView(depth))
	for axis, table := range e.position {
		rows, _ := table.Dims()
		if position[axis] < 0 || position[axis] >= rows {
			return nil, errors.Errorf("coordinate %d on axis %d outside [0, %d)", position[axis], axis, rows)
		}
		out.AddVec(out, table.RowView(position[axis]))
	}
	return out.RawVector().Data, nil
}

// EmbedSpan embeds every token of a span into the rows of a new matrix.
func EmbedSpan(e Embedder, b *Batch, span Span) (*mat.Dense, error) {
	if span.Length == 0 {
		return nil, errors.New("cannot embed an empty layer")
	}
	values, depths, positions := b.Values(span), b.Depths(span), b.Positions(span)
	out := mat.NewDense(span.Length, e.Dim(), nil)
	for i := range values {
		row, err := e.Embed(values[i], depths[i], positions[i*b.Dim:(i+1)*b.Dim])
		if err != nil {
			return nil, errors.Wrapf(err, "token %d", i)
		}
		out.SetRow(i, row)
	}
	return out, nil
}
