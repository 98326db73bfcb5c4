package embedding

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/shapegen/ml"
	"go.viam.com/shapegen/octree"
)

// A Compressor turns the last two layers of every sample into one joint embedding sequence.
type Compressor interface {
	Forward(ctx context.Context, b *Batch) (*Output, error)
	// Ratio is the number of penultimate tokens folded into one joint row.
	Ratio() int
	// Dim is the width of a joint row.
	Dim() int
}

// Output is the joint embedding of every sample together with its padding mask. Mask[i][j]
// is true when joint row j of sample i is backed by a non padding penultimate token; rows a
// sample does not have are false.
type Output struct {
	Embeddings []*mat.Dense
	Mask       [][]bool
}

// Substitution embeds the last layer with a small table, folds each group of Ratio last layer
// tokens into one row, writes those rows over the embeddings of the mixed penultimate tokens
// they refine and folds the result once more.
type Substitution struct {
	ratio             int
	dim               int
	last              Embedder
	penultimate       Embedder
	reduceLast        Reducer
	reducePenultimate Reducer
}

// NewSubstitution builds a substitution compressor with seeded weights. EmbedDim must be a
// multiple of 4; the last layer is embedded at EmbedDim/4 and the penultimate at EmbedDim/2.
func NewSubstitution(p Params) (*Substitution, error) {
	if p.EmbedDim < 4 || p.EmbedDim%4 != 0 {
		return nil, errors.Errorf("embed_dim must be a positive multiple of 4, got %d", p.EmbedDim)
	}
	ratio := p.ConvSize
	if ratio == 0 {
		ratio = octree.Fanout(p.SpatialDim)
	}
	src := ml.NewSource(p.Seed)
	last, err := NewTableEmbedder(p.EmbedDim/4, p.NumVocab, p.Resolution, p.SpatialDim, src)
	if err != nil {
		return nil, err
	}
	penultimate, err := NewTableEmbedder(p.EmbedDim/2, p.NumVocab, p.Resolution, p.SpatialDim, src)
	if err != nil {
		return nil, err
	}
	reduceLast, err := NewLinearReducer(ratio, p.EmbedDim/4, p.EmbedDim/2, src)
	if err != nil {
		return nil, err
	}
	reducePenultimate, err := NewLinearReducer(ratio, p.EmbedDim/2, p.EmbedDim, src)
	if err != nil {
		return nil, err
	}
	return &Substitution{
		ratio:             ratio,
		dim:               p.EmbedDim,
		last:              last,
		penultimate:       penultimate,
		reduceLast:        reduceLast,
		reducePenultimate: reducePenultimate,
	}, nil
}

// Ratio returns the reduction ratio.
func (s *Substitution) Ratio() int {
	return s.ratio
}

// Dim returns the joint embedding width.
func (s *Substitution) Dim() int {
	return s.dim
}

// Forward compresses every sample of b. Samples are processed in parallel.
func (s *Substitution) Forward(ctx context.Context, b *Batch) (*Output, error) {
	out := &Output{
		Embeddings: make([]*mat.Dense, b.Size()),
		Mask:       make([][]bool, b.Size()),
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < b.Size(); i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			joint, err := s.forwardSample(b, i)
			if err != nil {
				return err
			}
			out.Embeddings[i] = joint
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	width := 0
	for _, joint := range out.Embeddings {
		rows, _ := joint.Dims()
		width = max(width, rows)
	}
	for i, joint := range out.Embeddings {
		rows, _ := joint.Dims()
		values := b.Values(b.Penultimate[i])
		out.Mask[i] = make([]bool, width)
		for j := 0; j < rows; j++ {
			out.Mask[i][j] = values[j*s.ratio] != octree.Padding
		}
	}
	return out, nil
}

func (s *Substitution) forwardSample(b *Batch, sample int) (*mat.Dense, error) {
	xPen, err := s.substitute(b, sample)
	if err != nil {
		return nil, err
	}
	return s.reducePenultimate.Reduce(xPen)
}

// substitute returns the penultimate embeddings of sample with every mixed row replaced by
// the reduced embedding of its children.
func (s *Substitution) substitute(b *Batch, sample int) (*mat.Dense, error) {
	penSpan, lastSpan := b.Penultimate[sample], b.Last[sample]

	xLast, err := EmbedSpan(s.last, b, lastSpan)
	if err != nil {
		return nil, errors.Wrapf(err, "sample %d last layer", sample)
	}
	yLast, err := s.reduceLast.Reduce(xLast)
	if err != nil {
		return nil, err
	}
	xPen, err := EmbedSpan(s.penultimate, b, penSpan)
	if err != nil {
		return nil, errors.Wrapf(err, "sample %d penultimate layer", sample)
	}

	lastValues := b.Values(lastSpan)
	var groups []int
	for g := 0; g*s.ratio < len(lastValues); g++ {
		if lastValues[g*s.ratio] != octree.Padding {
			groups = append(groups, g)
		}
	}
	var mixed []int
	for j, v := range b.Values(penSpan) {
		if v == octree.Mixed {
			mixed = append(mixed, j)
		}
	}
	if len(mixed) != len(groups) {
		return nil, &octree.SequenceAlignmentError{
			Stage:    "substitution",
			Sample:   sample,
			Expected: len(mixed),
			Actual:   len(groups),
		}
	}
	for m, j := range mixed {
		xPen.SetRow(j, yLast.RawRowView(groups[m]))
	}
	return xPen, nil
}
