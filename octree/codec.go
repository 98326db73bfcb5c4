package octree

import (
	"fmt"

	"github.com/pkg/errors"
)

// Encode decomposes g into octree layers 1..log2(resolution). A cell that holds one class is
// a leaf; any other cell is Mixed and, above the last encoded layer, is refined into
// children in the next layer. Mixed cells on the last layer stay Mixed, which is how a coarse
// precondition leaves work for the sampler. A resolution of 1 encodes nothing.
func Encode(g *Grid, resolution int) (Sequence, error) {
	if g == nil {
		return Sequence{}, errors.New("cannot encode a nil grid")
	}
	if err := CheckResolution(resolution, g.Side); err != nil {
		return Sequence{}, err
	}

	seq := NewSequence(g.Dim)
	maxDepth := Log2(resolution)
	frontier := Expand(seq)
	for depth := 1; depth <= maxDepth && frontier.Len() > 0; depth++ {
		cell := g.Side >> depth
		next := NewSequence(g.Dim)
		for i := 0; i < frontier.Len(); i++ {
			pos := frontier.PositionAt(i)
			origin := make([]int, g.Dim)
			for axis := range origin {
				origin[axis] = pos[axis] * cell
			}
			value := Mixed
			if class, uniform := g.uniformCell(origin, cell); uniform {
				value = ClassToValue(class)
			}
			seq.Append(Token{Value: value, Depth: depth, Position: pos})
			next.Append(Token{Value: value, Depth: depth, Position: pos})
		}
		frontier = Expand(next)
	}
	return seq, nil
}

// Decode paints seq onto a grid of side resolution. Each token at depth d covers a cell of
// side resolution/2^d; tokens are painted in sequence order so children overwrite the default
// class their mixed parent painted. Only the valued prefix of a truncated sequence is used.
func Decode(seq Sequence, resolution int) (*Grid, error) {
	if err := CheckResolution(resolution, 0); err != nil {
		return nil, err
	}
	maxDepth := Log2(resolution)
	if seq.MaxDepth() > maxDepth {
		return nil, &InvalidResolutionError{
			Resolution: resolution,
			Limit:      1 << seq.MaxDepth(),
			Reason:     "sequence is deeper than the target resolution",
		}
	}
	g, err := NewGrid(seq.Dim, resolution)
	if err != nil {
		return nil, err
	}

	if len(seq.Position) != seq.Dim*seq.Len() {
		return nil, &SequenceAlignmentError{Stage: "decoding", Expected: seq.Dim * seq.Len(), Actual: len(seq.Position)}
	}
	n := len(seq.Value)
	if n > seq.Len() {
		n = seq.Len()
	}
	origin := make([]int, seq.Dim)
	for i := 0; i < n; i++ {
		depth := seq.Depth[i]
		if depth < 0 || depth > maxDepth {
			return nil, errors.Errorf("token %d has depth %d outside [0, %d]", i, depth, maxDepth)
		}
		if depth == 0 || seq.Value[i] == Padding {
			continue
		}
		cell := resolution >> depth
		pos := seq.PositionAt(i)
		for axis := range origin {
			if pos[axis] < 0 || pos[axis] >= 1<<depth {
				return nil, &InvalidResolutionError{
					Resolution: resolution,
					Limit:      1 << depth,
					Reason:     fmt.Sprintf("token %d at depth %d has position %v outside the layer", i, depth, pos),
				}
			}
			origin[axis] = pos[axis] * cell
		}
		g.fillCell(origin, cell, ValueToClass(seq.Value[i]))
	}
	return g, nil
}
