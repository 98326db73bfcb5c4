package octree

import (
	"sort"

	"github.com/samber/lo"
)

// Token is one node of a flattened octree.
type Token struct {
	Value    int
	Depth    int
	Position []int
}

// Sequence is a breadth first flattening of an octree, stored as the three parallel arrays a
// sequence model consumes. Position holds Dim coordinates per token.
//
// All tokens of depth d precede all tokens of depth d+1. Within a layer, tokens are ordered by
// parent and then by child index (see ChildPosition), which is the only addressing scheme
// between a parent and its children.
//
// Value is shorter than Depth only right after a truncated generation step; Truncate restores
// the invariant.
type Sequence struct {
	Dim      int
	Value    []int
	Depth    []int
	Position []int
}

// NewSequence returns an empty sequence for the given spatial dimension.
func NewSequence(dim int) Sequence {
	return Sequence{Dim: dim}
}

// Len returns the number of tokens with a depth, including unsampled placeholders.
func (s Sequence) Len() int {
	return len(s.Depth)
}

// At returns the i-th token. The position slice aliases the sequence storage.
func (s Sequence) At(i int) Token {
	value := Padding
	if i < len(s.Value) {
		value = s.Value[i]
	}
	return Token{Value: value, Depth: s.Depth[i], Position: s.PositionAt(i)}
}

// PositionAt returns the position of the i-th token.
func (s Sequence) PositionAt(i int) []int {
	return s.Position[i*s.Dim : (i+1)*s.Dim]
}

// Append adds a token to the end of the sequence.
func (s *Sequence) Append(t Token) {
	s.Value = append(s.Value, t.Value)
	s.Depth = append(s.Depth, t.Depth)
	for axis := 0; axis < s.Dim; axis++ {
		coord := 0
		if axis < len(t.Position) {
			coord = t.Position[axis]
		}
		s.Position = append(s.Position, coord)
	}
}

// Concat returns a new sequence holding s followed by other.
func (s Sequence) Concat(other Sequence) Sequence {
	out := s.Clone()
	out.Value = append(out.Value, other.Value...)
	out.Depth = append(out.Depth, other.Depth...)
	out.Position = append(out.Position, other.Position...)
	return out
}

// Clone returns a deep copy of s.
func (s Sequence) Clone() Sequence {
	return Sequence{
		Dim:      s.Dim,
		Value:    append([]int(nil), s.Value...),
		Depth:    append([]int(nil), s.Depth...),
		Position: append([]int(nil), s.Position...),
	}
}

// Truncate cuts all three arrays to the first n tokens.
func (s *Sequence) Truncate(n int) {
	if n < len(s.Value) {
		s.Value = s.Value[:n]
	}
	if n < len(s.Depth) {
		s.Depth = s.Depth[:n]
		s.Position = s.Position[:n*s.Dim]
	}
}

// Complete reports whether every token carries a value.
func (s Sequence) Complete() bool {
	return len(s.Value) == len(s.Depth)
}

// MaxDepth returns the deepest layer present, 0 for an empty sequence.
func (s Sequence) MaxDepth() int {
	if len(s.Depth) == 0 {
		return 0
	}
	return lo.Max(s.Depth)
}

// LayerSpan returns the half open index range of the tokens at depth.
func (s Sequence) LayerSpan(depth int) (int, int) {
	start := sort.SearchInts(s.Depth, depth)
	end := sort.SearchInts(s.Depth, depth+1)
	return start, end
}

// Layer returns a copy of the tokens at depth. Depth 0 is the implicit mixed root every
// sequence hangs off.
func (s Sequence) Layer(depth int) Sequence {
	if depth == 0 {
		return RootLayer(s.Dim)
	}
	start, end := s.LayerSpan(depth)
	valueEnd := end
	if valueEnd > len(s.Value) {
		valueEnd = len(s.Value)
	}
	out := Sequence{
		Dim:      s.Dim,
		Depth:    append([]int(nil), s.Depth[start:end]...),
		Position: append([]int(nil), s.Position[start*s.Dim:end*s.Dim]...),
	}
	if start < valueEnd {
		out.Value = append([]int(nil), s.Value[start:valueEnd]...)
	}
	return out
}

// RootLayer returns the single mixed token at depth 0 from which the first layer expands.
func RootLayer(dim int) Sequence {
	root := NewSequence(dim)
	root.Append(Token{Value: Mixed, Depth: 0, Position: make([]int, dim)})
	return root
}

// CountMixed returns the number of mixed values in values.
func CountMixed(values []int) int {
	return lo.Count(values, Mixed)
}
