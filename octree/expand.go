package octree

// ChildOffset returns the unit offset of child c. Children are enumerated lexicographically
// over the offset tuple with the first axis varying slowest, so in 3D child 1 is (0,0,1) and
// child 4 is (1,0,0).
func ChildOffset(dim, c int) []int {
	offset := make([]int, dim)
	for axis := 0; axis < dim; axis++ {
		offset[axis] = (c >> (dim - 1 - axis)) & 1
	}
	return offset
}

// ChildPosition returns the position of child c of a node at parent.
func ChildPosition(parent []int, c int) []int {
	dim := len(parent)
	pos := make([]int, dim)
	for axis := 0; axis < dim; axis++ {
		pos[axis] = 2*parent[axis] + (c>>(dim-1-axis))&1
	}
	return pos
}

// ParentLayer returns the deepest layer of seq, or the implicit root when seq is empty. This
// is the layer the next call to Expand hangs its children off.
func ParentLayer(seq Sequence) Sequence {
	return seq.Layer(seq.MaxDepth())
}

// Expand returns the next layer of seq: for every mixed token of the deepest layer, in order,
// Fanout(dim) pending children carrying the Mixed placeholder value. An empty result means
// nothing is left to refine.
func Expand(seq Sequence) Sequence {
	parents := ParentLayer(seq)
	out := NewSequence(seq.Dim)
	fanout := Fanout(seq.Dim)
	for i := 0; i < len(parents.Value); i++ {
		if parents.Value[i] != Mixed {
			continue
		}
		pos := parents.PositionAt(i)
		depth := parents.Depth[i] + 1
		for c := 0; c < fanout; c++ {
			out.Append(Token{Value: Mixed, Depth: depth, Position: ChildPosition(pos, c)})
		}
	}
	return out
}
