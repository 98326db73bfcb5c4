// Package octree implements the hierarchical token representation of pixel and voxel grids: a
// quadtree (2D) or octree (3D) flattened breadth first into a sequence of (value, depth,
// position) tokens, together with the codec between grids and sequences and the rule that
// grows a sequence by one layer.
package octree

// Token values with structural meaning. Every value above Mixed is a filled leaf whose grid
// class is value-2; Empty is the leaf of grid class 0.
const (
	Padding = 0
	Empty   = 1
	Mixed   = 2
)

// DefaultClass is the grid class painted for mixed tokens that were never refined.
const DefaultClass = 0

// MaxClass is the largest grid class that fits the token vocabulary.
const MaxClass = 253

// Each token in a sequence is either an internal node whose region still holds more than one
// class, an empty leaf, a filled leaf carrying a class, or padding that only exists to align
// ragged batches.
const (
	InternalNode = NodeType(iota)
	LeafNodeEmpty
	LeafNodeFilled
	PaddingNode
)

// NodeType represents the possible types of nodes in an octree sequence.
type NodeType uint8

func (n NodeType) String() string {
	switch n {
	case InternalNode:
		return "InternalNode"
	case LeafNodeEmpty:
		return "LeafNodeEmpty"
	case LeafNodeFilled:
		return "LeafNodeFilled"
	case PaddingNode:
		return "PaddingNode"
	}
	return "Unknown"
}

// NodeTypeOf classifies a token value.
func NodeTypeOf(value int) NodeType {
	switch {
	case value == Padding:
		return PaddingNode
	case value == Empty:
		return LeafNodeEmpty
	case value == Mixed:
		return InternalNode
	default:
		return LeafNodeFilled
	}
}

// ClassToValue maps a grid class onto its leaf token value.
func ClassToValue(class uint8) int {
	if class == 0 {
		return Empty
	}
	return int(class) + 2
}

// ValueToClass maps a token value onto the grid class it paints. Mixed and padding values
// paint DefaultClass.
func ValueToClass(value int) uint8 {
	switch {
	case value <= Mixed:
		return DefaultClass
	case value-2 > MaxClass:
		return MaxClass
	default:
		return uint8(value - 2)
	}
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for positive n and 0 otherwise.
func Log2(n int) int {
	depth := 0
	for n > 1 {
		n >>= 1
		depth++
	}
	return depth
}

// Fanout is the number of children of a mixed node in the given dimension.
func Fanout(dim int) int {
	return 1 << dim
}
