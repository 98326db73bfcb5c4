package octree

import (
	"github.com/pkg/errors"
)

// CheckLayers verifies that the depths of seq form the contiguous range 1..D in layer major
// order.
func CheckLayers(seq Sequence) error {
	prev := 0
	for i, depth := range seq.Depth {
		switch {
		case depth < 1:
			return errors.Errorf("token %d has depth %d", i, depth)
		case depth < prev:
			return errors.Errorf("token %d at depth %d follows depth %d", i, depth, prev)
		case depth > prev+1:
			return errors.Errorf("token %d skips from depth %d to %d", i, prev, depth)
		}
		prev = depth
	}
	return nil
}

// CheckBranching verifies that every layer holds exactly Fanout(dim) children per mixed token
// of the layer above it and that child positions follow ChildPosition. When partialLast is set
// the deepest layer may be a prefix of its expected length, as left behind by a truncated
// generation step.
func CheckBranching(seq Sequence, partialLast bool) error {
	if err := CheckLayers(seq); err != nil {
		return err
	}
	maxDepth := seq.MaxDepth()
	for depth := 1; depth <= maxDepth; depth++ {
		parents := seq.Layer(depth - 1)
		expected := Expand(parents)
		start, end := seq.LayerSpan(depth)
		actual := end - start
		if actual != expected.Len() && !(partialLast && depth == maxDepth && actual < expected.Len()) {
			return &SequenceAlignmentError{Stage: "branching", Expected: expected.Len(), Actual: actual}
		}
		for i := 0; i < actual; i++ {
			want := expected.PositionAt(i)
			got := seq.PositionAt(start + i)
			for axis := range want {
				if want[axis] != got[axis] {
					return errors.Errorf("token %d at depth %d has position %v, expected %v", start+i, depth, got, want)
				}
			}
		}
	}
	return nil
}
