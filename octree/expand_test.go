package octree

import (
	"testing"

	"go.viam.com/test"
	"pgregory.net/rapid"
)

func TestChildOrder(t *testing.T) {
	test.That(t, ChildOffset(3, 0), test.ShouldResemble, []int{0, 0, 0})
	test.That(t, ChildOffset(3, 1), test.ShouldResemble, []int{0, 0, 1})
	test.That(t, ChildOffset(3, 4), test.ShouldResemble, []int{1, 0, 0})
	test.That(t, ChildOffset(2, 2), test.ShouldResemble, []int{1, 0})

	for c := 0; c < Fanout(3); c++ {
		pos := ChildPosition([]int{1, 2, 3}, c)
		offset := ChildOffset(3, c)
		test.That(t, pos, test.ShouldResemble, []int{2 + offset[0], 4 + offset[1], 6 + offset[2]})
	}
}

func TestExpand(t *testing.T) {
	t.Run("empty sequence expands the root", func(t *testing.T) {
		next := Expand(NewSequence(2))
		test.That(t, next.Len(), test.ShouldEqual, 4)
		test.That(t, next.Depth, test.ShouldResemble, []int{1, 1, 1, 1})
		test.That(t, next.Value, test.ShouldResemble, []int{Mixed, Mixed, Mixed, Mixed})
		test.That(t, next.Position, test.ShouldResemble, []int{0, 0, 0, 1, 1, 0, 1, 1})
	})

	t.Run("only mixed tokens of the deepest layer have children", func(t *testing.T) {
		seq := NewSequence(2)
		seq.Append(Token{Value: Mixed, Depth: 1, Position: []int{0, 0}})
		seq.Append(Token{Value: Empty, Depth: 1, Position: []int{0, 1}})
		seq.Append(Token{Value: 3, Depth: 1, Position: []int{1, 0}})
		seq.Append(Token{Value: Mixed, Depth: 1, Position: []int{1, 1}})

		next := Expand(seq)
		test.That(t, next.Len(), test.ShouldEqual, 8)
		test.That(t, next.MaxDepth(), test.ShouldEqual, 2)
		test.That(t, next.PositionAt(0), test.ShouldResemble, []int{0, 0})
		test.That(t, next.PositionAt(3), test.ShouldResemble, []int{1, 1})
		test.That(t, next.PositionAt(4), test.ShouldResemble, []int{2, 2})
		test.That(t, next.PositionAt(7), test.ShouldResemble, []int{3, 3})

		full := seq.Concat(next)
		test.That(t, CheckBranching(full, false), test.ShouldBeNil)
		test.That(t, seq.Len(), test.ShouldEqual, 4)
	})

	t.Run("no mixed tokens signals completion", func(t *testing.T) {
		seq := NewSequence(3)
		for c := 0; c < Fanout(3); c++ {
			seq.Append(Token{Value: Empty, Depth: 1, Position: ChildPosition([]int{0, 0, 0}, c)})
		}
		test.That(t, Expand(seq).Len(), test.ShouldEqual, 0)
	})

	t.Run("expand does not mutate its input", func(t *testing.T) {
		seq := Expand(NewSequence(2))
		before := seq.Clone()
		Expand(seq)
		test.That(t, seq, test.ShouldResemble, before)
	})
}

func TestBranchingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dim := rapid.IntRange(2, 3).Draw(t, "dim")
		layers := rapid.IntRange(1, 4).Draw(t, "layers")
		seq := NewSequence(dim)
		for layer := 0; layer < layers; layer++ {
			next := Expand(seq)
			if next.Len() == 0 {
				break
			}
			for i := range next.Value {
				next.Value[i] = rapid.IntRange(Empty, 4).Draw(t, "value")
			}
			seq = seq.Concat(next)
		}
		if err := CheckLayers(seq); err != nil {
			t.Fatalf("layers: %v", err)
		}
		for depth := 1; depth < seq.MaxDepth(); depth++ {
			start, end := seq.LayerSpan(depth)
			nextStart, nextEnd := seq.LayerSpan(depth + 1)
			mixed := CountMixed(seq.Value[start:end])
			if nextEnd-nextStart != Fanout(dim)*mixed {
				t.Fatalf("depth %d: %d children for %d mixed tokens", depth+1, nextEnd-nextStart, mixed)
			}
		}
	})
}

func TestCheckLayers(t *testing.T) {
	seq := NewSequence(2)
	seq.Append(Token{Value: Mixed, Depth: 1, Position: []int{0, 0}})
	seq.Append(Token{Value: Empty, Depth: 3, Position: []int{0, 0}})
	test.That(t, CheckLayers(seq), test.ShouldBeError)
	test.That(t, CheckLayers(seq).Error(), test.ShouldContainSubstring, "skips from depth 1 to 3")

	seq = NewSequence(2)
	seq.Append(Token{Value: Empty, Depth: 0, Position: []int{0, 0}})
	test.That(t, CheckLayers(seq), test.ShouldBeError)
}

func TestCheckBranching(t *testing.T) {
	seq := Expand(NewSequence(2))
	seq.Value = []int{Mixed, Empty, Empty, Empty}
	children := Expand(seq)

	t.Run("partial last layer", func(t *testing.T) {
		partial := seq.Concat(children)
		partial.Truncate(6)
		test.That(t, CheckBranching(partial, true), test.ShouldBeNil)
		err := CheckBranching(partial, false)
		test.That(t, IsSequenceAlignment(err), test.ShouldBeTrue)
	})

	t.Run("wrong child position", func(t *testing.T) {
		bad := seq.Concat(children)
		bad.Position[len(bad.Position)-1] = 7
		test.That(t, CheckBranching(bad, false), test.ShouldBeError)
	})
}

func TestSequenceLayers(t *testing.T) {
	seq := Expand(NewSequence(2))
	seq.Value = []int{Mixed, 3, Mixed, Empty}
	seq = seq.Concat(Expand(seq))

	start, end := seq.LayerSpan(2)
	test.That(t, start, test.ShouldEqual, 4)
	test.That(t, end, test.ShouldEqual, 12)

	layer := seq.Layer(1)
	test.That(t, layer.Value, test.ShouldResemble, []int{Mixed, 3, Mixed, Empty})
	test.That(t, CountMixed(layer.Value), test.ShouldEqual, 2)

	root := seq.Layer(0)
	test.That(t, root.Len(), test.ShouldEqual, 1)
	test.That(t, root.Value, test.ShouldResemble, []int{Mixed})

	tok := seq.At(4)
	test.That(t, tok.Depth, test.ShouldEqual, 2)
	test.That(t, tok.Position, test.ShouldResemble, []int{0, 0})
	test.That(t, NodeTypeOf(tok.Value), test.ShouldEqual, InternalNode)

	seq.Value = seq.Value[:6]
	test.That(t, seq.Complete(), test.ShouldBeFalse)
	test.That(t, seq.At(9).Value, test.ShouldEqual, Padding)
	seq.Truncate(len(seq.Value))
	test.That(t, seq.Complete(), test.ShouldBeTrue)
	test.That(t, len(seq.Position), test.ShouldEqual, 12)
}

func TestValueMapping(t *testing.T) {
	test.That(t, ClassToValue(0), test.ShouldEqual, Empty)
	test.That(t, ClassToValue(1), test.ShouldEqual, 3)
	test.That(t, ValueToClass(3), test.ShouldEqual, uint8(1))
	test.That(t, ValueToClass(Empty), test.ShouldEqual, uint8(0))
	test.That(t, ValueToClass(Mixed), test.ShouldEqual, uint8(DefaultClass))
	test.That(t, NodeTypeOf(Padding).String(), test.ShouldEqual, "PaddingNode")
	test.That(t, NodeTypeOf(4).String(), test.ShouldEqual, "LeafNodeFilled")
	for c := 0; c <= MaxClass; c++ {
		test.That(t, ValueToClass(ClassToValue(uint8(c))), test.ShouldEqual, uint8(c))
	}
}
